package devserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

const writeWait = 10 * time.Second

type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsClient) close(code int, reason string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.conn.Close()
}

type hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*wsClient]struct{})}
}

func (h *hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *hub) snapshot() []*wsClient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

func (s *Server) serveNotifications(c *gin.Context) {
	if _, err := s.verify(tokenAccess, c.Query("token")); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("Websocket upgrade failed", "error", err)
		}
		return
	}

	client := &wsClient{conn: conn}
	s.hub.add(client)
	defer func() {
		s.hub.remove(client)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if gjson.GetBytes(data, "type").String() == "ping" {
			if err := client.write([]byte(`{"type":"pong"}`)); err != nil {
				return
			}
		}
	}
}

// Push sends a frame to every connected notification client and returns how
// many received it.
func (s *Server) Push(frame interface{}) int {
	data, err := json.Marshal(frame)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("Failed to encode frame", "error", err)
		}
		return 0
	}

	sent := 0
	for _, c := range s.hub.snapshot() {
		if err := c.write(data); err == nil {
			sent++
		}
	}
	return sent
}

// CloseClients closes every notification socket with the given code
func (s *Server) CloseClients(code int, reason string) {
	for _, c := range s.hub.snapshot() {
		c.close(code, reason)
	}
}

// Clients returns the number of connected notification sockets
func (s *Server) Clients() int {
	s.hub.mu.RLock()
	defer s.hub.mu.RUnlock()
	return len(s.hub.clients)
}
