package realtime

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type notificationServer struct {
	*httptest.Server
	connects   atomic.Int32
	closeCodes chan int
}

// newNotificationServer answers pings with a pong and an unread count, and
// restarts the first connection with close code 4002.
func newNotificationServer(t *testing.T) *notificationServer {
	t.Helper()
	ns := &notificationServer{closeCodes: make(chan int, 8)}
	upgrader := websocket.Upgrader{}

	ns.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "good" {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := ns.connects.Add(1)

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				var ce *websocket.CloseError
				if errors.As(err, &ce) {
					select {
					case ns.closeCodes <- ce.Code:
					default:
					}
				}
				return
			}
			if gjson.GetBytes(data, "type").String() != FramePing {
				continue
			}
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(`{"type":"unread_count","count":%d}`, n)))
			if n == 1 {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(4002, "restart"))
			}
		}
	}))
	t.Cleanup(ns.Close)
	return ns
}

func (ns *notificationServer) endpoint() string {
	return "ws" + strings.TrimPrefix(ns.URL, "http") + DefaultPath
}

func TestChannel_EndToEnd(t *testing.T) {
	ns := newNotificationServer(t)
	c := NewChannel(Options{
		Endpoint:       ns.endpoint(),
		Dialer:         NewGorillaDialer(time.Second),
		ReconnectDelay: 10 * time.Millisecond,
	})
	t.Cleanup(c.Disconnect)

	rec := &recorder{}
	c.SetMessageHandler(rec.handle)
	c.Connect("good")

	require.Eventually(t, func() bool {
		return ns.connects.Load() == 2 && c.IsConnected() && rec.count() == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{FrameUnreadCount, FrameUnreadCount}, rec.types())
	assert.Empty(t, c.LastError())

	c.Disconnect()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case code := <-ns.closeCodes:
			if code == CloseNormal {
				return
			}
		case <-deadline:
			t.Fatal("server never saw a normal closure")
		}
	}
}

func TestChannel_EndToEndRejectedHandshake(t *testing.T) {
	ns := newNotificationServer(t)
	c := NewChannel(Options{
		Endpoint:       ns.endpoint(),
		Dialer:         NewGorillaDialer(time.Second),
		ReconnectDelay: 10 * time.Millisecond,
	})
	t.Cleanup(c.Disconnect)

	c.Connect("expired")

	require.Eventually(t, func() bool { return c.LastError() == ErrServerUnavailable }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, c.IsConnected())
	assert.Zero(t, ns.connects.Load())
}
