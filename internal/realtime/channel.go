package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eshaffer321/retail-go/internal/metrics"
	"github.com/eshaffer321/retail-go/internal/types"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Frame types exchanged on the notification socket
const (
	FramePing            = "ping"
	FramePong            = "pong"
	FrameNewNotification = "new_notification"
	FrameUnreadCount     = "unread_count"
)

const (
	DefaultKeepAliveInterval    = 30 * time.Second
	DefaultReconnectDelay       = 5 * time.Second
	DefaultMaxReconnectAttempts = 3
	DefaultHandshakeTimeout     = 10 * time.Second
)

var pingFrame = []byte(`{"type":"ping"}`)

// Message is a server frame forwarded to the handler
type Message struct {
	Type string
	Data json.RawMessage
}

// Decode unmarshals the full frame into v
func (m Message) Decode(v interface{}) error {
	return json.Unmarshal(m.Data, v)
}

// MessageHandler receives every non-pong frame
type MessageHandler func(Message)

// Options configures a Channel
type Options struct {
	// Endpoint is the socket URL without the token query
	Endpoint string

	Dialer               Dialer
	KeepAliveInterval    time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int

	Logger  types.Logger
	Metrics *metrics.Collector

	// OnStatusChange is called after every state or diagnostic change
	OnStatusChange func(Status)
}

// Channel maintains a single notification socket per client. All methods
// are safe for concurrent use.
type Channel struct {
	endpoint          string
	dialer            Dialer
	keepAliveInterval time.Duration
	reconnectDelay    time.Duration
	maxAttempts       int
	logger            types.Logger
	metrics           *metrics.Collector
	onStatusChange    func(Status)

	mu                sync.Mutex
	state             State
	token             string
	lastError         string
	reconnectAttempts int
	hasConnectedOnce  bool
	handler           MessageHandler

	// generation invalidates dials, read loops and timers from an earlier
	// connection once Disconnect or a new Connect has happened.
	generation     uint64
	session        *session
	cancelDial     context.CancelFunc
	reconnectTimer *time.Timer
	stopKeepAlive  chan struct{}

	keepAlives atomic.Int32
}

type session struct {
	gen     uint64
	conn    Conn
	writeMu sync.Mutex
}

func (s *session) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// NewChannel creates a disconnected channel
func NewChannel(opts Options) *Channel {
	if opts.Dialer == nil {
		opts.Dialer = NewGorillaDialer(DefaultHandshakeTimeout)
	}
	if opts.KeepAliveInterval == 0 {
		opts.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if opts.ReconnectDelay == 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.MaxReconnectAttempts == 0 {
		opts.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}

	return &Channel{
		endpoint:          opts.Endpoint,
		dialer:            opts.Dialer,
		keepAliveInterval: opts.KeepAliveInterval,
		reconnectDelay:    opts.ReconnectDelay,
		maxAttempts:       opts.MaxReconnectAttempts,
		logger:            opts.Logger,
		metrics:           opts.Metrics,
		onStatusChange:    opts.OnStatusChange,
	}
}

// Connect opens the socket with the given access token. It returns
// immediately; progress is visible through Status. Calling it while a
// connection is open or being opened does nothing.
func (c *Channel) Connect(token string) {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	if token == "" {
		c.mu.Unlock()
		if c.logger != nil {
			c.logger.Warn("Notification connect skipped, no access token")
		}
		return
	}

	url, err := withToken(c.endpoint, token)
	if err != nil {
		c.lastError = err.Error()
		status := c.statusLocked()
		c.mu.Unlock()
		c.notify(status)
		return
	}

	c.generation++
	gen := c.generation
	c.token = token
	c.state = StateConnecting
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelDial = cancel
	status := c.statusLocked()
	c.mu.Unlock()

	c.notify(status)
	if c.logger != nil {
		c.logger.Debug("Connecting to notifications", "endpoint", c.endpoint)
	}

	go c.dial(ctx, gen, url)
}

func (c *Channel) dial(ctx context.Context, gen uint64, url string) {
	conn, err := c.dialer.Dial(ctx, url)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	c.cancelDial = nil

	if err != nil {
		c.lastError = fmt.Sprintf("websocket error: %v", err)
		c.mu.Unlock()
		if c.logger != nil {
			c.logger.Warn("Notification dial failed", "error", err)
		}
		c.handleClose(gen, closeCodeOf(err))
		return
	}

	s := &session{gen: gen, conn: conn}
	c.session = s
	c.state = StateConnected
	c.reconnectAttempts = 0
	c.hasConnectedOnce = true
	c.lastError = ""
	c.startKeepAliveLocked(s)
	status := c.statusLocked()
	c.mu.Unlock()

	c.metrics.SetConnected(true)
	c.notify(status)
	if c.logger != nil {
		c.logger.Info("Notifications connected")
	}

	if err := s.write(pingFrame); err != nil && c.logger != nil {
		c.logger.Debug("Initial ping failed", "error", err)
	}

	go c.readLoop(s)
}

func (c *Channel) readLoop(s *session) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			c.handleClose(s.gen, closeCodeOf(err))
			return
		}
		c.dispatch(data)
	}
}

// dispatch forwards a frame to the handler. Pong and malformed frames are
// dropped.
func (c *Channel) dispatch(data []byte) {
	if !gjson.ValidBytes(data) {
		if c.logger != nil {
			c.logger.Debug("Dropping malformed notification frame", "size", len(data))
		}
		return
	}

	frameType := gjson.GetBytes(data, "type").String()
	c.metrics.ObserveFrame(frameType)
	if frameType == FramePong {
		return
	}

	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil && c.logger != nil {
			c.logger.Error("Notification handler panicked", "type", frameType, "panic", r)
		}
	}()
	handler(Message{Type: frameType, Data: append(json.RawMessage(nil), data...)})
}

// handleClose tears down the connection for gen and applies the reconnect
// policy.
func (c *Channel) handleClose(gen uint64, code int) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}

	wasConnected := c.state == StateConnected
	c.stopKeepAliveLocked()
	if c.session != nil {
		c.session.conn.Close()
		c.session = nil
	}
	c.state = StateDisconnected

	switch decideOnClose(c.hasConnectedOnce, code, c.reconnectAttempts, c.maxAttempts) {
	case actionReconnect:
		c.reconnectAttempts++
		c.reconnectTimer = time.AfterFunc(c.reconnectDelay, func() {
			c.reconnect(gen)
		})
		if c.logger != nil {
			c.logger.Info("Notifications closed, reconnecting",
				"code", code, "attempt", c.reconnectAttempts, "delay", c.reconnectDelay)
		}
	case actionGiveUp:
		c.lastError = ErrConnectionLost
		if c.logger != nil {
			c.logger.Warn("Notifications connection lost", "code", code, "attempts", c.reconnectAttempts)
		}
	case actionServerUnavailable:
		c.lastError = ErrServerUnavailable
		if c.logger != nil {
			c.logger.Warn("Notification server not available")
		}
	default:
		if c.logger != nil {
			c.logger.Debug("Notifications closed", "code", code)
		}
	}
	status := c.statusLocked()
	c.mu.Unlock()

	if wasConnected {
		c.metrics.SetConnected(false)
	}
	c.notify(status)
}

func (c *Channel) reconnect(gen uint64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.reconnectTimer = nil
	token := c.token
	c.mu.Unlock()

	c.metrics.IncReconnect()
	c.Connect(token)
}

// Disconnect closes the socket with a normal closure and cancels any pending
// reconnect. It never triggers a reconnect.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.generation++
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	c.stopKeepAliveLocked()
	s := c.session
	c.session = nil
	wasConnected := c.state == StateConnected
	changed := c.state != StateDisconnected
	c.state = StateDisconnected
	c.reconnectAttempts = 0
	status := c.statusLocked()
	c.mu.Unlock()

	if s != nil {
		s.writeMu.Lock()
		msg := websocket.FormatCloseMessage(CloseNormal, "")
		if err := s.conn.WriteMessage(websocket.CloseMessage, msg); err != nil && c.logger != nil {
			c.logger.Debug("Close frame not sent", "error", err)
		}
		s.writeMu.Unlock()
		s.conn.Close()
	}
	if wasConnected {
		c.metrics.SetConnected(false)
	}
	if changed {
		c.notify(status)
		if c.logger != nil {
			c.logger.Info("Notifications disconnected")
		}
	}
}

// SetMessageHandler replaces the frame handler. Only the latest handler is
// called.
func (c *Channel) SetMessageHandler(h MessageHandler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

// Status returns a snapshot of the channel state
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// IsConnected reports whether the socket is open
func (c *Channel) IsConnected() bool {
	return c.Status().Connected()
}

// LastError returns the latest diagnostic, or "" after a successful open
func (c *Channel) LastError() string {
	return c.Status().LastError
}

func (c *Channel) statusLocked() Status {
	return Status{
		State:             c.state,
		LastError:         c.lastError,
		ReconnectAttempts: c.reconnectAttempts,
		HasConnectedOnce:  c.hasConnectedOnce,
	}
}

func (c *Channel) notify(s Status) {
	if c.onStatusChange != nil {
		c.onStatusChange(s)
	}
}

// startKeepAliveLocked replaces any running keep-alive ticker with one bound
// to s.
func (c *Channel) startKeepAliveLocked(s *session) {
	c.stopKeepAliveLocked()
	stop := make(chan struct{})
	c.stopKeepAlive = stop
	c.keepAlives.Add(1)
	go c.keepAlive(s, stop)
}

func (c *Channel) stopKeepAliveLocked() {
	if c.stopKeepAlive != nil {
		close(c.stopKeepAlive)
		c.stopKeepAlive = nil
	}
}

func (c *Channel) keepAlive(s *session, stop <-chan struct{}) {
	defer c.keepAlives.Add(-1)

	ticker := time.NewTicker(c.keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.write(pingFrame); err != nil && c.logger != nil {
				c.logger.Debug("Keep-alive ping failed", "error", err)
			}
		}
	}
}

// closeCodeOf maps a read or dial error to a close code. Anything that is
// not a close frame counts as an abnormal closure.
func closeCodeOf(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CloseAbnormal
}
