package retail

import (
	"context"
	"sync"
	"time"

	"github.com/eshaffer321/retail-go/internal/realtime"
)

const (
	// maxNotifications caps the in-memory list
	maxNotifications = 100

	// tokenRefreshMargin is how close to expiry an access token may be
	// before Connect refreshes it first
	tokenRefreshMargin = 30 * time.Second
)

type newNotificationFrame struct {
	Notification Notification `json:"notification"`
}

type unreadCountFrame struct {
	Count int `json:"count"`
}

// notificationCenter implements NotificationService. It owns the channel's
// message handler.
type notificationCenter struct {
	client *Client

	mu          sync.RWMutex
	items       []Notification
	unread      int
	subscribers map[int]func(Notification)
	nextSubID   int
}

func newNotificationCenter(client *Client) *notificationCenter {
	n := &notificationCenter{
		client:      client,
		subscribers: make(map[int]func(Notification)),
	}
	client.realtime.SetMessageHandler(n.handle)
	return n
}

// Connect opens the channel. An access token close to expiry is refreshed
// first, since the channel cannot refresh once connected.
func (n *notificationCenter) Connect(ctx context.Context) error {
	creds := n.client.creds
	if creds.AccessToken() == "" {
		return ErrNotAuthenticated
	}

	if exp := creds.ExpiresAt(); !exp.IsZero() && time.Until(exp) < tokenRefreshMargin {
		if _, err := n.client.transport.RefreshAccessToken(ctx); err != nil {
			return err
		}
	}

	n.client.realtime.Connect(creds.AccessToken())
	return nil
}

func (n *notificationCenter) Disconnect() {
	n.client.realtime.Disconnect()
}

func (n *notificationCenter) Status() RealtimeStatus {
	return n.client.realtime.Status()
}

func (n *notificationCenter) Items() []Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Notification, len(n.items))
	copy(out, n.items)
	return out
}

func (n *notificationCenter) UnreadCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.unread
}

func (n *notificationCenter) MarkAllRead() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.items {
		n.items[i].IsRead = true
	}
	n.unread = 0
}

func (n *notificationCenter) Subscribe(fn func(Notification)) func() {
	n.mu.Lock()
	id := n.nextSubID
	n.nextSubID++
	n.subscribers[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subscribers, id)
		n.mu.Unlock()
	}
}

// handle applies a server frame to the list
func (n *notificationCenter) handle(msg realtime.Message) {
	logger := n.client.options.Logger

	switch msg.Type {
	case realtime.FrameNewNotification:
		var frame newNotificationFrame
		if err := msg.Decode(&frame); err != nil {
			if logger != nil {
				logger.Warn("Invalid notification frame", "error", err)
			}
			return
		}
		n.add(frame.Notification)

	case realtime.FrameUnreadCount:
		var frame unreadCountFrame
		if err := msg.Decode(&frame); err != nil {
			if logger != nil {
				logger.Warn("Invalid unread count frame", "error", err)
			}
			return
		}
		n.mu.Lock()
		n.unread = frame.Count
		n.mu.Unlock()

	default:
		if logger != nil {
			logger.Debug("Ignoring notification frame", "type", msg.Type)
		}
	}
}

func (n *notificationCenter) add(item Notification) {
	n.mu.Lock()
	n.items = append([]Notification{item}, n.items...)
	if len(n.items) > maxNotifications {
		n.items = n.items[:maxNotifications]
	}
	if !item.IsRead {
		n.unread++
	}
	subs := make([]func(Notification), 0, len(n.subscribers))
	for _, fn := range n.subscribers {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	for _, fn := range subs {
		fn(item)
	}
}
