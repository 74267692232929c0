package realtime

import (
	"fmt"

	"github.com/gorilla/websocket"
)

// State is the connection state of a Channel
type State int

const (
	// StateDisconnected means no socket exists
	StateDisconnected State = iota

	// StateConnecting means a dial is in progress
	StateConnecting

	// StateConnected means the socket is open
	StateConnected
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Close codes that drive the reconnect policy
const (
	CloseNormal   = websocket.CloseNormalClosure
	CloseAbnormal = websocket.CloseAbnormalClosure
)

// Diagnostics recorded in Status.LastError
const (
	ErrServerUnavailable = "notification server not available"
	ErrConnectionLost    = "connection lost: reconnect attempts exhausted"
)

// Status is a snapshot of the channel's observable state
type Status struct {
	State             State
	LastError         string
	ReconnectAttempts int
	HasConnectedOnce  bool
}

// Connected reports whether the socket is open
func (s Status) Connected() bool {
	return s.State == StateConnected
}

func (s Status) String() string {
	if s.LastError != "" {
		return fmt.Sprintf("%s (%s)", s.State, s.LastError)
	}
	return s.State.String()
}

// closeAction is what to do after a close event
type closeAction int

const (
	actionNone closeAction = iota
	actionReconnect
	actionGiveUp
	actionServerUnavailable
)

// decideOnClose applies the reconnect policy. Order matters: an exhausted
// budget is reported before the first-connection 1006 case, and 1006 never
// reconnects, even after a successful session.
func decideOnClose(hasConnectedOnce bool, code, attempts, maxAttempts int) closeAction {
	switch {
	case code == CloseNormal:
		return actionNone
	case hasConnectedOnce && code != CloseAbnormal && attempts < maxAttempts:
		return actionReconnect
	case hasConnectedOnce && code != CloseAbnormal && attempts >= maxAttempts:
		return actionGiveUp
	case !hasConnectedOnce && code == CloseAbnormal:
		return actionServerUnavailable
	default:
		return actionNone
	}
}
