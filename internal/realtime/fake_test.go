package realtime

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/gorilla/websocket"
)

type frame struct {
	data []byte
	err  error
}

type fakeConn struct {
	frames chan frame
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	written [][]byte
	closes  []int
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan frame, 32),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case fr := <-f.frames:
		if fr.err != nil {
			return 0, nil, fr.err
		}
		return websocket.TextMessage, fr.data, nil
	case <-f.closed:
		return 0, nil, net.ErrClosed
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-f.closed:
		return websocket.ErrCloseSent
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if messageType == websocket.CloseMessage {
		code := 0
		if len(data) >= 2 {
			code = int(binary.BigEndian.Uint16(data[:2]))
		}
		f.closes = append(f.closes, code)
		return nil
	}
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) push(data string) {
	f.frames <- frame{data: []byte(data)}
}

func (f *fakeConn) closeWith(code int) {
	f.frames <- frame{err: &websocket.CloseError{Code: code}}
}

func (f *fakeConn) drop() {
	f.frames <- frame{err: io.ErrUnexpectedEOF}
}

func (f *fakeConn) pings() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.written {
		if bytes.Equal(w, pingFrame) {
			n++
		}
	}
	return n
}

func (f *fakeConn) closeCodes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.closes...)
}

func (f *fakeConn) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

// fakeDialer hands out fakeConns. fail decides the outcome of the nth dial
// (1-based); gate, when set, holds every dial until closed or cancelled.
type fakeDialer struct {
	mu    sync.Mutex
	urls  []string
	conns []*fakeConn
	fail  func(n int) error
	gate  chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	n := len(d.urls)
	fail := d.fail
	gate := d.gate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if fail != nil {
		if err := fail(n); err != nil {
			return nil, err
		}
	}

	conn := newFakeConn()
	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func (d *fakeDialer) url(i int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.urls[i]
}
