package transport

import (
	"context"
	"sync"
)

type refreshResult struct {
	token string
	err   error
}

// refreshCoordinator lets at most one refresh run at a time. Callers that
// arrive while one is in flight are queued and settled, in arrival order,
// with the outcome of that same refresh. The queue is always drained before
// the in-flight flag clears.
type refreshCoordinator struct {
	mu         sync.Mutex
	refreshing bool
	pending    []chan refreshResult
}

// do runs refresh if none is in flight, otherwise waits for the current one.
// A waiter whose ctx ends stops waiting; its slot is still settled later.
func (c *refreshCoordinator) do(ctx context.Context, refresh func() (string, error)) (token string, err error) {
	c.mu.Lock()
	if c.refreshing {
		ch := make(chan refreshResult, 1)
		c.pending = append(c.pending, ch)
		c.mu.Unlock()

		select {
		case res := <-ch:
			return res.token, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		for _, ch := range c.pending {
			ch <- refreshResult{token: token, err: err}
		}
		c.pending = nil
		c.refreshing = false
		c.mu.Unlock()
	}()

	return refresh()
}

// inFlight reports whether a refresh is running
func (c *refreshCoordinator) inFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

// waiting returns the number of queued callers
func (c *refreshCoordinator) waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
