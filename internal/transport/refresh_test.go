package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshCoordinator_SharesOneRefresh(t *testing.T) {
	var c refreshCoordinator
	var calls atomic.Int32
	release := make(chan struct{})

	refresh := func() (string, error) {
		calls.Add(1)
		<-release
		return "new-token", nil
	}

	const n = 5
	results := make([]string, n)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		tok, err := c.do(context.Background(), refresh)
		assert.NoError(t, err)
		results[0] = tok
	}()
	require.Eventually(t, c.inFlight, time.Second, time.Millisecond)

	for i := 1; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := c.do(context.Background(), refresh)
			assert.NoError(t, err)
			results[i] = tok
		}(i)
	}
	require.Eventually(t, func() bool { return c.waiting() == n-1 }, time.Second, time.Millisecond)

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, tok := range results {
		assert.Equal(t, "new-token", tok)
	}
	assert.False(t, c.inFlight())
	assert.Zero(t, c.waiting())
}

func TestRefreshCoordinator_FailureFansOut(t *testing.T) {
	var c refreshCoordinator
	release := make(chan struct{})
	boom := errors.New("refresh rejected")

	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := c.do(context.Background(), func() (string, error) {
				<-release
				return "", boom
			})
			errs <- err
		}()
		if i == 0 {
			require.Eventually(t, c.inFlight, time.Second, time.Millisecond)
		}
	}
	require.Eventually(t, func() bool { return c.waiting() == 2 }, time.Second, time.Millisecond)

	close(release)
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, <-errs, boom)
	}
}

func TestRefreshCoordinator_WaiterContextCancel(t *testing.T) {
	var c refreshCoordinator
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _ = c.do(context.Background(), func() (string, error) {
			<-release
			return "tok", nil
		})
	}()
	require.Eventually(t, c.inFlight, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.do(ctx, nil)
		errCh <- err
	}()
	require.Eventually(t, func() bool { return c.waiting() == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	<-done
	assert.False(t, c.inFlight())
}

func TestRefreshCoordinator_PanicStillDrains(t *testing.T) {
	var c refreshCoordinator
	assert.Panics(t, func() {
		_, _ = c.do(context.Background(), func() (string, error) {
			panic("boom")
		})
	})
	assert.False(t, c.inFlight())
}
