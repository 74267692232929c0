package retail

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/retail-go/internal/transport"
)

// MockTransport is a mock implementation of the Transport interface
type MockTransport struct {
	mock.Mock
}

// Do records the request and the number of request options. A string first
// return value is decoded into result.
func (m *MockTransport) Do(ctx context.Context, req *transport.Request, result interface{}, opts ...transport.RequestOption) error {
	args := m.Called(ctx, req, result, len(opts))

	if body, ok := args.Get(0).(string); ok && body != "" && result != nil {
		if err := json.Unmarshal([]byte(body), result); err != nil {
			return err
		}
	}

	return args.Error(1)
}

func (m *MockTransport) RefreshAccessToken(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func newMockClient(t *testing.T, opts *ClientOptions) (*Client, *MockTransport) {
	t.Helper()
	if opts == nil {
		opts = &ClientOptions{}
	}
	if opts.RealtimeURL == "" {
		opts.RealtimeURL = "ws://localhost:8000/ws/notifications/"
	}

	client, err := NewClient(opts)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	mt := new(MockTransport)
	client.transport = mt
	return client, mt
}

func requestMatching(method, path string) interface{} {
	return mock.MatchedBy(func(req *transport.Request) bool {
		return req.Method == method && req.Path == path
	})
}
