package inference

import (
	"context"
	"sync"
	"time"
)

// Mock implements Generator for testing.
type Mock struct {
	// GenerateFunc is called when Generate is invoked.
	GenerateFunc func(ctx context.Context, key string, req *GenerateRequest) (*GenerateResponse, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a Generate invocation.
type MockCall struct {
	Key  string
	Text string
	Time time.Time
}

// NewMock creates a mock that answers every request with reply.
func NewMock(reply string) *Mock {
	return &Mock{
		GenerateFunc: func(ctx context.Context, key string, req *GenerateRequest) (*GenerateResponse, error) {
			return &GenerateResponse{Text: reply, FinishReason: "STOP"}, nil
		},
	}
}

// WithError returns a mock that always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		GenerateFunc: func(ctx context.Context, key string, req *GenerateRequest) (*GenerateResponse, error) {
			return nil, err
		},
	}
}

// PerKey returns a mock whose outcome depends on the key used. Keys missing
// from errs succeed with reply.
func PerKey(reply string, errs map[string]error) *Mock {
	return &Mock{
		GenerateFunc: func(ctx context.Context, key string, req *GenerateRequest) (*GenerateResponse, error) {
			if err, ok := errs[key]; ok {
				return nil, err
			}
			return &GenerateResponse{Text: reply, FinishReason: "STOP"}, nil
		},
	}
}

// Generate calls GenerateFunc and records the call.
func (m *Mock) Generate(ctx context.Context, key string, req *GenerateRequest) (*GenerateResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Key: key, Text: req.Text, Time: time.Now()})
	fn := m.GenerateFunc
	m.mu.Unlock()

	if fn == nil {
		return nil, ErrEmptyResponse
	}
	return fn(ctx, key, req)
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// Keys returns the key used by each recorded call, in order.
func (m *Mock) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, len(m.calls))
	for i, c := range m.calls {
		keys[i] = c.Key
	}
	return keys
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Verify Mock implements Generator at compile time.
var _ Generator = (*Mock)(nil)
