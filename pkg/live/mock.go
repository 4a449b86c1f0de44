package live

import (
	"context"
	"sync"

	"github.com/teslashibe/go-librarian/pkg/audioio"
)

// MockDialer is a Dialer for tests. Keys listed in Fail are rejected with
// the mapped error; others get a fresh MockConn.
type MockDialer struct {
	Fail  map[string]error
	Trace func(string)

	mu    sync.Mutex
	keys  []string
	conns []*MockConn
	setup Setup
}

// Dial records the key and returns a MockConn or the configured error.
func (d *MockDialer) Dial(ctx context.Context, key string, setup Setup) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.keys = append(d.keys, key)
	d.setup = setup
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := d.Fail[key]; ok {
		return nil, err
	}

	c := NewMockConn()
	c.trace = d.Trace
	d.conns = append(d.conns, c)
	return c, nil
}

// Keys returns the keys dialed, in order.
func (d *MockDialer) Keys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.keys...)
}

// Conn returns the most recent connection, or nil.
func (d *MockDialer) Conn() *MockConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// LastSetup returns the setup passed to the latest Dial.
func (d *MockDialer) LastSetup() Setup {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setup
}

// MockConn is a Conn whose events are injected with Emit.
type MockConn struct {
	trace func(string)

	mu     sync.Mutex
	events chan Event
	sent   []audioio.Chunk
	closed bool
}

// NewMockConn returns an open mock connection.
func NewMockConn() *MockConn {
	return &MockConn{events: make(chan Event, 64)}
}

// Emit delivers ev to the consumer. It is dropped after Close.
func (c *MockConn) Emit(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.events <- ev
}

// SendAudio records the chunk.
func (c *MockConn) SendAudio(chunk audioio.Chunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrNotConnected
	}
	c.sent = append(c.sent, chunk)
	return nil
}

func (c *MockConn) Events() <-chan Event {
	return c.events
}

// Close closes the event channel.
func (c *MockConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.events)
	c.mu.Unlock()

	if c.trace != nil {
		c.trace("conn.close")
	}
	return nil
}

// Sent returns every chunk passed to SendAudio.
func (c *MockConn) Sent() []audioio.Chunk {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]audioio.Chunk(nil), c.sent...)
}

// Closed reports whether Close was called.
func (c *MockConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

var (
	_ Dialer = (*MockDialer)(nil)
	_ Conn   = (*MockConn)(nil)
)
