// Package credential holds the ordered set of API keys and the round-robin
// cursor used to rotate through them.
package credential

import (
	"math/rand/v2"
	"strings"
	"sync"
)

// Pool is an ordered, fixed set of API keys with a rotation cursor.
// The key set never changes after New. The cursor is guarded by a mutex, so
// concurrent callers never corrupt it, but their rotations still interleave.
type Pool struct {
	keys []string

	mu     sync.Mutex
	cursor int
}

// New builds a pool from keys, dropping blank entries and keeping order.
func New(keys ...string) *Pool {
	p := &Pool{}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			p.keys = append(p.keys, k)
		}
	}
	return p
}

// Len returns the number of keys.
func (p *Pool) Len() int {
	return len(p.keys)
}

// Empty reports whether the pool has no keys.
func (p *Pool) Empty() bool {
	return len(p.keys) == 0
}

// Next returns the key at the cursor. It returns "" for an empty pool.
func (p *Pool) Next() string {
	if p.Empty() {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keys[p.cursor]
}

// Advance moves the cursor to (cursor+1) mod Len.
func (p *Pool) Advance() {
	if p.Empty() {
		return
	}
	p.mu.Lock()
	p.cursor = (p.cursor + 1) % len(p.keys)
	p.mu.Unlock()
}

// Cursor returns the current cursor position.
func (p *Pool) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Order returns a copy of the keys in rotation order starting at start.
// It does not touch the shared cursor.
func (p *Pool) Order(start int) []string {
	n := len(p.keys)
	if n == 0 {
		return nil
	}
	start = ((start % n) + n) % n
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, p.keys[(start+i)%n])
	}
	return out
}

// RandomStart returns a uniformly random start index in [0, Len).
func (p *Pool) RandomStart() int {
	if p.Empty() {
		return 0
	}
	return rand.IntN(len(p.keys))
}

// Mask renders a key for logs, keeping only its last four characters.
func Mask(key string) string {
	if len(key) <= 4 {
		return "..."
	}
	return "..." + key[len(key)-4:]
}
