package live

import (
	"sync"
	"time"

	"github.com/teslashibe/go-librarian/pkg/audioio"
)

// Scheduler queues speech chunks back to back on a Playback clock.
type Scheduler struct {
	mu       sync.Mutex
	playback audioio.Playback
	cursor   time.Duration
}

// NewScheduler starts the cursor at the playback clock's current position.
func NewScheduler(p audioio.Playback) *Scheduler {
	return &Scheduler{playback: p, cursor: p.Now()}
}

// Schedule plays chunk at max(cursor, now) and moves the cursor to its end.
// It returns the start time used.
func (s *Scheduler) Schedule(c audioio.Chunk) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now := s.playback.Now(); s.cursor < now {
		s.cursor = now
	}
	at := s.cursor
	if err := s.playback.Play(c, at); err != nil {
		return 0, err
	}
	s.cursor += c.Duration()
	return at, nil
}

// Interrupt stops everything queued and pulls the cursor back to now.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playback.StopAll()
	s.cursor = s.playback.Now()
}

// Cursor returns the time at which the next chunk would start.
func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}
