package audioio

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by a capability used after Close.
var ErrClosed = errors.New("audioio: closed")

// Capture delivers microphone frames.
type Capture interface {
	// Read blocks for the next frame. It returns ErrClosed once the capture
	// is released and ctx.Err() when ctx ends first.
	Read(ctx context.Context) (Chunk, error)

	// Release stops the microphone and releases the device. Read returns
	// ErrClosed afterwards. Safe to call repeatedly.
	Release() error

	// Close closes the capture context, releasing the microphone first if
	// needed. Safe to call repeatedly.
	Close() error
}

// Playback schedules audio against its own clock.
type Playback interface {
	// Now returns the current position of the playback clock.
	Now() time.Duration

	// Play schedules chunk to start at the given clock position.
	Play(chunk Chunk, at time.Duration) error

	// StopAll stops every scheduled or playing chunk.
	StopAll()

	// Close releases the output context. Safe to call repeatedly.
	Close() error
}

// Devices opens the two capabilities for one live session. They are opened
// and closed independently.
type Devices interface {
	OpenCapture(ctx context.Context, cfg Config) (Capture, error)
	OpenPlayback(ctx context.Context, cfg Config) (Playback, error)
}
