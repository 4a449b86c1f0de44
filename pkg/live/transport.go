package live

import (
	"context"

	"github.com/teslashibe/go-librarian/pkg/audioio"
)

// Setup is the session configuration sent when a connection opens.
type Setup struct {
	Model             string
	Voice             string
	SystemInstruction string
}

// EventType identifies a transport event.
type EventType int

const (
	EventOpened EventType = iota
	EventAudio
	EventInterrupted
	EventTurnComplete
	EventText
	EventClosed
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventOpened:
		return "opened"
	case EventAudio:
		return "audio"
	case EventInterrupted:
		return "interrupted"
	case EventTurnComplete:
		return "turn_complete"
	case EventText:
		return "text"
	case EventClosed:
		return "closed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one message from the transport.
type Event struct {
	Type  EventType
	Audio audioio.Chunk
	Text  string
	Err   error
}

// Dialer opens a live connection with one key. Dial returns only after the
// server has accepted the setup.
type Dialer interface {
	Dial(ctx context.Context, key string, setup Setup) (Conn, error)
}

// Conn is an open live connection.
type Conn interface {
	// SendAudio streams one 16 kHz PCM16 microphone frame.
	SendAudio(chunk audioio.Chunk) error

	// Events delivers server events. The channel is closed after the
	// connection ends, whichever side closed it.
	Events() <-chan Event

	// Close ends the connection. Safe to call repeatedly.
	Close() error
}
