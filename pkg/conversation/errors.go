package conversation

import "errors"

var (
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("conversation: empty message")

	// ErrBusy is returned while another message is in flight.
	ErrBusy = errors.New("conversation: a message is already being answered")

	// ErrUnknownBook is returned when bookmarking an id not in the catalog.
	ErrUnknownBook = errors.New("conversation: unknown book")
)
