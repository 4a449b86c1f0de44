// Package hub fans out status messages to WebSocket clients using a single
// goroutine that owns the client set.
package hub

// Message is one broadcast payload, written to clients as a text frame.
type Message struct {
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}
