package live

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCredentials means the credential pool is empty. No device is
	// opened and no connection is attempted.
	ErrNoCredentials = errors.New("live: no API keys configured")

	// ErrAllCredentialsFailed means every key was tried and none connected.
	ErrAllCredentialsFailed = errors.New("live: all API keys failed to connect")

	// ErrAlreadyConnected is returned by Connect while a session is active.
	ErrAlreadyConnected = errors.New("live: already connected")

	// ErrDisconnected is returned by Connect when Disconnect ran while the
	// connection was still being made.
	ErrDisconnected = errors.New("live: disconnected while connecting")

	// ErrNotConnected is returned when sending on a closed transport.
	ErrNotConnected = errors.New("live: not connected")

	// ErrSetup means the server never acknowledged the setup message.
	ErrSetup = errors.New("live: setup not acknowledged")
)

// ConnectError reports a failed connection attempt over every key.
type ConnectError struct {
	Attempts int
	Last     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("live: connect failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ConnectError) Unwrap() []error {
	return []error{ErrAllCredentialsFailed, e.Last}
}

// User-facing messages.
const (
	MsgNoKeys        = "لا توجد مفاتيح API متوفرة"
	MsgAllKeysFailed = "فشل الاتصال بجميع المفاتيح"
	MsgDropped       = "انقطع الاتصال"
)

// connectMessage is shown when Connect fails.
func connectMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoCredentials):
		return MsgNoKeys
	case errors.Is(err, ErrAllCredentialsFailed):
		return "فشل الاتصال: " + MsgAllKeysFailed
	default:
		return "فشل الاتصال: " + err.Error()
	}
}

// streamMessage is shown when an open session fails.
func streamMessage(err error) string {
	if err == nil || err.Error() == "" {
		return "خطأ: " + MsgDropped
	}
	return "خطأ: " + err.Error()
}
