package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-librarian/pkg/audioio"
	"github.com/teslashibe/go-librarian/pkg/credential"
)

// consumerWait bounds how long Disconnect waits for the event consumer to
// drain after the transport is closed.
const consumerWait = 2 * time.Second

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager runs one live voice session at a time.
type Manager struct {
	pool    *credential.Pool
	dialer  Dialer
	devices audioio.Devices
	setup   Setup
	logger  *slog.Logger

	mu        sync.Mutex
	state     State
	lastErr   error
	errMsg    string
	volume    float64
	sess      *session
	listeners []func(Status)
}

// session holds the resources of one connection.
type session struct {
	capture  audioio.Capture
	playback audioio.Playback
	sched    *Scheduler
	conn     Conn

	cancelDial    context.CancelFunc
	cancelCapture context.CancelFunc
	sending       atomic.Bool

	pump         sync.WaitGroup
	consumerDone chan struct{}
	consuming    bool
	closing      bool

	once sync.Once
}

// NewManager creates a manager in the Idle state.
func NewManager(pool *credential.Pool, dialer Dialer, devices audioio.Devices, setup Setup, opts ...Option) *Manager {
	m := &Manager{
		pool:    pool,
		dialer:  dialer,
		devices: devices,
		setup:   setup,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "live")
	return m
}

// OnStatus registers a listener called on every state or volume change.
// Listeners run on the goroutine that caused the change and must not block.
func (m *Manager) OnStatus(fn func(Status)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Volume returns the RMS level of the latest microphone frame.
func (m *Manager) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// LastError returns the error that put the manager in the Error state, or
// nil.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Status returns a snapshot of state, volume and the user-facing error.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

func (m *Manager) statusLocked() Status {
	return Status{State: m.state, Volume: m.volume, Error: m.errMsg}
}

// update applies fn under the lock, then notifies listeners.
func (m *Manager) update(fn func()) {
	m.mu.Lock()
	fn()
	st := m.statusLocked()
	listeners := append([]func(Status){}, m.listeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		l(st)
	}
}

// Connect opens the audio devices and a live connection. Keys are tried in
// rotation from a random starting index until one is accepted. Microphone
// audio is sent only once the connection is open.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Active() {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	if m.pool.Empty() {
		m.mu.Unlock()
		m.update(func() {
			m.state = StateError
			m.lastErr = ErrNoCredentials
			m.errMsg = connectMessage(ErrNoCredentials)
		})
		return ErrNoCredentials
	}

	s := &session{consumerDone: make(chan struct{})}
	dialCtx, cancel := context.WithCancel(ctx)
	s.cancelDial = cancel
	m.sess = s
	m.mu.Unlock()
	defer cancel()

	m.update(func() {
		m.state = StateConnecting
		m.lastErr = nil
		m.errMsg = ""
	})

	capture, err := m.devices.OpenCapture(dialCtx, audioio.CaptureConfig())
	if err != nil {
		return m.connectFailed(s, err)
	}
	if !m.attach(s, func() { s.capture = capture }) {
		capture.Close()
		return ErrDisconnected
	}

	playback, err := m.devices.OpenPlayback(dialCtx, audioio.PlaybackConfig())
	if err != nil {
		return m.connectFailed(s, err)
	}
	if !m.attach(s, func() {
		s.playback = playback
		s.sched = NewScheduler(playback)
	}) {
		playback.Close()
		return ErrDisconnected
	}

	conn, err := m.dial(dialCtx)
	if err != nil {
		if !m.attach(s, func() {}) {
			return ErrDisconnected
		}
		return m.connectFailed(s, err)
	}

	captureCtx, cancelCapture := context.WithCancel(context.Background())
	if !m.attach(s, func() {
		s.conn = conn
		s.cancelCapture = cancelCapture
		s.consuming = true
		s.pump.Add(1)
	}) {
		cancelCapture()
		conn.Close()
		return ErrDisconnected
	}
	s.sending.Store(true)

	go m.pumpCapture(captureCtx, s)
	go m.consume(s)

	m.update(func() {
		if m.sess == s && !s.closing {
			m.state = StateStreaming
		}
	})
	m.logger.Info("live session open")
	return nil
}

// dial tries each key once, starting at a random index.
func (m *Manager) dial(ctx context.Context) (Conn, error) {
	keys := m.pool.Order(m.pool.RandomStart())

	var last error
	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m.logger.Debug("dialing", "attempt", i+1, "key", credential.Mask(key))
		conn, err := m.dialer.Dial(ctx, key, m.setup)
		if err == nil {
			return conn, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		last = err
		m.logger.Warn("key failed to connect, rotating",
			"attempt", i+1,
			"key", credential.Mask(key),
			"error", err,
		)
	}
	return nil, &ConnectError{Attempts: len(keys), Last: last}
}

// attach runs fn under the lock if s is still the live session and is not
// being torn down.
func (m *Manager) attach(s *session, fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess != s || s.closing {
		return false
	}
	fn()
	return true
}

func (m *Manager) connectFailed(s *session, err error) error {
	m.logger.Error("live connect failed", "error", err)
	m.teardown(s, err, connectMessage(err))
	return err
}

// pumpCapture forwards microphone frames and tracks their level.
func (m *Manager) pumpCapture(ctx context.Context, s *session) {
	defer s.pump.Done()

	for {
		frame, err := s.capture.Read(ctx)
		if err != nil {
			if !errors.Is(err, audioio.ErrClosed) && !errors.Is(err, context.Canceled) {
				m.logger.Debug("capture read ended", "error", err)
			}
			return
		}

		level := frame.RMS()
		m.update(func() { m.volume = level })

		if !s.sending.Load() {
			continue
		}
		if frame.SampleRate != audioio.CaptureRate || frame.Channels > 1 {
			frame = frame.To(audioio.CaptureRate)
		}
		if err := s.conn.SendAudio(frame); err != nil {
			m.logger.Debug("send audio failed", "error", err)
		}
	}
}

// consume is the single reader of transport events.
func (m *Manager) consume(s *session) {
	defer close(s.consumerDone)

	for ev := range s.conn.Events() {
		switch ev.Type {
		case EventOpened:
			m.logger.Debug("transport opened")

		case EventAudio:
			if _, err := s.sched.Schedule(ev.Audio); err != nil {
				m.logger.Debug("schedule failed", "error", err)
				continue
			}
			m.update(func() {
				if m.sess == s && m.state == StateInterrupted {
					m.state = StateStreaming
				}
			})

		case EventInterrupted:
			s.sched.Interrupt()
			m.update(func() {
				if m.sess == s {
					m.state = StateInterrupted
				}
			})
			m.logger.Debug("playback interrupted")

		case EventTurnComplete:
			m.logger.Debug("turn complete")

		case EventText:
			m.logger.Debug("model text", "text", ev.Text)

		case EventClosed:
			m.logger.Info("live session closed by server")
			m.teardown(s, nil, "")

		case EventError:
			m.logger.Error("live session error", "error", ev.Err)
			m.teardown(s, ev.Err, streamMessage(ev.Err))
		}
	}

	m.teardown(s, nil, "")
}

// Disconnect ends the session. It is idempotent, safe from any state and
// always leaves the manager Closed. The error of a failed session stays
// available through LastError and Status.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	s := m.sess
	m.mu.Unlock()

	if s != nil {
		m.teardown(s, nil, "")
	}

	m.update(func() {
		if m.sess == nil {
			m.state = StateClosed
			m.volume = 0
		}
	})

	if s == nil {
		return
	}

	m.mu.Lock()
	consuming := s.consuming
	m.mu.Unlock()
	if consuming {
		select {
		case <-s.consumerDone:
		case <-time.After(consumerWait):
			m.logger.Warn("event consumer did not stop")
		}
	}
}

// teardown releases a session's resources in order: stop sending, stop the
// capture pump and release the microphone, stop queued playback, close the
// playback and capture contexts, then close the transport. The first call
// wins; cause decides whether the manager ends in Closed or Error.
func (m *Manager) teardown(s *session, cause error, msg string) {
	s.once.Do(func() {
		m.mu.Lock()
		s.closing = true
		capture, playback, conn := s.capture, s.playback, s.conn
		cancelCapture := s.cancelCapture
		m.mu.Unlock()

		s.sending.Store(false)
		s.cancelDial()

		if cancelCapture != nil {
			cancelCapture()
		}
		if capture != nil {
			if err := capture.Release(); err != nil {
				m.logger.Debug("microphone release", "error", err)
			}
		}
		s.pump.Wait()

		if playback != nil {
			playback.StopAll()
			if err := playback.Close(); err != nil {
				m.logger.Debug("playback close", "error", err)
			}
		}
		if capture != nil {
			if err := capture.Close(); err != nil {
				m.logger.Debug("capture close", "error", err)
			}
		}

		if conn != nil {
			if err := conn.Close(); err != nil {
				m.logger.Debug("transport close", "error", err)
			}
		}

		m.update(func() {
			if m.sess != s {
				return
			}
			m.sess = nil
			m.volume = 0
			if cause != nil {
				m.state = StateError
				m.lastErr = cause
				m.errMsg = msg
			} else {
				m.state = StateClosed
			}
		})
	})
}
