package audioio

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// MockCapture is a Capture fed by Push or by a synthetic generator
// (silence or a sine wave) running on a ticker.
type MockCapture struct {
	cfg    Config
	logger *slog.Logger
	trace  func(string)

	frames      chan Chunk
	done        chan struct{}
	releaseOnce sync.Once
	closeOnce   sync.Once
	released    atomic.Bool
	closed      atomic.Bool

	framesRead atomic.Int64

	interval  time.Duration
	frequency float64 // Hz, 0 = silence
	amplitude float64 // 0.0 to 1.0
	phase     float64
}

// MockOption configures the mock capabilities.
type MockOption func(*mockOptions)

type mockOptions struct {
	interval  time.Duration
	frequency float64
	amplitude float64
	wallClock bool
	trace     func(string)
}

// WithSineWave makes the capture generate a tone.
func WithSineWave(frequency, amplitude float64) MockOption {
	return func(o *mockOptions) {
		o.frequency = frequency
		o.amplitude = amplitude
	}
}

// WithInterval starts a generator producing one frame per interval.
// Without it frames only arrive through Push.
func WithInterval(d time.Duration) MockOption {
	return func(o *mockOptions) { o.interval = d }
}

// WithWallClock makes a playback clock follow real time instead of Advance.
func WithWallClock() MockOption {
	return func(o *mockOptions) { o.wallClock = true }
}

// WithTrace reports lifecycle calls ("capture.close", "playback.stop_all",
// "playback.close") to fn.
func WithTrace(fn func(string)) MockOption {
	return func(o *mockOptions) { o.trace = fn }
}

func applyMockOptions(opts []MockOption) mockOptions {
	var o mockOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.trace == nil {
		o.trace = func(string) {}
	}
	return o
}

// NewMockCapture creates a mock microphone.
func NewMockCapture(cfg Config, logger *slog.Logger, opts ...MockOption) *MockCapture {
	if logger == nil {
		logger = slog.Default()
	}
	o := applyMockOptions(opts)

	m := &MockCapture{
		cfg:       cfg,
		logger:    logger,
		trace:     o.trace,
		frames:    make(chan Chunk, 16),
		done:      make(chan struct{}),
		interval:  o.interval,
		frequency: o.frequency,
		amplitude: o.amplitude,
	}

	if m.interval > 0 {
		go m.generateLoop()
	}
	return m
}

func (m *MockCapture) generateLoop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			select {
			case m.frames <- m.generate():
			default:
				m.logger.Debug("mock capture: buffer full, dropping frame")
			}
		}
	}
}

func (m *MockCapture) generate() Chunk {
	n := m.cfg.FrameSize
	samples := make([]int16, n*m.cfg.Channels)

	if m.frequency > 0 {
		for i := 0; i < n; i++ {
			v := int16(m.amplitude * 32767 * math.Sin(2*math.Pi*m.frequency*m.phase/float64(m.cfg.SampleRate)))
			for ch := 0; ch < m.cfg.Channels; ch++ {
				samples[i*m.cfg.Channels+ch] = v
			}
			m.phase++
			if m.phase >= float64(m.cfg.SampleRate) {
				m.phase = 0
			}
		}
	}

	return Chunk{Samples: samples, SampleRate: m.cfg.SampleRate, Channels: m.cfg.Channels}
}

// Push queues a frame. It returns ErrClosed after Release.
func (m *MockCapture) Push(c Chunk) error {
	if m.released.Load() {
		return ErrClosed
	}
	select {
	case m.frames <- c:
		return nil
	case <-m.done:
		return ErrClosed
	}
}

// Read returns the next frame.
func (m *MockCapture) Read(ctx context.Context) (Chunk, error) {
	select {
	case <-ctx.Done():
		return Chunk{}, ctx.Err()
	case <-m.done:
		return Chunk{}, ErrClosed
	case c := <-m.frames:
		m.framesRead.Add(1)
		return c, nil
	}
}

// Release stops the generator and unblocks readers.
func (m *MockCapture) Release() error {
	m.releaseOnce.Do(func() {
		m.released.Store(true)
		close(m.done)
		m.trace("capture.release")
	})
	return nil
}

// Close releases the microphone if needed and closes the capture context.
func (m *MockCapture) Close() error {
	m.Release()
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		m.trace("capture.close")
	})
	return nil
}

// Released reports whether the microphone was released.
func (m *MockCapture) Released() bool { return m.released.Load() }

// Closed reports whether the capture context was closed.
func (m *MockCapture) Closed() bool { return m.closed.Load() }

// FramesRead returns how many frames Read delivered.
func (m *MockCapture) FramesRead() int64 { return m.framesRead.Load() }

var _ Capture = (*MockCapture)(nil)

// Scheduled is one Play call recorded by MockPlayback.
type Scheduled struct {
	Chunk Chunk
	At    time.Duration
}

// MockPlayback is a Playback with a manual clock. Chunks are recorded, not
// played.
type MockPlayback struct {
	cfg   Config
	trace func(string)

	mu        sync.Mutex
	wall      bool
	start     time.Time
	now       time.Duration
	scheduled []Scheduled
	active    int
	stops     int
	closed    bool
}

// NewMockPlayback creates a mock speaker whose clock starts at zero.
func NewMockPlayback(cfg Config, opts ...MockOption) *MockPlayback {
	o := applyMockOptions(opts)
	return &MockPlayback{
		cfg:   cfg,
		trace: o.trace,
		wall:  o.wallClock,
		start: time.Now(),
	}
}

// Now returns the clock position.
func (p *MockPlayback) Now() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nowLocked()
}

func (p *MockPlayback) nowLocked() time.Duration {
	if p.wall {
		return time.Since(p.start)
	}
	return p.now
}

// Advance moves the manual clock forward.
func (p *MockPlayback) Advance(d time.Duration) {
	p.mu.Lock()
	p.now += d
	p.mu.Unlock()
}

// Play records the chunk and its start time.
func (p *MockPlayback) Play(c Chunk, at time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	p.scheduled = append(p.scheduled, Scheduled{Chunk: c, At: at})
	p.active++
	return nil
}

// StopAll forgets every active chunk.
func (p *MockPlayback) StopAll() {
	p.mu.Lock()
	p.active = 0
	p.stops++
	p.mu.Unlock()
	p.trace("playback.stop_all")
}

// Close releases the mock. Further Play calls fail.
func (p *MockPlayback) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.active = 0
	p.mu.Unlock()
	p.trace("playback.close")
	return nil
}

// Scheduled returns every recorded Play call in order.
func (p *MockPlayback) Scheduled() []Scheduled {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Scheduled, len(p.scheduled))
	copy(out, p.scheduled)
	return out
}

// Active returns how many chunks were scheduled since the last StopAll.
func (p *MockPlayback) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Stops returns how many times StopAll was called.
func (p *MockPlayback) Stops() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

// Closed reports whether Close was called.
func (p *MockPlayback) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

var _ Playback = (*MockPlayback)(nil)

// MockDevices hands out fixed mock capabilities. A non-nil CaptureErr or
// PlaybackErr makes the corresponding Open fail.
type MockDevices struct {
	Capture     *MockCapture
	Playback    *MockPlayback
	CaptureErr  error
	PlaybackErr error
}

// NewMockDevices creates devices with a push-driven capture and a manual clock.
func NewMockDevices(opts ...MockOption) *MockDevices {
	return &MockDevices{
		Capture:  NewMockCapture(CaptureConfig(), nil, opts...),
		Playback: NewMockPlayback(PlaybackConfig(), opts...),
	}
}

// OpenCapture returns d.Capture.
func (d *MockDevices) OpenCapture(ctx context.Context, cfg Config) (Capture, error) {
	if d.CaptureErr != nil {
		return nil, d.CaptureErr
	}
	return d.Capture, nil
}

// OpenPlayback returns d.Playback.
func (d *MockDevices) OpenPlayback(ctx context.Context, cfg Config) (Playback, error) {
	if d.PlaybackErr != nil {
		return nil, d.PlaybackErr
	}
	return d.Playback, nil
}

var _ Devices = (*MockDevices)(nil)
