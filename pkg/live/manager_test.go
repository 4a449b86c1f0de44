package live

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-librarian/pkg/audioio"
	"github.com/teslashibe/go-librarian/pkg/credential"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.events = append(r.events, s)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fixture struct {
	manager *Manager
	dialer  *MockDialer
	devices *audioio.MockDevices
	trace   *recorder
}

func newFixture(t *testing.T, keys []string, fail map[string]error) *fixture {
	t.Helper()
	rec := &recorder{}
	devices := audioio.NewMockDevices(audioio.WithTrace(rec.add))
	dialer := &MockDialer{Fail: fail, Trace: rec.add}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	m := NewManager(credential.New(keys...), dialer, devices,
		Setup{Model: DefaultModel, Voice: DefaultVoice, SystemInstruction: "be brief"},
		WithLogger(logger))
	t.Cleanup(m.Disconnect)

	return &fixture{manager: m, dialer: dialer, devices: devices, trace: rec}
}

func (f *fixture) connect(t *testing.T) *MockConn {
	t.Helper()
	require.NoError(t, f.manager.Connect(context.Background()))
	require.Equal(t, StateStreaming, f.manager.State())
	conn := f.dialer.Conn()
	require.NotNil(t, conn)
	return conn
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond, msg)
}

func TestConnectEmptyPool(t *testing.T) {
	f := newFixture(t, nil, nil)

	err := f.manager.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.Equal(t, StateError, f.manager.State())
	assert.Empty(t, f.dialer.Keys(), "no connection attempted")
	assert.False(t, f.devices.Capture.Closed(), "devices never opened")
	assert.Equal(t, MsgNoKeys, f.manager.Status().Error)
}

func TestConnectAllKeysFail(t *testing.T) {
	keys := []string{"k1", "k2", "k3"}
	rejected := errors.New("API key not valid")
	f := newFixture(t, keys, map[string]error{"k1": rejected, "k2": rejected, "k3": rejected})

	err := f.manager.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllCredentialsFailed)
	assert.ErrorIs(t, err, rejected)

	var ce *ConnectError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 3, ce.Attempts)

	dialed := f.dialer.Keys()
	require.Len(t, dialed, 3)
	assert.ElementsMatch(t, keys, dialed, "each key tried exactly once")
	start := int(dialed[0][1] - '1')
	for i, k := range dialed {
		assert.Equal(t, keys[(start+i)%3], k, "keys tried in rotation order")
	}

	assert.Equal(t, StateError, f.manager.State())
	assert.ErrorIs(t, f.manager.LastError(), ErrAllCredentialsFailed)
	assert.Equal(t, "فشل الاتصال: "+MsgAllKeysFailed, f.manager.Status().Error)
	assert.True(t, f.devices.Capture.Released(), "microphone released")
	assert.True(t, f.devices.Capture.Closed())
	assert.True(t, f.devices.Playback.Closed())
}

func TestConnectRotatesToWorkingKey(t *testing.T) {
	f := newFixture(t, []string{"k1", "k2"}, map[string]error{"k1": errors.New("quota")})
	f.connect(t)

	dialed := f.dialer.Keys()
	assert.Equal(t, "k2", dialed[len(dialed)-1])
	assert.LessOrEqual(t, len(dialed), 2)
	assert.Equal(t, "be brief", f.dialer.LastSetup().SystemInstruction)
	assert.NoError(t, f.manager.LastError())
}

func TestConnectWhileActive(t *testing.T) {
	f := newFixture(t, []string{"k1"}, nil)
	f.connect(t)

	assert.ErrorIs(t, f.manager.Connect(context.Background()), ErrAlreadyConnected)
	assert.Len(t, f.dialer.Keys(), 1)
}

func TestConnectDeviceFailure(t *testing.T) {
	f := newFixture(t, []string{"k1"}, nil)
	f.devices.CaptureErr = errors.New("permission denied")

	err := f.manager.Connect(context.Background())
	assert.EqualError(t, err, "permission denied")
	assert.Equal(t, StateError, f.manager.State())
	assert.Empty(t, f.dialer.Keys())
	assert.Equal(t, "فشل الاتصال: permission denied", f.manager.Status().Error)
}

func TestPlaybackScheduling(t *testing.T) {
	f := newFixture(t, []string{"k1"}, nil)
	f.devices.Playback.Advance(time.Second)
	conn := f.connect(t)
	pb := f.devices.Playback

	conn.Emit(Event{Type: EventAudio, Audio: speech(500 * time.Millisecond)})
	conn.Emit(Event{Type: EventAudio, Audio: speech(300 * time.Millisecond)})
	eventually(t, func() bool { return len(pb.Scheduled()) == 2 }, "two chunks scheduled")

	got := pb.Scheduled()
	assert.Equal(t, time.Second, got[0].At)
	assert.Equal(t, 1500*time.Millisecond, got[1].At)

	pb.Advance(5 * time.Second)
	conn.Emit(Event{Type: EventAudio, Audio: speech(100 * time.Millisecond)})
	eventually(t, func() bool { return len(pb.Scheduled()) == 3 }, "late chunk scheduled")
	assert.Equal(t, 6*time.Second, pb.Scheduled()[2].At)
}

func TestInterruption(t *testing.T) {
	f := newFixture(t, []string{"k1"}, nil)
	conn := f.connect(t)
	pb := f.devices.Playback

	conn.Emit(Event{Type: EventAudio, Audio: speech(time.Second)})
	conn.Emit(Event{Type: EventAudio, Audio: speech(time.Second)})
	eventually(t, func() bool { return len(pb.Scheduled()) == 2 }, "chunks scheduled")

	pb.Advance(300 * time.Millisecond)
	conn.Emit(Event{Type: EventInterrupted})
	eventually(t, func() bool { return f.manager.State() == StateInterrupted }, "interrupted")
	assert.Equal(t, 1, pb.Stops())
	assert.Equal(t, 0, pb.Active())

	conn.Emit(Event{Type: EventAudio, Audio: speech(time.Second)})
	eventually(t, func() bool { return len(pb.Scheduled()) == 3 }, "new chunk scheduled")
	assert.Equal(t, 300*time.Millisecond, pb.Scheduled()[2].At, "cursor reset to now")
	eventually(t, func() bool { return f.manager.State() == StateStreaming }, "back to streaming")
}

func TestCapturePump(t *testing.T) {
	f := newFixture(t, []string{"k1"}, nil)
	conn := f.connect(t)

	square := make([]int16, 1600)
	for i := range square {
		square[i] = 16384
		if i%2 == 1 {
			square[i] = -16384
		}
	}
	require.NoError(t, f.devices.Capture.Push(audioio.Chunk{Samples: square, SampleRate: audioio.CaptureRate, Channels: 1}))
	eventually(t, func() bool { return len(conn.Sent()) == 1 }, "frame forwarded")
	assert.InDelta(t, 0.5, f.manager.Volume(), 1e-9)

	require.NoError(t, f.devices.Capture.Push(audioio.Chunk{Samples: make([]int16, 4800), SampleRate: 48000, Channels: 1}))
	eventually(t, func() bool { return len(conn.Sent()) == 2 }, "second frame forwarded")
	sent := conn.Sent()[1]
	assert.Equal(t, audioio.CaptureRate, sent.SampleRate)
	assert.Len(t, sent.Samples, 1600)
	assert.Zero(t, f.manager.Volume())
}

func TestDisconnectOrderAndIdempotence(t *testing.T) {
	f := newFixture(t, []string{"k1"}, nil)
	conn := f.connect(t)

	f.manager.Disconnect()
	assert.Equal(t, StateClosed, f.manager.State())
	assert.Equal(t, []string{
		"capture.release",
		"playback.stop_all",
		"playback.close",
		"capture.close",
		"conn.close",
	}, f.trace.list())
	assert.True(t, conn.Closed())
	assert.Zero(t, f.manager.Volume())

	f.manager.Disconnect()
	f.manager.Disconnect()
	assert.Equal(t, StateClosed, f.manager.State())
	assert.Len(t, f.trace.list(), 5, "second teardown is a no-op")
}

func TestDisconnectWithoutSession(t *testing.T) {
	f := newFixture(t, []string{"k1"}, nil)

	f.manager.Disconnect()
	assert.Equal(t, StateClosed, f.manager.State())
	assert.Empty(t, f.trace.list())
}

func TestStreamError(t *testing.T) {
	f := newFixture(t, []string{"k1"}, nil)
	conn := f.connect(t)

	conn.Emit(Event{Type: EventError, Err: errors.New("boom")})
	eventually(t, func() bool { return f.manager.State() == StateError }, "error state")

	assert.EqualError(t, f.manager.LastError(), "boom")
	assert.Equal(t, "خطأ: boom", f.manager.Status().Error)
	assert.True(t, f.devices.Capture.Closed())
	assert.True(t, f.devices.Playback.Closed())
	assert.True(t, conn.Closed())

	f.manager.Disconnect()
	assert.Equal(t, StateClosed, f.manager.State())
	assert.EqualError(t, f.manager.LastError(), "boom", "error kept after disconnect")
	assert.Equal(t, "خطأ: boom", f.manager.Status().Error)
}

func TestDisconnectAfterFailedConnect(t *testing.T) {
	f := newFixture(t, []string{"k1", "k2"}, map[string]error{
		"k1": errors.New("rejected"),
		"k2": errors.New("rejected"),
	})

	err := f.manager.Connect(context.Background())
	require.ErrorIs(t, err, ErrAllCredentialsFailed)
	assert.Equal(t, StateError, f.manager.State())

	f.manager.Disconnect()
	f.manager.Disconnect()
	assert.Equal(t, StateClosed, f.manager.State())
	assert.Equal(t, "فشل الاتصال: "+MsgAllKeysFailed, f.manager.Status().Error)
	assert.ErrorIs(t, f.manager.LastError(), ErrAllCredentialsFailed)
}

func TestServerClose(t *testing.T) {
	f := newFixture(t, []string{"k1"}, nil)
	conn := f.connect(t)

	conn.Emit(Event{Type: EventClosed})
	eventually(t, func() bool { return f.manager.State() == StateClosed }, "closed")
	assert.NoError(t, f.manager.LastError())
	assert.True(t, f.devices.Capture.Closed())
}

func TestStatusListener(t *testing.T) {
	f := newFixture(t, []string{"k1"}, nil)

	var mu sync.Mutex
	var states []State
	f.manager.OnStatus(func(s Status) {
		mu.Lock()
		defer mu.Unlock()
		if len(states) == 0 || states[len(states)-1] != s.State {
			states = append(states, s.State)
		}
	})

	f.connect(t)
	f.manager.Disconnect()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateConnecting, StateStreaming, StateClosed}, states)
}

func TestStateJSON(t *testing.T) {
	text, err := StateInterrupted.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "interrupted", string(text))
	assert.True(t, StateConnecting.Active())
	assert.False(t, StateError.Active())
}
