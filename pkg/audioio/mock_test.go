package audioio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMockCapturePushRead(t *testing.T) {
	c := NewMockCapture(CaptureConfig(), nil)
	defer c.Close()

	frame := Chunk{Samples: []int16{1, 2, 3}, SampleRate: CaptureRate, Channels: 1}
	if err := c.Push(frame); err != nil {
		t.Fatalf("Push: %v", err)
	}

	got, err := c.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.Samples) != 3 {
		t.Errorf("got %d samples", len(got.Samples))
	}
	if c.FramesRead() != 1 {
		t.Errorf("FramesRead = %d", c.FramesRead())
	}
}

func TestMockCaptureClose(t *testing.T) {
	var trace []string
	c := NewMockCapture(CaptureConfig(), nil, WithTrace(func(s string) { trace = append(trace, s) }))

	done := make(chan error, 1)
	go func() {
		_, err := c.Read(context.Background())
		done <- err
	}()

	c.Close()
	c.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Read after Close: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Read did not unblock on Close")
	}

	if err := c.Push(Chunk{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Push after Close: %v", err)
	}
	if len(trace) != 2 || trace[0] != "capture.release" || trace[1] != "capture.close" {
		t.Errorf("trace = %v", trace)
	}
	if !c.Released() || !c.Closed() {
		t.Errorf("Released = %v, Closed = %v", c.Released(), c.Closed())
	}
}

func TestMockCaptureReleaseKeepsContext(t *testing.T) {
	var trace []string
	c := NewMockCapture(CaptureConfig(), nil, WithTrace(func(s string) { trace = append(trace, s) }))

	c.Release()
	c.Release()
	if _, err := c.Read(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Read after Release: %v", err)
	}
	if c.Closed() {
		t.Error("Release closed the capture context")
	}

	c.Close()
	if len(trace) != 2 || trace[0] != "capture.release" || trace[1] != "capture.close" {
		t.Errorf("trace = %v", trace)
	}
}

func TestMockCaptureReadContext(t *testing.T) {
	c := NewMockCapture(CaptureConfig(), nil)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := c.Read(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Read = %v, want deadline exceeded", err)
	}
}

func TestMockCaptureSineGenerator(t *testing.T) {
	cfg := Config{SampleRate: CaptureRate, Channels: 1, FrameSize: 160}
	c := NewMockCapture(cfg, nil, WithSineWave(440, 0.5), WithInterval(5*time.Millisecond))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	frame, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(frame.Samples) != 160 {
		t.Errorf("got %d samples, want 160", len(frame.Samples))
	}
	if rms := frame.RMS(); rms < 0.2 || rms > 0.5 {
		t.Errorf("sine RMS = %v, want about 0.35", rms)
	}
}

func TestMockPlaybackClock(t *testing.T) {
	p := NewMockPlayback(PlaybackConfig())

	if p.Now() != 0 {
		t.Fatalf("clock starts at %v", p.Now())
	}
	p.Advance(150 * time.Millisecond)
	if p.Now() != 150*time.Millisecond {
		t.Errorf("Now = %v", p.Now())
	}

	chunk := Chunk{Samples: make([]int16, 2400), SampleRate: PlaybackRate, Channels: 1}
	if err := p.Play(chunk, 200*time.Millisecond); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if p.Active() != 1 {
		t.Errorf("Active = %d", p.Active())
	}

	p.StopAll()
	if p.Active() != 0 || p.Stops() != 1 {
		t.Errorf("after StopAll: active=%d stops=%d", p.Active(), p.Stops())
	}
	if len(p.Scheduled()) != 1 || p.Scheduled()[0].At != 200*time.Millisecond {
		t.Errorf("Scheduled = %+v", p.Scheduled())
	}

	p.Close()
	p.Close()
	if !p.Closed() {
		t.Error("Closed = false")
	}
	if err := p.Play(chunk, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Play after Close: %v", err)
	}
}

func TestMockDevicesErrors(t *testing.T) {
	d := NewMockDevices()
	d.CaptureErr = errors.New("permission denied")

	if _, err := d.OpenCapture(context.Background(), CaptureConfig()); err == nil {
		t.Error("expected capture error")
	}
	if _, err := d.OpenPlayback(context.Background(), PlaybackConfig()); err != nil {
		t.Errorf("OpenPlayback: %v", err)
	}
}
