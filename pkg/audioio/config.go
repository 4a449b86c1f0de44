// Package audioio defines the audio capabilities a live voice session needs:
// a microphone Capture and a clock-driven Playback.
//
// Real devices live outside this package (the browser bridge in pkg/web).
// The mock implementations here drive tests and the live-test command.
package audioio

import (
	"fmt"
	"time"
)

// Sample rates used by Gemini Live.
const (
	CaptureRate  = 16000
	PlaybackRate = 24000

	// DefaultFrameSize matches a 4096-sample script processor buffer.
	DefaultFrameSize = 4096
)

// Config describes one audio context.
type Config struct {
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`
	Channels   int `yaml:"channels" json:"channels"`

	// FrameSize is the number of samples per channel in one capture frame.
	FrameSize int `yaml:"frame_size" json:"frame_size"`
}

// CaptureConfig returns the microphone configuration: 16 kHz mono.
func CaptureConfig() Config {
	return Config{SampleRate: CaptureRate, Channels: 1, FrameSize: DefaultFrameSize}
}

// PlaybackConfig returns the speaker configuration: 24 kHz mono.
func PlaybackConfig() Config {
	return Config{SampleRate: PlaybackRate, Channels: 1, FrameSize: DefaultFrameSize}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("audioio: sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("audioio: channels must be positive, got %d", c.Channels)
	}
	if c.FrameSize <= 0 {
		return fmt.Errorf("audioio: frame_size must be positive, got %d", c.FrameSize)
	}
	return nil
}

// FrameDuration returns how much audio one frame holds.
func (c Config) FrameDuration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.FrameSize) * time.Second / time.Duration(c.SampleRate)
}

// FrameBytes returns the size of one PCM16 frame in bytes.
func (c Config) FrameBytes() int {
	return c.FrameSize * c.Channels * 2
}
