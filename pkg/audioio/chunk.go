package audioio

import (
	"encoding/base64"
	"math"
	"time"
)

// Chunk is a block of interleaved PCM16 samples.
type Chunk struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// ChunkFromBytes decodes little-endian PCM16. A trailing odd byte is dropped.
func ChunkFromBytes(data []byte, sampleRate, channels int) Chunk {
	return Chunk{
		Samples:    BytesToSamples(data),
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// ChunkFromBase64 decodes base64 PCM16, the encoding used on the Live wire.
func ChunkFromBase64(s string, sampleRate, channels int) (Chunk, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Chunk{}, err
	}
	return ChunkFromBytes(data, sampleRate, channels), nil
}

// Bytes returns the samples as little-endian PCM16.
func (c Chunk) Bytes() []byte {
	return SamplesToBytes(c.Samples)
}

// Base64 returns the samples as base64 PCM16.
func (c Chunk) Base64() string {
	return base64.StdEncoding.EncodeToString(c.Bytes())
}

// Frames returns the number of sample frames (samples per channel).
func (c Chunk) Frames() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Duration returns the playback length of the chunk.
func (c Chunk) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

// RMS returns the root mean square level in [0, 1].
func (c Chunk) RMS() float64 {
	return RMS(c.Samples)
}

// RMS returns the root mean square of samples normalized to [0, 1].
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
