package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-librarian/pkg/audioio"
	"github.com/teslashibe/go-librarian/pkg/live"
)

// captureQueue bounds microphone frames waiting for the live manager.
const captureQueue = 32

// wsConn is the part of a websocket connection the bridge uses.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Frames sent to the browser.
type audioFrame struct {
	Type  string  `json:"type"`
	Start float64 `json:"start"`
	Rate  int     `json:"rate"`
	Data  string  `json:"data"`
}

type controlFrame struct {
	Type string `json:"type"`
}

type statusFrame struct {
	Type string `json:"type"`
	live.Status
}

// bridge exposes a browser tab as the audio devices of one live session.
// Binary frames from the browser are PCM16 microphone audio; playback is
// forwarded as JSON frames carrying the scheduled start time, which the
// browser plays on its own audio clock.
type bridge struct {
	conn   wsConn
	rate   int
	logger *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	capture *bridgeCapture
}

func newBridge(conn wsConn, rate int, logger *slog.Logger) *bridge {
	return &bridge{conn: conn, rate: rate, logger: logger}
}

// OpenCapture starts accepting microphone frames.
func (b *bridge) OpenCapture(_ context.Context, cfg audioio.Config) (audioio.Capture, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &bridgeCapture{
		rate:   b.rate,
		frames: make(chan audioio.Chunk, captureQueue),
		done:   make(chan struct{}),
	}
	b.mu.Lock()
	b.capture = c
	b.mu.Unlock()
	return c, nil
}

// OpenPlayback starts a playback clock at zero.
func (b *bridge) OpenPlayback(_ context.Context, cfg audioio.Config) (audioio.Playback, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &bridgePlayback{b: b, start: time.Now()}, nil
}

// push hands a microphone frame to the open capture. Frames arriving before
// the capture opens, or while the queue is full, are dropped.
func (b *bridge) push(data []byte) {
	b.mu.Lock()
	c := b.capture
	b.mu.Unlock()
	if c == nil {
		return
	}
	if !c.push(audioio.ChunkFromBytes(data, c.rate, 1)) {
		b.logger.Debug("microphone frame dropped")
	}
}

func (b *bridge) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

func (b *bridge) sendStatus(st live.Status) {
	if err := b.writeJSON(statusFrame{Type: "status", Status: st}); err != nil {
		b.logger.Debug("status write failed", "error", err)
	}
}

type bridgeCapture struct {
	rate   int
	frames chan audioio.Chunk
	done   chan struct{}
	once   sync.Once
}

func (c *bridgeCapture) push(chunk audioio.Chunk) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.frames <- chunk:
		return true
	default:
		return false
	}
}

func (c *bridgeCapture) Read(ctx context.Context) (audioio.Chunk, error) {
	select {
	case <-ctx.Done():
		return audioio.Chunk{}, ctx.Err()
	case <-c.done:
		return audioio.Chunk{}, audioio.ErrClosed
	case chunk := <-c.frames:
		return chunk, nil
	}
}

// Release stops accepting frames from the browser.
func (c *bridgeCapture) Release() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

// Close has no context of its own to close beyond the frame queue.
func (c *bridgeCapture) Close() error {
	return c.Release()
}

type bridgePlayback struct {
	b      *bridge
	start  time.Time
	closed atomic.Bool
}

func (p *bridgePlayback) Now() time.Duration {
	return time.Since(p.start)
}

func (p *bridgePlayback) Play(chunk audioio.Chunk, at time.Duration) error {
	if p.closed.Load() {
		return audioio.ErrClosed
	}
	return p.b.writeJSON(audioFrame{
		Type:  "audio",
		Start: at.Seconds(),
		Rate:  chunk.SampleRate,
		Data:  chunk.Base64(),
	})
}

func (p *bridgePlayback) StopAll() {
	if p.closed.Load() {
		return
	}
	if err := p.b.writeJSON(controlFrame{Type: "stop"}); err != nil {
		p.b.logger.Debug("stop write failed", "error", err)
	}
}

func (p *bridgePlayback) Close() error {
	p.closed.Store(true)
	return nil
}

var (
	_ audioio.Devices  = (*bridge)(nil)
	_ audioio.Capture  = (*bridgeCapture)(nil)
	_ audioio.Playback = (*bridgePlayback)(nil)
)
