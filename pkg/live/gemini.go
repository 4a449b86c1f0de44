package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-librarian/pkg/audioio"
)

const (
	// DefaultURL is the Gemini Live BidiGenerateContent endpoint.
	DefaultURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// DefaultModel is the native-audio model used for voice sessions.
	DefaultModel = "models/gemini-2.5-flash-native-audio-preview-09-2025"

	// DefaultVoice is the prebuilt voice.
	DefaultVoice = "Orus"

	uplinkMimeType = "audio/pcm;rate=16000"
)

// GeminiDialer connects to Gemini Live over a WebSocket.
type GeminiDialer struct {
	URL              string
	HandshakeTimeout time.Duration
	SetupTimeout     time.Duration
	WriteTimeout     time.Duration
	Logger           *slog.Logger
}

// NewGeminiDialer returns a dialer for endpoint, or DefaultURL when empty.
func NewGeminiDialer(endpoint string, logger *slog.Logger) *GeminiDialer {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiDialer{
		URL:              endpoint,
		HandshakeTimeout: 10 * time.Second,
		SetupTimeout:     10 * time.Second,
		WriteTimeout:     5 * time.Second,
		Logger:           logger.With("component", "live.gemini"),
	}
}

// Dial opens the socket, sends setup and waits for setupComplete.
func (d *GeminiDialer) Dial(ctx context.Context, key string, setup Setup) (Conn, error) {
	endpoint := d.URL + "?key=" + url.QueryEscape(key)

	dialer := websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}
	ws, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("live: dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("live: dial failed: %w", err)
	}

	if err := d.handshake(ctx, ws, setup); err != nil {
		ws.Close()
		return nil, err
	}

	c := &geminiConn{
		ws:           ws,
		events:       make(chan Event, 32),
		done:         make(chan struct{}),
		writeTimeout: d.WriteTimeout,
		logger:       d.Logger,
	}
	go c.readLoop()
	return c, nil
}

func (d *GeminiDialer) handshake(ctx context.Context, ws *websocket.Conn, setup Setup) error {
	if setup.Voice == "" {
		setup.Voice = DefaultVoice
	}
	if setup.Model == "" {
		setup.Model = DefaultModel
	}

	msg := map[string]any{
		"setup": map[string]any{
			"model": setup.Model,
			"generation_config": map[string]any{
				"response_modalities": []string{"AUDIO"},
				"speech_config": map[string]any{
					"voice_config": map[string]any{
						"prebuilt_voice_config": map[string]any{
							"voice_name": setup.Voice,
						},
					},
				},
			},
			"system_instruction": map[string]any{
				"parts": []map[string]any{
					{"text": setup.SystemInstruction},
				},
			},
		},
	}

	_ = ws.SetWriteDeadline(time.Now().Add(d.WriteTimeout))
	if err := ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("live: send setup: %w", err)
	}

	deadline := time.Now().Add(d.SetupTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = ws.SetReadDeadline(deadline)
	defer ws.SetReadDeadline(time.Time{})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return fmt.Errorf("%w: closed (%d %s)", ErrSetup, ce.Code, ce.Text)
			}
			return fmt.Errorf("%w: %w", ErrSetup, err)
		}

		var sm serverMessage
		if err := json.Unmarshal(data, &sm); err != nil {
			d.Logger.Debug("ignoring unparsable setup reply", "error", err)
			continue
		}
		if sm.SetupComplete != nil {
			return nil
		}
	}
}

// serverMessage is the subset of BidiGenerateContentServerMessage in use.
type serverMessage struct {
	SetupComplete *json.RawMessage `json:"setupComplete"`
	ServerContent *struct {
		ModelTurn *struct {
			Parts []struct {
				Text       string `json:"text"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"modelTurn"`
		Interrupted  bool `json:"interrupted"`
		TurnComplete bool `json:"turnComplete"`
	} `json:"serverContent"`
	GoAway *struct {
		TimeLeft string `json:"timeLeft"`
	} `json:"goAway"`
}

type geminiConn struct {
	ws           *websocket.Conn
	writeMu      sync.Mutex
	writeTimeout time.Duration
	logger       *slog.Logger

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// SendAudio sends one realtime_input media chunk.
func (c *geminiConn) SendAudio(chunk audioio.Chunk) error {
	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}

	msg := map[string]any{
		"realtime_input": map[string]any{
			"media_chunks": []map[string]any{
				{"mime_type": uplinkMimeType, "data": chunk.Base64()},
			},
		},
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("live: send audio: %w", err)
	}
	return nil
}

func (c *geminiConn) Events() <-chan Event {
	return c.events
}

// Close sends a close frame and closes the socket.
func (c *geminiConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *geminiConn) emit(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *geminiConn) readLoop() {
	defer close(c.events)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.emit(Event{Type: EventClosed})
			} else {
				c.emit(Event{Type: EventError, Err: fmt.Errorf("live: read: %w", err)})
			}
			return
		}

		var sm serverMessage
		if err := json.Unmarshal(data, &sm); err != nil {
			c.logger.Warn("failed to parse message", "error", err)
			continue
		}
		for _, ev := range decodeEvents(&sm) {
			if !c.emit(ev) {
				return
			}
		}
	}
}

// decodeEvents turns one server message into events: audio and text parts
// first, then interruption and turn completion.
func decodeEvents(sm *serverMessage) []Event {
	var events []Event
	if sm.GoAway != nil {
		events = append(events, Event{Type: EventText, Text: "server going away in " + sm.GoAway.TimeLeft})
	}

	sc := sm.ServerContent
	if sc == nil {
		return events
	}

	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				chunk, err := audioio.ChunkFromBase64(p.InlineData.Data, rateFromMime(p.InlineData.MimeType), 1)
				if err != nil {
					continue
				}
				events = append(events, Event{Type: EventAudio, Audio: chunk})
			}
			if p.Text != "" {
				events = append(events, Event{Type: EventText, Text: p.Text})
			}
		}
	}
	if sc.Interrupted {
		events = append(events, Event{Type: EventInterrupted})
	}
	if sc.TurnComplete {
		events = append(events, Event{Type: EventTurnComplete})
	}
	return events
}

// rateFromMime reads "rate=N" from a mime type such as
// "audio/pcm;rate=24000", defaulting to the playback rate.
func rateFromMime(mime string) int {
	for _, param := range strings.Split(mime, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if ok && k == "rate" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n
			}
		}
	}
	return audioio.PlaybackRate
}

var _ Dialer = (*GeminiDialer)(nil)
