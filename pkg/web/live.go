package web

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-librarian/pkg/audioio"
	"github.com/teslashibe/go-librarian/pkg/hub"
	"github.com/teslashibe/go-librarian/pkg/live"
)

// handleLiveWS runs one live voice session for the lifetime of the socket.
// The optional rate query parameter gives the microphone sample rate.
func (s *Server) handleLiveWS(c *websocket.Conn) {
	rate := audioio.CaptureRate
	if v := c.Query("rate"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rate = n
		}
	}
	s.serveLive(c, rate)
}

func (s *Server) serveLive(conn wsConn, rate int) {
	logger := s.logger.With("session", "live")
	b := newBridge(conn, rate, logger)
	mgr := live.NewManager(s.deps.Pool, s.deps.Dialer, b, s.deps.Setup, live.WithLogger(s.deps.Logger))

	ended := make(chan struct{})
	var endOnce sync.Once
	mgr.OnStatus(func(st live.Status) {
		if err := s.statusHub.BroadcastJSON(statusFrame{Type: "status", Status: st}); err != nil {
			logger.Debug("status broadcast failed", "error", err)
		}
		b.sendStatus(st)
		if st.State == live.StateClosed || st.State == live.StateError {
			endOnce.Do(func() { close(ended) })
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer conn.Close()

		if err := mgr.Connect(ctx); err != nil {
			logger.Warn("live connect failed", "error", err)
			return
		}
		select {
		case <-ctx.Done():
		case <-ended:
		}
		mgr.Disconnect()
	}()

	// The socket is read only here; the reader ends when the browser hangs
	// up, sends a close frame, or the session goroutine closes the socket.
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if mt == websocket.BinaryMessage {
			b.push(data)
			continue
		}
		var ctl controlFrame
		if json.Unmarshal(data, &ctl) == nil && ctl.Type == "close" {
			break
		}
	}

	cancel()
	<-done
	logger.Info("live socket closed", "state", mgr.State())
}

// handleStatusWS subscribes the socket to live status broadcasts.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	hub.NewClient(s.statusHub, c).Run()
}
