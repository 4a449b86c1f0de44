// live-test opens a Gemini Live voice session fed by a synthetic tone and
// reports the state changes and the audio scheduled for playback.
//
// Nothing is played: playback uses a wall clock and discards audio.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/teslashibe/go-librarian/internal/config"
	"github.com/teslashibe/go-librarian/internal/log"
	"github.com/teslashibe/go-librarian/pkg/audioio"
	"github.com/teslashibe/go-librarian/pkg/catalog"
	"github.com/teslashibe/go-librarian/pkg/credential"
	"github.com/teslashibe/go-librarian/pkg/inference"
	"github.com/teslashibe/go-librarian/pkg/live"
)

func main() {
	duration := flag.Duration("duration", 15*time.Second, "How long to keep the session open")
	tone := flag.Float64("tone", 440, "Microphone test tone in Hz (0 for silence)")
	voice := flag.String("voice", "", "Prebuilt voice name (overrides GOOGLE_LIVE_VOICE)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Init(level, cfg.IsProduction())
	logger := log.Component("live-test")
	if *voice != "" {
		cfg.Google.Voice = *voice
	}

	cat, err := catalog.Default()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Catalog: %v\n", err)
		os.Exit(1)
	}

	devices := audioio.NewMockDevices(
		audioio.WithSineWave(*tone, 0.3),
		audioio.WithInterval(audioio.CaptureConfig().FrameDuration()),
		audioio.WithWallClock(),
	)
	mgr := live.NewManager(
		credential.New(cfg.Google.Keys()...),
		live.NewGeminiDialer(cfg.Google.LiveURL, logger),
		devices,
		live.Setup{
			Model:             cfg.Google.LiveModel,
			Voice:             cfg.Google.Voice,
			SystemInstruction: inference.BuildVoiceInstruction(cat),
		},
		live.WithLogger(logger),
	)

	var (
		mu   sync.Mutex
		last live.State = -1
	)
	mgr.OnStatus(func(st live.Status) {
		mu.Lock()
		defer mu.Unlock()
		if st.State == last {
			return
		}
		last = st.State
		fmt.Printf("🔄 %s", st.State)
		if st.Error != "" {
			fmt.Printf(" (%s)", st.Error)
		}
		fmt.Println()
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("🎤 Connecting with %d key(s)...\n", len(cfg.Google.Keys()))
	if err := mgr.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	select {
	case <-ctx.Done():
	case <-time.After(*duration):
	}
	mgr.Disconnect()

	var speech time.Duration
	scheduled := devices.Playback.Scheduled()
	for _, s := range scheduled {
		speech += s.Chunk.Duration()
	}
	fmt.Printf("📊 microphone frames sent: %d, speech chunks: %d (%.1fs), interruptions: %d\n",
		devices.Capture.FramesRead(), len(scheduled), speech.Seconds(), devices.Playback.Stops()-1)
}
