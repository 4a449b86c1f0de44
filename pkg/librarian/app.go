// Package librarian wires the catalog, the credential pool, the text and
// voice paths, the watchlist and the web server into one application.
package librarian

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-librarian/internal/config"
	"github.com/teslashibe/go-librarian/pkg/catalog"
	"github.com/teslashibe/go-librarian/pkg/conversation"
	"github.com/teslashibe/go-librarian/pkg/credential"
	"github.com/teslashibe/go-librarian/pkg/inference"
	"github.com/teslashibe/go-librarian/pkg/live"
	"github.com/teslashibe/go-librarian/pkg/watchlist"
	"github.com/teslashibe/go-librarian/pkg/web"
)

// shutdownTimeout bounds the HTTP server drain on shutdown.
const shutdownTimeout = 5 * time.Second

// Option overrides a collaborator, mostly for tests.
type Option func(*options)

type options struct {
	generator inference.Generator
	dialer    live.Dialer
	store     watchlist.Store
	logger    *slog.Logger
}

// WithGenerator replaces the Gemini text client.
func WithGenerator(g inference.Generator) Option {
	return func(o *options) { o.generator = g }
}

// WithDialer replaces the Gemini Live dialer.
func WithDialer(d live.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithStore replaces the configured watchlist store.
func WithStore(s watchlist.Store) Option {
	return func(o *options) { o.store = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// App owns every component and their lifecycle.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	catalog    *catalog.Catalog
	pool       *credential.Pool
	dispatcher *inference.Dispatcher
	store      watchlist.Store
	chat       *conversation.Controller
	server     *web.Server
}

// New builds the application from cfg. The watchlist store is opened here
// and released by Shutdown.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}

	pool := credential.New(cfg.Google.Keys()...)
	if pool.Empty() {
		o.logger.Warn("no API keys configured, requests will fail until GOOGLE_KEY_1..4 are set")
	}

	inferOpts := []inference.Option{
		inference.WithBaseURL(cfg.Google.BaseURL),
		inference.WithModel(cfg.Google.TextModel),
		inference.WithTimeout(cfg.Google.RequestTimeout),
		inference.WithFailFast(cfg.Google.FailFast),
		inference.WithLogger(o.logger),
	}
	if o.generator == nil {
		o.generator = inference.NewGemini(inferOpts...)
	}
	dispatcher := inference.NewDispatcher(pool, o.generator, cat, inferOpts...)

	if o.store == nil {
		o.store, err = watchlist.Open(ctx, cfg.Watchlist, o.logger)
		if err != nil {
			return nil, fmt.Errorf("open watchlist: %w", err)
		}
	}

	chat := conversation.New(cat, dispatcher, o.store, conversation.WithLogger(o.logger))

	if o.dialer == nil {
		o.dialer = live.NewGeminiDialer(cfg.Google.LiveURL, o.logger)
	}

	server := web.NewServer(web.Deps{
		Catalog: cat,
		Chat:    chat,
		Pool:    pool,
		Dialer:  o.dialer,
		Setup: live.Setup{
			Model:             cfg.Google.LiveModel,
			Voice:             cfg.Google.Voice,
			SystemInstruction: inference.BuildVoiceInstruction(cat),
		},
		Logger:         o.logger,
		RequestTimeout: cfg.Google.RequestTimeout,
	})

	return &App{
		cfg:        cfg,
		logger:     o.logger.With("component", "app"),
		catalog:    cat,
		pool:       pool,
		dispatcher: dispatcher,
		store:      o.store,
		chat:       chat,
		server:     server,
	}, nil
}

func loadCatalog(cfg config.Catalog) (*catalog.Catalog, error) {
	if cfg.Path == "" {
		return catalog.Default()
	}
	cat, err := catalog.Load(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cat, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("librarian starting",
		"books", a.catalog.Len(),
		"keys", a.pool.Len(),
		"watchlist", a.cfg.Watchlist.Backend,
	)

	errc := make(chan error, 1)
	go func() { errc <- a.server.Start(":" + a.cfg.Port) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}

// Shutdown releases the watchlist store.
func (a *App) Shutdown() error {
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("close watchlist: %w", err)
	}
	return nil
}

// Ask sends one message through the text path.
func (a *App) Ask(ctx context.Context, message string) (conversation.Reply, error) {
	return a.chat.Send(ctx, message)
}

// Catalog returns the loaded catalog.
func (a *App) Catalog() *catalog.Catalog {
	return a.catalog
}

// Pool returns the credential pool.
func (a *App) Pool() *credential.Pool {
	return a.pool
}

// Chat returns the conversation controller.
func (a *App) Chat() *conversation.Controller {
	return a.chat
}

// Server returns the web server.
func (a *App) Server() *web.Server {
	return a.server
}
