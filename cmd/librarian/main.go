// librarian serves the library catalog assistant over HTTP and WebSocket.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-librarian/internal/config"
	"github.com/teslashibe/go-librarian/internal/log"
	"github.com/teslashibe/go-librarian/pkg/librarian"
)

type flags struct {
	port      string
	catalog   string
	watchlist string
	debug     bool
}

func main() {
	var f flags
	flag.StringVar(&f.port, "port", "", "HTTP port (overrides PORT)")
	flag.StringVar(&f.catalog, "catalog", "", "Catalog file (.yaml, .toml, .json); empty uses the built-in dataset")
	flag.StringVar(&f.watchlist, "watchlist", "", "Watchlist backend: json, sqlite, redis (overrides WATCHLIST_BACKEND)")
	flag.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if err := run(f); err != nil {
		log.Error("librarian stopped", "error", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if f.port != "" {
		cfg.Port = f.port
	}
	if f.catalog != "" {
		cfg.Catalog.Path = f.catalog
	}
	if f.watchlist != "" {
		cfg.Watchlist.Backend = f.watchlist
	}
	if f.debug {
		cfg.LogLevel = "debug"
	}
	log.Init(cfg.LogLevel, cfg.IsProduction())

	if err := cfg.Validate(); err != nil {
		return err
	}
	log.Debug("configuration loaded",
		"env", cfg.Env,
		"port", cfg.Port,
		"catalog", cfg.Catalog.Path,
		"watchlist", cfg.Watchlist.Backend,
		"keys", len(cfg.Google.Keys()),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := librarian.New(ctx, cfg, librarian.WithLogger(log.L()))
	if err != nil {
		return err
	}
	defer func() {
		log.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			log.Warn("shutdown", "error", err)
		}
	}()

	return app.Run(ctx)
}
