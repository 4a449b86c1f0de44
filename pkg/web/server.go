// Package web serves the librarian over HTTP: a JSON chat and catalog API,
// a WebSocket audio bridge for live voice sessions, and a status feed.
package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-librarian/pkg/catalog"
	"github.com/teslashibe/go-librarian/pkg/conversation"
	"github.com/teslashibe/go-librarian/pkg/credential"
	"github.com/teslashibe/go-librarian/pkg/hub"
	"github.com/teslashibe/go-librarian/pkg/live"
)

// Deps are the collaborators the server exposes.
type Deps struct {
	Catalog *catalog.Catalog
	Chat    *conversation.Controller
	Pool    *credential.Pool
	Dialer  live.Dialer
	Setup   live.Setup
	Logger  *slog.Logger

	// RequestTimeout bounds one attempt against one key; a chat request
	// gets one such window per pooled key. Zero means 30s.
	RequestTimeout time.Duration
}

// Server is the HTTP server.
type Server struct {
	app    *fiber.App
	deps   Deps
	logger *slog.Logger

	statusHub *hub.Hub
	stopHubs  context.CancelFunc
}

// NewServer builds the Fiber app and routes. Hubs start with Start or
// StartHubs.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 30 * time.Second
	}

	s := &Server{
		deps:      deps,
		logger:    deps.Logger.With("component", "web"),
		statusHub: hub.New("status", deps.Logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Librarian",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)

	api.Get("/catalog", s.handleCatalog)
	api.Get("/catalog/search", s.handleSearch)
	api.Get("/catalog/:id", s.handleBook)

	api.Post("/chat", s.handleChat)
	api.Post("/chat/new", s.handleNewChat)
	api.Get("/chat/messages", s.handleMessages)
	api.Get("/session", s.handleSession)

	api.Get("/watchlist", s.handleWatchlist)
	api.Post("/watchlist", s.handleBookmark)
	api.Delete("/watchlist", s.handleClearWatchlist)
	api.Delete("/watchlist/:id", s.handleRemoveBookmark)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/live", websocket.New(s.handleLiveWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// StatusHub returns the hub that carries live status.
func (s *Server) StatusHub() *hub.Hub {
	return s.statusHub
}

// StartHubs runs the broadcast hubs until Shutdown.
func (s *Server) StartHubs() {
	if s.stopHubs != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopHubs = cancel
	go s.statusHub.Run(ctx)
}

// Start starts the hubs and listens on addr. It blocks.
func (s *Server) Start(addr string) error {
	s.StartHubs()
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the hubs and the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopHubs != nil {
		s.stopHubs()
	}
	return s.app.ShutdownWithContext(ctx)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(errorBody{Error: err.Error()})
}
