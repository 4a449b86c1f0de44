package inference

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-librarian/internal/httpc"
)

// Defaults for the Gemini text endpoint.
const (
	DefaultBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel     = "gemini-2.0-flash"
	DefaultUserLabel = "User"
)

// Config holds generator and dispatcher configuration.
type Config struct {
	// Connection
	BaseURL    string
	Model      string
	HTTPClient *http.Client

	// Request defaults
	Params GenerationParams

	// Timeout bounds one attempt.
	Timeout time.Duration

	// UserLabel prefixes the user message after the system prompt.
	UserLabel string

	// FailFast stops on server and empty-response errors instead of
	// rotating to the next key. Quota and auth failures always rotate.
	FailFast bool

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring the generator and dispatcher.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithModel sets the text model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithParams overrides the generation parameters.
func WithParams(p GenerationParams) Option {
	return func(c *Config) { c.Params = p }
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithUserLabel sets the label placed before the user's message.
func WithUserLabel(label string) Option {
	return func(c *Config) { c.UserLabel = label }
}

// WithFailFast enables strict rotation: only quota/auth failures rotate.
func WithFailFast(on bool) Option {
	return func(c *Config) { c.FailFast = on }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the text path defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   DefaultBaseURL,
		Model:     DefaultModel,
		Params:    DefaultParams(),
		Timeout:   httpc.DefaultTimeout,
		UserLabel: DefaultUserLabel,
		Logger:    slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.HTTPClient == nil {
		c.HTTPClient = httpc.NewClient(c.Timeout)
	}
}
