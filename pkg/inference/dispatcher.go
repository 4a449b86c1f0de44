package inference

import (
	"context"
	"log/slog"

	"github.com/teslashibe/go-librarian/pkg/catalog"
	"github.com/teslashibe/go-librarian/pkg/credential"
	"github.com/teslashibe/go-librarian/pkg/session"
)

// Dispatcher sends text requests, rotating through the credential pool.
//
// Attempts are strictly sequential: attempt i+1 starts only after attempt i
// has failed. At most Len(pool) attempts are made per Send.
type Dispatcher struct {
	pool   *credential.Pool
	gen    Generator
	cat    *catalog.Catalog
	config *Config
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher. The pool is shared with any other
// consumer the caller hands it to.
func NewDispatcher(pool *credential.Pool, gen Generator, cat *catalog.Catalog, opts ...Option) *Dispatcher {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	return &Dispatcher{
		pool:   pool,
		gen:    gen,
		cat:    cat,
		config: cfg,
		logger: cfg.Logger.With("component", "inference.dispatcher"),
	}
}

// Send issues message with the session's derived context and returns the
// model's reply.
//
// An empty pool fails with ErrNoCredentials without any network call. When
// every key fails, Send returns a *BusyError carrying the last failure.
// Context cancellation stops the loop and returns ctx.Err().
func (d *Dispatcher) Send(ctx context.Context, message string, st session.State) (string, error) {
	if d.pool.Empty() {
		return "", ErrNoCredentials
	}

	req := &GenerateRequest{
		Text:   ComposeTurn(BuildSystemPrompt(d.cat, st), d.config.UserLabel, message),
		Params: d.config.Params,
	}

	attempts := d.pool.Len()
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		key := d.pool.Next()
		resp, err := d.gen.Generate(ctx, key, req)
		if err == nil {
			if attempt > 0 {
				d.logger.Info("request succeeded after rotation",
					"attempt", attempt+1,
					"key", credential.Mask(key),
				)
			}
			return resp.Text, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		lastErr = err
		failure := Classify(err)
		last := attempt == attempts-1

		switch {
		case failure.Rotates():
			d.logger.Warn("key quota or auth failure, rotating",
				"attempt", attempt+1,
				"key", credential.Mask(key),
				"failure", failure.String(),
				"error", err,
			)
			d.pool.Advance()

		case d.config.FailFast && (failure == FailureServer || failure == FailureEmpty):
			d.logger.Error("request failed", "failure", failure.String(), "error", err)
			return "", err

		case !last:
			d.logger.Warn("key failed, trying next",
				"attempt", attempt+1,
				"key", credential.Mask(key),
				"failure", failure.String(),
				"error", err,
			)
			d.pool.Advance()

		default:
			d.logger.Error("last key failed",
				"attempt", attempt+1,
				"failure", failure.String(),
				"error", err,
			)
		}
	}

	return "", &BusyError{Attempts: attempts, Last: lastErr}
}
