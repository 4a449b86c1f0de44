package watchlist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-librarian/internal/config"
)

// Open builds the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.Watchlist, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendJSON, "":
		return NewJSONStore(cfg.JSONPath, logger)
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case config.BackendRedis:
		rdb, err := DialRedis(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(rdb, DefaultRedisKey, logger), nil
	default:
		return nil, fmt.Errorf("watchlist: unknown backend %q", cfg.Backend)
	}
}
