package slot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"storefront-cart/internal/config"
	"storefront-cart/internal/db"
	"storefront-cart/internal/migrate"
)

// Backend is an opened slot plus its optional capabilities.
type Backend struct {
	Name    string
	Repo    Repository
	Watcher Watcher
	Pinger  Pinger
	closers []func()
}

// Close releases connections held by the backend.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// Open builds the backend selected by cfg.Backend. The postgres backend
// applies the embedded migrations before use.
func Open(ctx context.Context, cfg config.SlotConfig, logger zerolog.Logger) (*Backend, error) {
	b := &Backend{Name: cfg.Backend}
	switch cfg.Backend {
	case config.BackendMemory:
		repo := NewMemory()
		b.Repo, b.Watcher, b.Pinger = repo, repo, repo

	case config.BackendFile:
		repo, err := NewFile(cfg.Dir, logger)
		if err != nil {
			return nil, err
		}
		b.Repo, b.Watcher, b.Pinger = repo, repo, repo

	case config.BackendSQLite:
		repo, err := NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.Repo, b.Pinger = repo, repo
		b.closers = append(b.closers, func() { repo.Close() })

	case config.BackendPostgres:
		pool, err := db.Connect(ctx, cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		if err := migrate.Apply(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		repo := NewPostgres(pool, logger)
		b.Repo, b.Watcher, b.Pinger = repo, repo, repo
		b.closers = append(b.closers, pool.Close)

	case config.BackendRedis:
		repo, err := NewRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		b.Repo, b.Watcher, b.Pinger = repo, repo, repo
		b.closers = append(b.closers, func() { repo.Close() })

	default:
		return nil, fmt.Errorf("unknown slot backend %q", cfg.Backend)
	}

	logger.Info().Str("backend", b.Name).Msg("cart slot ready")
	return b, nil
}
