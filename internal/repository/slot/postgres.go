package slot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"storefront-cart/internal/domain"
)

// ChangeChannel is the LISTEN/NOTIFY channel written to on every save. The
// notification payload is the slot key.
const ChangeChannel = "cart_slot_changed"

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Postgres is the shared backend; it expects the cart_slots migration to be
// applied.
type Postgres interface {
	Repository
	Watcher
	Pinger
}

func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) Postgres {
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Load(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT payload FROM cart_slots WHERE key = $1`
	var payload string
	if err := r.pool.QueryRow(ctx, q, key).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return []byte(payload), nil
}

func (r *postgresRepo) Save(ctx context.Context, key string, payload []byte) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
INSERT INTO cart_slots (key, payload, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
`, key, string(payload)); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, ChangeChannel, key); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Watch holds one pooled connection in LISTEN mode until ctx is done.
func (r *postgresRepo) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen conn: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ChangeChannel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", ChangeChannel, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		// A connection left mid-wait must not return to the pool.
		defer func() {
			conn.Conn().Close(context.Background())
			conn.Release()
		}()
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					r.logger.Warn().Err(err).Str("channel", ChangeChannel).Msg("slot listener stopped")
				}
				return
			}
			if n.Payload == key {
				signal(out)
			}
		}
	}()
	return out, nil
}

func (r *postgresRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
