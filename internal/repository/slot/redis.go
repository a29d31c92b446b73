package slot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"storefront-cart/internal/domain"
)

const redisNamespace = "storefront:cart"

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Publish(context.Context, string, any) *redis.IntCmd
}

type subscriber interface {
	Subscribe(context.Context, ...string) *redis.PubSub
}

// Redis stores each slot under storefront:cart:<key> and announces writes on
// storefront:cart:<key>:changed.
type Redis struct {
	store  cmdable
	subs   subscriber
	raw    *redis.Client
	logger zerolog.Logger
}

// NewRedis parses url, verifies connectivity and returns the backend.
func NewRedis(ctx context.Context, url string, logger zerolog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{store: raw, subs: raw, raw: raw, logger: logger}, nil
}

func dataKey(key string) string {
	return redisNamespace + ":" + key
}

func changeChannel(key string) string {
	return dataKey(key) + ":changed"
}

func (r *Redis) Load(ctx context.Context, key string) ([]byte, error) {
	payload, err := r.store.Get(ctx, dataKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (r *Redis) Save(ctx context.Context, key string, payload []byte) error {
	if err := r.store.Set(ctx, dataKey(key), payload, 0).Err(); err != nil {
		return err
	}
	if err := r.store.Publish(ctx, changeChannel(key), key).Err(); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("slot change not published")
	}
	return nil
}

func (r *Redis) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	if r.subs == nil {
		return nil, errors.New("redis client not initialized")
	}
	ps := r.subs.Subscribe(ctx, changeChannel(key))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", changeChannel(key), err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				signal(out)
			}
		}
	}()
	return out, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	if r.store == nil {
		return errors.New("redis client not initialized")
	}
	return r.store.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if r.raw == nil {
		return nil
	}
	return r.raw.Close()
}
