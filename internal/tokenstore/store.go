// Package tokenstore persists the Ring refresh token between CLI runs so
// that the password and MFA exchange only happens once.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ringclient/internal/config"
)

// ErrNotFound is returned by Load when no token has been saved.
var ErrNotFound = errors.New("no refresh token stored")

// Store holds a single refresh token.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
	Close() error
}

const pingTimeout = 5 * time.Second

// New opens the backend selected by cfg. The redis backend is pinged so
// that connection problems surface before a login.
func New(ctx context.Context, cfg config.TokenStoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.TokenStoreFile, "":
		return NewFileStore(cfg.Path), nil

	case config.TokenStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return NewRedisStore(client, cfg.Redis.Key, cfg.Redis.TTL), nil

	default:
		return nil, fmt.Errorf("unknown token store backend %q", cfg.Backend)
	}
}
