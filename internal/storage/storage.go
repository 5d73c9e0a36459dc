// Package storage opens the key-value backend selected by configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/angelmondragon/marketplace-cart/pkg/config"
	"github.com/angelmondragon/marketplace-cart/pkg/db"
	"github.com/angelmondragon/marketplace-cart/pkg/kv"
	"github.com/angelmondragon/marketplace-cart/pkg/logger"
	"github.com/angelmondragon/marketplace-cart/pkg/migrate"
	pkgredis "github.com/angelmondragon/marketplace-cart/pkg/redis"
	"go.uber.org/multierr"
)

// Backend bundles the kv store with the connections behind it.
type Backend struct {
	name  string
	store kv.Store
	db    *db.Client
	redis *pkgredis.Client
}

// Open connects the configured backend. SQL backends are migrated first
// when auto-migrate is enabled.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	ctx = logg.WithField(ctx, "backend", cfg.Storage.Backend)

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logg.Warn(ctx, "memory backend selected, cart will not survive restarts")
		return &Backend{name: config.BackendMemory, store: kv.NewMemory()}, nil

	case config.BackendSQLite, config.BackendPostgres:
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, err
		}
		if err := migrate.MaybeRun(ctx, cfg, logg, client); err != nil {
			return nil, multierr.Append(err, client.Close())
		}
		return &Backend{
			name:  cfg.Storage.Backend,
			store: kv.NewSQLStore(client.DB()),
			db:    client,
		}, nil

	case config.BackendRedis:
		client, err := pkgredis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, err
		}
		return &Backend{
			name:  config.BackendRedis,
			store: kv.NewRedisStore(client),
			redis: client,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func (b *Backend) Name() string {
	return b.name
}

// KV returns the store the cart persists through.
func (b *Backend) KV() kv.Store {
	return b.store
}

// DB returns the SQL client, or nil for non-SQL backends.
func (b *Backend) DB() *db.Client {
	return b.db
}

func (b *Backend) Ping(ctx context.Context) error {
	return kv.Ping(ctx, b.store)
}

// Close releases every connection, reporting all failures.
func (b *Backend) Close() error {
	var err error
	if b.db != nil {
		err = multierr.Append(err, b.db.Close())
	}
	if b.redis != nil {
		err = multierr.Append(err, b.redis.Close())
	}
	return err
}
