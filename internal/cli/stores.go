package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"quizgen/internal/app"
	"quizgen/internal/config"
	"quizgen/internal/infra/memory"
	mongostore "quizgen/internal/infra/mongo"
	pgstore "quizgen/internal/infra/postgres"
	rediscache "quizgen/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 10 * time.Minute

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Development() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// backend is an opened store plus the connections to release on exit.
type backend struct {
	stores  app.Stores
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openStores connects the configured driver. withCache wraps the quiz store
// in the redis cache when redis is configured, or the in-process one.
func openStores(ctx context.Context, cfg config.Config, log *slog.Logger, withCache bool) (*backend, error) {
	b := &backend{}
	switch cfg.Store.Driver {
	case config.DriverMemory:
		b.stores = memory.NewStore().Stores()
	case config.DriverPostgres:
		if cfg.Postgres.URL == "" {
			return nil, fmt.Errorf("postgres url not configured")
		}
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		b.stores = pgstore.NewStore(pool).Stores()
	case config.DriverMongo:
		if cfg.Mongo.URI == "" {
			return nil, fmt.Errorf("mongo uri not configured")
		}
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Disconnect(context.Background()) })
		store := mongostore.NewStore(client.Database(cfg.Mongo.Database))
		if err := store.EnsureIndexes(ctx); err != nil {
			b.Close()
			return nil, err
		}
		b.stores = store.Stores()
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if !withCache {
		return b, nil
	}
	ttl := config.TTLDuration(cfg.Quiz.CacheTTL, defaultCacheTTL)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.stores.Quizzes = rediscache.NewQuizCache(client, b.stores.Quizzes, ttl, log)
	} else {
		b.stores.Quizzes = memory.NewQuizCache(b.stores.Quizzes, ttl)
	}
	log.Info("store ready", "driver", cfg.Store.Driver, "cache_ttl", ttl, "redis", cfg.Redis.Addr != "")
	return b, nil
}
