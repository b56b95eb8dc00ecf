package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mcrud/mcrud/internal/config"
	"github.com/mcrud/mcrud/internal/store"
	"github.com/mcrud/mcrud/internal/store/memstore"
	"github.com/mcrud/mcrud/internal/store/mongostore"
	"github.com/mcrud/mcrud/internal/web/cache"
	"github.com/mcrud/mcrud/internal/web/ratelimit"
)

// rateLimitPrefix namespaces limiter keys in a Redis shared with the cache
const rateLimitPrefix = "mcrud:ratelimit:"

// Open connects the configured store and cache and loads the schema file.
// The returned App must be closed.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := New(cfg, st, logger)
	if closeStore != nil {
		a.OnClose(closeStore)
	}

	c, err := openCache(ctx, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	if c != nil {
		a.UseCache(c)
		a.OnClose(func(context.Context) error { return c.Close() })
	}

	limiter, closeLimiter, err := openRateLimiter(ctx, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	if limiter != nil {
		a.UseRateLimiter(limiter)
		a.OnClose(closeLimiter)
	}

	if err := a.LoadSchemaFile(cfg.Schema.File); err != nil {
		a.Close(ctx)
		return nil, err
	}

	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, func(context.Context) error, error) {
	switch cfg.Store.Driver {
	case "mongo":
		st, err := mongostore.Connect(ctx, cfg.Store.URI, cfg.Store.Database, logger.Named("mongo"))
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case "memory":
		return memstore.New(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	settings := cache.DefaultConfig()
	settings.DefaultTTL = cfg.Cache.TTL

	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryCache(settings), nil
	case "redis":
		c, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Cache:    settings,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, nil
	}
}

func openRateLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func(context.Context) error, error) {
	budget := ratelimit.Config{Requests: cfg.RateLimit.Requests, Window: cfg.RateLimit.Window}

	switch cfg.RateLimit.Backend {
	case "memory":
		tb, err := ratelimit.NewTokenBucket(budget, 2*budget.Window)
		if err != nil {
			return nil, nil, err
		}
		return tb, func(context.Context) error { return tb.Close() }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		l, err := ratelimit.NewRedisLimiter(client, budget, rateLimitPrefix)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return l, func(context.Context) error { return client.Close() }, nil
	default:
		return nil, nil, nil
	}
}
