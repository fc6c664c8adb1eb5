package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/courseshop/pkg/config"
)

const keyPrefix = "courseshop:"

// NewStore picks redis when configured, otherwise an in-process LRU. An
// unreachable redis at start is only logged: lookups degrade to the database
// until it comes back.
func NewStore(lc fx.Lifecycle, cfg *cfgpkg.Config, log *zap.SugaredLogger) (Store, error) {
	if cfg.Cache.RedisAddr == "" {
		log.Infow("cache backend: in-process lru", "size", cfg.Cache.LocalSize)
		return NewMemoryStore(cfg.Cache.LocalSize)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Cache.RedisAddr,
		Password:     cfg.Cache.RedisPassword,
		DB:           cfg.Cache.RedisDB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warnw("redis unavailable, cache lookups will fall back to the database", "addr", cfg.Cache.RedisAddr, "err", err)
				return nil
			}
			log.Infow("cache backend: redis", "addr", cfg.Cache.RedisAddr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return NewRedisStore(client, keyPrefix), nil
}

var Module = fx.Options(
	fx.Provide(NewStore),
)
