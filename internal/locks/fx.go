package locks

import (
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/tokomart/tokomart/internal/config"
)

func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

var Module = fx.Module("locks",
	fx.Provide(newRedisClient),
	fx.Provide(NewLocker),
)
