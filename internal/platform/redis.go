package platform

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/the-monkeys/blogqa/config"
)

// NewRedisClient mirrors the teacher's redis_conn.RedisConn: a pooled
// client, pinged once at startup so a misconfigured address fails the
// process immediately instead of on the first request.
func NewRedisClient(ctx context.Context, cfg config.Redis, log *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("platform: pinging redis: %w", err)
	}

	log.Info("connected to redis", zap.String("addr", cfg.Addr))
	return client, nil
}
