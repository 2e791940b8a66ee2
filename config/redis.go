package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions converts the config into go-redis options.
func (c *RedisConfig) RedisOptions() *redis.Options {
	opts := &redis.Options{
		Addr:            c.Address,
		Password:        c.Password,
		DB:              c.DB,
		PoolSize:        c.PoolSize,
		MinIdleConns:    c.MinIdleConns,
		ConnMaxLifetime: time.Hour,
	}
	if c.UseTLS {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}
	return opts
}

// InitRedis creates a Redis client and checks that it answers.
func InitRedis(ctx context.Context, c *RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(c.RedisOptions())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}
