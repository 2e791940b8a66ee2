// Package bootstrap assembles the record client stack from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/joeyportfolio/portfolio/config"
	"github.com/joeyportfolio/portfolio/internal/realtime"
	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/internal/store/memstore"
	"github.com/joeyportfolio/portfolio/internal/store/postgres"
	"github.com/joeyportfolio/portfolio/internal/store/sqlite"
	"github.com/joeyportfolio/portfolio/internal/store/supabase"
	"github.com/joeyportfolio/portfolio/logger"
	"github.com/redis/go-redis/v9"
)

const connectTimeout = 10 * time.Second

// Stack is the record client the rest of the process uses. Subscriptions on
// Client share one upstream change feed.
type Stack struct {
	Client *realtime.Multiplexer
	// Redis is set only when the realtime driver is redis.
	Redis *redis.Client
}

// Close releases the client and the Redis connection.
func (s *Stack) Close() error {
	err := s.Client.Close()
	if s.Redis != nil {
		if rerr := s.Redis.Close(); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}

// OpenRecordClient opens the configured store and wraps it for realtime
// fan-out.
func OpenRecordClient(ctx context.Context, cfg *config.Config) (*Stack, error) {
	base, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var client store.RecordClient = base
	stack := &Stack{}
	if cfg.Realtime.Driver == config.RealtimeDriverRedis {
		rdb, err := config.InitRedis(ctx, &cfg.Redis)
		if err != nil {
			_ = base.Close()
			return nil, err
		}
		stack.Redis = rdb
		client = realtime.NewRedisRelay(base, rdb, realtime.RelayConfig{
			Channel:    cfg.Realtime.RedisChannel,
			BufferSize: cfg.Realtime.BufferSize,
		})
	}

	stack.Client = realtime.NewMultiplexer(client, cfg.Realtime.BufferSize)

	logger.GetLogger().Infow("Record client ready",
		"store", cfg.Store.Driver,
		"realtime", cfg.Realtime.Driver)
	return stack, nil
}

// OpenStore opens the bare store selected by cfg.Store.Driver.
func OpenStore(ctx context.Context, cfg *config.Config) (store.RecordClient, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		lifetime, err := time.ParseDuration(cfg.Database.ConnMaxLife)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFE: %w", err)
		}
		s, err := postgres.Open(ctx, cfg.Database.URL(), postgres.PoolConfig{
			MaxConns:        int32(cfg.Database.MaxConnections),
			MinConns:        int32(cfg.Database.MinConnections),
			MaxConnLifetime: lifetime,
			ConnectTimeout:  connectTimeout,
		})
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.StoreDriverSupabase:
		s, err := supabase.New(supabase.Config{
			URL:         cfg.Supabase.URL,
			AnonKey:     cfg.Supabase.AnonKey,
			HTTPTimeout: connectTimeout,
		})
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.StoreDriverSQLite:
		s, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.StoreDriverMemory, "":
		return memstore.New(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
