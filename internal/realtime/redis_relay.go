package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/joeyportfolio/portfolio/internal/metrics"
	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/logger"
	"github.com/joeyportfolio/portfolio/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRedisChannel carries one JSON encoded feedback row per message.
const DefaultRedisChannel = "feedback:inserts"

// RelayConfig holds configuration for RedisRelay.
type RelayConfig struct {
	Channel        string
	PublishTimeout time.Duration
	BufferSize     int
}

// DefaultRelayConfig returns default configuration values.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		Channel:        DefaultRedisChannel,
		PublishTimeout: 5 * time.Second,
		BufferSize:     DefaultBufferSize,
	}
}

// RedisRelay is a RecordClient that announces successful inserts on a Redis
// channel and serves subscriptions from that channel instead of the store's
// own change feed. Every process sharing the Redis instance sees every insert.
type RedisRelay struct {
	store.RecordClient

	rdb    *redis.Client
	config RelayConfig
	log    *zap.SugaredLogger
}

// NewRedisRelay wraps client.
func NewRedisRelay(client store.RecordClient, rdb *redis.Client, cfg ...RelayConfig) *RedisRelay {
	config := DefaultRelayConfig()
	if len(cfg) > 0 {
		config = cfg[0]
	}
	if config.Channel == "" {
		config.Channel = DefaultRedisChannel
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBufferSize
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = 5 * time.Second
	}

	return &RedisRelay{
		RecordClient: client,
		rdb:          rdb,
		config:       config,
		log:          logger.GetLogger().Named("redis_relay"),
	}
}

// Insert stores the row and then publishes it. A failed publish is logged;
// the insert itself has already succeeded and is reported as such.
func (r *RedisRelay) Insert(ctx context.Context, fb types.FeedbackCreate) (types.Feedback, error) {
	row, err := r.RecordClient.Insert(ctx, fb)
	if err != nil {
		return row, err
	}

	if err := r.publish(ctx, row); err != nil {
		r.log.Warnw("Failed to relay feedback insert", "feedbackID", row.ID, "error", err)
	}
	return row, nil
}

func (r *RedisRelay) publish(ctx context.Context, row types.Feedback) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.PublishTimeout)
	defer cancel()

	if err := r.rdb.Publish(ctx, r.config.Channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe opens a Redis pub/sub subscription on the relay channel.
func (r *RedisRelay) Subscribe(ctx context.Context) (store.Subscription, error) {
	pubsub := r.rdb.Subscribe(ctx, r.config.Channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, store.NewError(store.KindNetwork, "subscribe", err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan types.Feedback, r.config.BufferSize),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		log:    r.log,
	}
	go sub.run(pubsub.Channel())
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	events chan types.Feedback
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
	log    *zap.SugaredLogger
}

func (s *redisSubscription) Events() <-chan types.Feedback {
	return s.events
}

func (s *redisSubscription) run(ch <-chan *redis.Message) {
	defer close(s.exited)
	defer close(s.events)

	m := metrics.Get()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var row types.Feedback
			if err := json.Unmarshal([]byte(msg.Payload), &row); err != nil {
				s.log.Warnw("Dropping malformed relayed feedback", "error", err)
				continue
			}
			select {
			case s.events <- row:
				m.RealtimeEvents.WithLabelValues("redis").Inc()
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
		<-s.exited
	})
	return err
}

var _ store.RecordClient = (*RedisRelay)(nil)
