package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/joeyportfolio/portfolio/internal/metrics"
	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/logger"
	"github.com/joeyportfolio/portfolio/types"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Listener is the subset of *pq.Listener used for subscriptions.
type Listener interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Close() error
}

// ListenerFunc opens a new, unsubscribed listener.
type ListenerFunc func() (Listener, error)

// PQListener returns a ListenerFunc backed by lib/pq, which reconnects on
// its own between minReconnect and maxReconnect.
func PQListener(dsn string) ListenerFunc {
	const (
		minReconnect = 2 * time.Second
		maxReconnect = time.Minute
	)
	return func() (Listener, error) {
		log := logger.GetLogger().Named("pg_listener")
		l := pq.NewListener(dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
			switch ev {
			case pq.ListenerEventDisconnected, pq.ListenerEventConnectionAttemptFailed:
				log.Warnw("Notification listener lost its connection", "error", err)
			case pq.ListenerEventReconnected:
				log.Infow("Notification listener reconnected")
			}
		})
		return l, nil
	}
}

// Subscribe starts listening on the insert channel.
func (s *Store) Subscribe(ctx context.Context) (store.Subscription, error) {
	if s.newListener == nil {
		return nil, store.NewError(store.KindUnknown, "subscribe", errors.New("no notification listener configured"))
	}
	if err := ctx.Err(); err != nil {
		return nil, store.NewError(store.KindNetwork, "subscribe", err)
	}

	l, err := s.newListener()
	if err != nil {
		return nil, store.NewError(store.KindNetwork, "subscribe", err)
	}
	// pq quotes the channel name itself.
	if err := l.Listen(s.channel); err != nil {
		_ = l.Close()
		return nil, store.NewError(store.KindNetwork, "subscribe", err)
	}

	sub := &subscription{
		l:      l,
		events: make(chan types.Feedback, s.bufferSize),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		log:    s.log,
	}
	go sub.run()

	s.log.Infow("Listening for feedback inserts", "channel", s.channel)
	return sub, nil
}

type subscription struct {
	l      Listener
	events chan types.Feedback
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
	log    *zap.SugaredLogger
}

func (s *subscription) Events() <-chan types.Feedback {
	return s.events
}

func (s *subscription) run() {
	defer close(s.exited)
	defer close(s.events)

	m := metrics.Get()
	notifications := s.l.NotificationChannel()
	for {
		select {
		case <-s.done:
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			if n == nil {
				// Sent after a reconnect; inserts in the gap are lost.
				s.log.Warnw("Notification listener reconnected, inserts may have been missed")
				continue
			}

			var row types.Feedback
			if err := json.Unmarshal([]byte(n.Extra), &row); err != nil {
				s.log.Warnw("Dropping malformed feedback notification", "error", err)
				continue
			}

			select {
			case s.events <- row:
				m.RealtimeEvents.WithLabelValues("postgres").Inc()
			case <-s.done:
				return
			}
		}
	}
}

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.l.Close()
		<-s.exited
	})
	return err
}
