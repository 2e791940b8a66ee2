package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/logger"
	"go.uber.org/zap"
)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("realtime multiplexer closed")

// Multiplexer is a RecordClient that shares one upstream subscription
// between all of its subscribers. The upstream is opened by the first
// Subscribe and closed when the last subscriber leaves.
type Multiplexer struct {
	store.RecordClient

	mu       sync.Mutex
	fanout   *Broadcaster
	upstream store.Subscription
	pumpDone chan struct{}
	refs     int
	gen      uint64
	closed   bool
	log      *zap.SugaredLogger
}

// NewMultiplexer wraps client.
func NewMultiplexer(client store.RecordClient, bufferSize int) *Multiplexer {
	return &Multiplexer{
		RecordClient: client,
		fanout:       NewBroadcaster("multiplexer", bufferSize),
		log:          logger.GetLogger().Named("realtime_mux"),
	}
}

type muxSubscription struct {
	store.Subscription
	m    *Multiplexer
	gen  uint64
	once sync.Once
}

func (s *muxSubscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.Subscription.Close()
		s.m.release(s.gen)
	})
	return err
}

// Subscribe attaches a new subscriber, opening the upstream if needed.
func (m *Multiplexer) Subscribe(ctx context.Context) (store.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, store.NewError(store.KindNetwork, "subscribe", ErrClosed)
	}
	if m.upstream == nil {
		// The upstream outlives the caller that happened to open it.
		up, err := m.RecordClient.Subscribe(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		m.upstream = up
		m.pumpDone = make(chan struct{})
		go m.pump(up, m.pumpDone)
		m.log.Infow("Upstream feedback subscription opened")
	}

	m.refs++
	return &muxSubscription{Subscription: m.fanout.Subscribe(), m: m, gen: m.gen}, nil
}

func (m *Multiplexer) pump(up store.Subscription, done chan struct{}) {
	defer close(done)

	for fb := range up.Events() {
		m.fanout.Publish(fb)
	}

	m.mu.Lock()
	if m.upstream != up {
		m.mu.Unlock()
		return
	}
	// The upstream ended on its own. Subscribers see their channels close
	// and the next Subscribe opens a fresh upstream.
	m.log.Warnw("Upstream feedback subscription ended unexpectedly")
	m.upstream = nil
	m.refs = 0
	m.gen++
	m.fanout.CloseAll()
	m.mu.Unlock()

	if err := up.Close(); err != nil {
		m.log.Debugw("Closing ended upstream subscription", "error", err)
	}
}

func (m *Multiplexer) release(gen uint64) {
	m.mu.Lock()
	if gen != m.gen {
		// Attached to an upstream that has already been torn down.
		m.mu.Unlock()
		return
	}
	m.refs--
	if m.refs > 0 || m.upstream == nil {
		m.mu.Unlock()
		return
	}
	up, done := m.upstream, m.pumpDone
	m.upstream = nil
	m.mu.Unlock()

	if err := up.Close(); err != nil {
		m.log.Warnw("Failed to close upstream feedback subscription", "error", err)
	}
	<-done
	m.log.Infow("Upstream feedback subscription closed")
}

// Subscribers returns the number of attached subscribers.
func (m *Multiplexer) Subscribers() int {
	return m.fanout.Len()
}

// Close tears down the upstream, every subscriber, and the wrapped client.
func (m *Multiplexer) Close() error {
	m.mu.Lock()
	up, done := m.upstream, m.pumpDone
	m.upstream = nil
	m.refs = 0
	m.gen++
	m.closed = true
	m.mu.Unlock()

	if up != nil {
		_ = up.Close()
		<-done
	}
	m.fanout.CloseAll()
	return m.RecordClient.Close()
}

var _ store.RecordClient = (*Multiplexer)(nil)
