// Package realtime fans inserted feedback rows out to live views.
package realtime

import (
	"sync"

	"github.com/joeyportfolio/portfolio/internal/metrics"
	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/logger"
	"github.com/joeyportfolio/portfolio/types"
	"go.uber.org/zap"
)

// DefaultBufferSize is the per-subscriber buffer used when none is given.
const DefaultBufferSize = 64

// Broadcaster delivers published rows to every current subscriber. Publish
// never blocks: a subscriber whose buffer is full misses the row.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[uint64]*localSubscription
	nextID uint64
	buffer int
	source string
	log    *zap.SugaredLogger
}

// NewBroadcaster creates a broadcaster. source labels the realtime metrics.
func NewBroadcaster(source string, bufferSize int) *Broadcaster {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Broadcaster{
		subs:   make(map[uint64]*localSubscription),
		buffer: bufferSize,
		source: source,
		log:    logger.GetLogger().Named("broadcaster"),
	}
}

type localSubscription struct {
	id     uint64
	b      *Broadcaster
	events chan types.Feedback
}

func (s *localSubscription) Events() <-chan types.Feedback {
	return s.events
}

func (s *localSubscription) Close() error {
	s.b.remove(s.id)
	return nil
}

// Subscribe registers a new subscriber.
func (b *Broadcaster) Subscribe() store.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &localSubscription{
		id:     b.nextID,
		b:      b,
		events: make(chan types.Feedback, b.buffer),
	}
	b.subs[sub.id] = sub
	return sub
}

// Publish hands fb to every subscriber.
func (b *Broadcaster) Publish(fb types.Feedback) {
	m := metrics.Get()

	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subs {
		select {
		case sub.events <- fb:
			m.RealtimeEvents.WithLabelValues(b.source).Inc()
		default:
			m.RealtimeDropped.Inc()
			b.log.Warnw("Subscriber buffer full, dropping feedback row",
				"subscriberID", id,
				"feedbackID", fb.ID)
		}
	}
}

// CloseAll ends every current subscription. The broadcaster stays usable.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subs {
		close(sub.events)
		delete(b.subs, id)
	}
}

// Len returns the number of current subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broadcaster) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[id]; ok {
		close(sub.events)
		delete(b.subs, id)
	}
}
