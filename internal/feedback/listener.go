package feedback

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/logger"
	"github.com/joeyportfolio/portfolio/types"
)

// Subscriber opens insert subscriptions. store.RecordClient satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context) (store.Subscription, error)
}

// DeliverFunc receives one inserted row. ctx is cancelled when the listener
// closes, so a blocked delivery can give up.
type DeliverFunc func(ctx context.Context, row types.Feedback)

// Listener forwards inserted rows to its owner until closed or until the
// subscription ends on its own.
type Listener struct {
	sub    store.Subscription
	cancel context.CancelFunc
	done   chan struct{}
	lost   atomic.Bool
	once   sync.Once
}

// Listen subscribes through s and starts forwarding rows to deliver.
func Listen(ctx context.Context, s Subscriber, deliver DeliverFunc) (*Listener, error) {
	sub, err := s.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	fwdCtx, cancel := context.WithCancel(context.Background())
	l := &Listener{sub: sub, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(l.done)
		for {
			select {
			case <-fwdCtx.Done():
				return
			case row, ok := <-sub.Events():
				if !ok {
					if fwdCtx.Err() == nil {
						l.lost.Store(true)
						logger.GetLogger().Named("feedback_listener").Warnw("Feedback subscription ended")
					}
					return
				}
				deliver(fwdCtx, row)
			}
		}
	}()
	return l, nil
}

// Done is closed once the listener stops forwarding.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Lost reports whether the subscription ended without Close being called.
// Only meaningful after Done is closed.
func (l *Listener) Lost() bool {
	return l.lost.Load()
}

// Close unsubscribes. deliver is not called once Close has returned.
func (l *Listener) Close() error {
	if l == nil {
		return nil
	}
	var err error
	l.once.Do(func() {
		l.cancel()
		err = l.sub.Close()
		<-l.done
	})
	return err
}
