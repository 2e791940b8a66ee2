// Package memstore is an in-process RecordClient with the same observable
// semantics as the hosted stores. It backs tests and the "memory" driver.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joeyportfolio/portfolio/internal/realtime"
	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/types"
)

// Operation names accepted by Fail.
const (
	OpProbe        = "probe"
	OpCreateSchema = "create_schema"
	OpInsert       = "insert"
	OpList         = "list"
	OpSubscribe    = "subscribe"
	OpPing         = "ping"
)

var errInjected = errors.New("injected failure")

// Store keeps feedback rows in memory.
type Store struct {
	mu          sync.Mutex
	tableExists bool
	rows        []types.Feedback
	failures    map[string]store.Kind
	creations   int
	lastCreated time.Time
	now         func() time.Time
	broadcaster *realtime.Broadcaster
}

type Option func(*Store)

// WithTable starts the store with the feedback table already present.
func WithTable() Option {
	return func(s *Store) { s.tableExists = true }
}

// WithClock overrides the clock used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRows seeds the table (and implies WithTable).
func WithRows(rows ...types.Feedback) Option {
	return func(s *Store) {
		s.tableExists = true
		s.rows = append(s.rows, rows...)
	}
}

// New creates an empty store without a feedback table.
func New(opts ...Option) *Store {
	s := &Store{
		failures:    make(map[string]store.Kind),
		now:         time.Now,
		broadcaster: realtime.NewBroadcaster("memory", realtime.DefaultBufferSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fail makes every call of op fail with kind until Recover(op) is called.
func (s *Store) Fail(op string, kind store.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = kind
}

// Recover clears an injected failure.
func (s *Store) Recover(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, op)
}

// SchemaCreations returns how many times CreateSchema created the table.
func (s *Store) SchemaCreations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creations
}

// DropSubscribers ends every live subscription as if the change feed had
// gone away. The store keeps accepting new subscribers.
func (s *Store) DropSubscribers() {
	s.broadcaster.CloseAll()
}

// Subscribers returns the number of live subscriptions.
func (s *Store) Subscribers() int {
	return s.broadcaster.Len()
}

func (s *Store) injected(op string) error {
	if kind, ok := s.failures[op]; ok {
		return store.NewError(kind, op, errInjected)
	}
	return nil
}

func (s *Store) Probe(ctx context.Context, limit int) error {
	if err := ctx.Err(); err != nil {
		return store.NewError(store.KindNetwork, OpProbe, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected(OpProbe); err != nil {
		return err
	}
	if !s.tableExists {
		return store.NewError(store.KindNotFound, OpProbe, errors.New(`relation "public.feedback" does not exist`))
	}
	return nil
}

func (s *Store) CreateSchema(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return store.NewError(store.KindNetwork, OpCreateSchema, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected(OpCreateSchema); err != nil {
		return err
	}
	if !s.tableExists {
		s.tableExists = true
		s.creations++
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, fb types.FeedbackCreate) (types.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return types.Feedback{}, store.NewError(store.KindNetwork, OpInsert, err)
	}
	s.mu.Lock()

	if err := s.injected(OpInsert); err != nil {
		s.mu.Unlock()
		return types.Feedback{}, err
	}
	if !s.tableExists {
		s.mu.Unlock()
		return types.Feedback{}, store.NewError(store.KindNotFound, OpInsert, errors.New(`relation "public.feedback" does not exist`))
	}
	if fb.Rating < 1 || fb.Rating > 5 {
		s.mu.Unlock()
		return types.Feedback{}, store.NewError(store.KindConstraintViolation, OpInsert,
			errors.New(`new row for relation "feedback" violates check constraint "feedback_rating_check"`))
	}

	createdAt := s.now().UTC()
	if !createdAt.After(s.lastCreated) {
		createdAt = s.lastCreated.Add(time.Microsecond)
	}
	s.lastCreated = createdAt

	row := types.Feedback{
		ID:        uuid.NewString(),
		Name:      fb.Name,
		Message:   fb.Message,
		Rating:    fb.Rating,
		CreatedAt: createdAt,
	}
	s.rows = append(s.rows, row)
	s.mu.Unlock()

	s.broadcaster.Publish(row)
	return row, nil
}

func (s *Store) List(ctx context.Context) ([]types.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.NewError(store.KindNetwork, OpList, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.injected(OpList); err != nil {
		return nil, err
	}
	if !s.tableExists {
		return nil, store.NewError(store.KindNotFound, OpList, errors.New(`relation "public.feedback" does not exist`))
	}

	out := make([]types.Feedback, len(s.rows))
	copy(out, s.rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) Subscribe(ctx context.Context) (store.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.NewError(store.KindNetwork, OpSubscribe, err)
	}
	s.mu.Lock()
	err := s.injected(OpSubscribe)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.broadcaster.Subscribe(), nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.injected(OpPing)
}

func (s *Store) Close() error {
	s.broadcaster.CloseAll()
	return nil
}

var _ store.RecordClient = (*Store)(nil)
