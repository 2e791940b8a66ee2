package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/logger"
	"github.com/joeyportfolio/portfolio/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func TestStore_MissingTableUntilCreated(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.Probe(ctx, 1)
	require.Error(t, err)
	assert.Equal(t, store.KindNotFound, store.KindOf(err))

	_, err = s.List(ctx)
	assert.Equal(t, store.KindNotFound, store.KindOf(err))

	require.NoError(t, s.CreateSchema(ctx))
	require.NoError(t, s.CreateSchema(ctx))
	assert.Equal(t, 1, s.SchemaCreations())

	assert.NoError(t, s.Probe(ctx, 1))
	assert.NoError(t, s.Probe(ctx, 0))
}

func TestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := New(WithTable(), WithClock(func() time.Time { return base }))

	first, err := s.Insert(ctx, types.FeedbackCreate{Name: "A", Message: "one", Rating: 1})
	require.NoError(t, err)
	second, err := s.Insert(ctx, types.FeedbackCreate{Name: "B", Message: "two", Rating: 2})
	require.NoError(t, err)

	assert.True(t, second.CreatedAt.After(first.CreatedAt), "created_at must be strictly increasing")
	assert.NotEqual(t, first.ID, second.ID)

	rows, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, second.ID, rows[0].ID)
	assert.Equal(t, first.ID, rows[1].ID)
}

func TestStore_RatingConstraint(t *testing.T) {
	ctx := context.Background()
	s := New(WithTable())

	for _, rating := range []int{0, 6, -1} {
		_, err := s.Insert(ctx, types.FeedbackCreate{Name: "A", Message: "m", Rating: rating})
		require.Error(t, err)
		assert.Equal(t, store.KindConstraintViolation, store.KindOf(err))
	}

	rows, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStore_InjectedFailure(t *testing.T) {
	ctx := context.Background()
	s := New(WithTable())

	s.Fail(OpList, store.KindNetwork)
	_, err := s.List(ctx)
	assert.Equal(t, store.KindNetwork, store.KindOf(err))

	s.Recover(OpList)
	_, err = s.List(ctx)
	assert.NoError(t, err)
}

func TestStore_SubscribeSeesInserts(t *testing.T) {
	ctx := context.Background()
	s := New(WithTable())

	sub, err := s.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	row, err := s.Insert(ctx, types.FeedbackCreate{Name: "Ada", Message: "Great", Rating: 5})
	require.NoError(t, err)

	select {
	case got := <-sub.Events():
		assert.Equal(t, row, got)
	case <-time.After(time.Second):
		t.Fatal("no realtime event")
	}
}
