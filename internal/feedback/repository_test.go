package feedback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/internal/store/memstore"
	"github.com/joeyportfolio/portfolio/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRepository_FetchAllEmpty(t *testing.T) {
	repo := NewRepository(memstore.New(memstore.WithTable()))

	rows, err := repo.FetchAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestRepository_FetchAllNilFromStore(t *testing.T) {
	client := new(MockRecordClient)
	client.On("List", mock.Anything).Return(nil, nil)

	rows, err := NewRepository(client).FetchAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rows)
}

func TestRepository_InsertThenFetchAll(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mem := memstore.New(memstore.WithRows(
		types.Feedback{ID: "old", Name: "Old", Message: "Earlier", Rating: 4, CreatedAt: base},
	))
	repo := NewRepository(mem)

	row, err := repo.Insert(ctx, types.FeedbackCreate{Name: "Ada", Message: "Great site", Rating: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, row.ID)
	assert.False(t, row.CreatedAt.IsZero())

	rows, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	count := 0
	for _, r := range rows {
		if r.ID == row.ID {
			count++
		}
	}
	assert.Equal(t, 1, count, "inserted entry appears exactly once")
	assert.Equal(t, row.ID, rows[0].ID, "new entry is not ordered after older ones")
}

func TestRepository_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("load failed", func(t *testing.T) {
		mem := memstore.New(memstore.WithTable())
		mem.Fail(memstore.OpList, store.KindNetwork)

		_, err := NewRepository(mem).FetchAll(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrLoadFailed)
		assert.Equal(t, store.KindNetwork, store.KindOf(err))
	})

	t.Run("submit failed on rating", func(t *testing.T) {
		mem := memstore.New(memstore.WithTable())

		_, err := NewRepository(mem).Insert(ctx, types.FeedbackCreate{Name: "Ada", Message: "Hi", Rating: 9})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSubmitFailed)
		assert.Equal(t, store.KindConstraintViolation, store.KindOf(err))
	})

	t.Run("submit failed unknown", func(t *testing.T) {
		client := new(MockRecordClient)
		client.On("Insert", mock.Anything, mock.Anything).Return(types.Feedback{}, errors.New("boom"))

		_, err := NewRepository(client).Insert(ctx, types.FeedbackCreate{Name: "Ada", Message: "Hi", Rating: 3})
		assert.ErrorIs(t, err, ErrSubmitFailed)
		assert.Equal(t, store.KindUnknown, store.KindOf(err))
	})
}

func TestService_EnsuresOnce(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	svc := NewService(mem)

	rows, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = svc.Submit(ctx, types.FeedbackCreate{Name: "Ada", Message: "Hi", Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, mem.SchemaCreations())
}
