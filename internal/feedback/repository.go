package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joeyportfolio/portfolio/internal/metrics"
	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/logger"
	"github.com/joeyportfolio/portfolio/types"
	"go.uber.org/zap"
)

var (
	// ErrLoadFailed wraps any store error from FetchAll.
	ErrLoadFailed = errors.New("failed to load feedback")
	// ErrSubmitFailed wraps any store error from Insert.
	ErrSubmitFailed = errors.New("failed to submit feedback")
)

// Repository reads and writes feedback rows through a RecordClient.
type Repository struct {
	client store.RecordClient
	log    *zap.SugaredLogger
}

// NewRepository creates a repository for client.
func NewRepository(client store.RecordClient) *Repository {
	return &Repository{
		client: client,
		log:    logger.GetLogger().Named("feedback_repository"),
	}
}

// FetchAll returns every row, newest first. No rows is an empty slice.
func (r *Repository) FetchAll(ctx context.Context) ([]types.Feedback, error) {
	start := time.Now()
	rows, err := r.client.List(ctx)
	observe("fetch_all", start, err)
	if err != nil {
		r.log.Errorw("Error fetching feedback", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	if rows == nil {
		rows = []types.Feedback{}
	}
	return rows, nil
}

// Insert stores fb as given; bounds are left to the store's schema. It
// returns the stored row with its generated id and created_at.
func (r *Repository) Insert(ctx context.Context, fb types.FeedbackCreate) (types.Feedback, error) {
	start := time.Now()
	row, err := r.client.Insert(ctx, fb)
	observe("insert", start, err)
	if err != nil {
		r.log.Errorw("Error submitting feedback", "error", err, "kind", store.KindOf(err).String())
		return types.Feedback{}, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	r.log.Infow("Feedback submitted", "feedbackID", row.ID, "rating", row.Rating)
	return row, nil
}

func observe(operation string, start time.Time, err error) {
	m := metrics.Get()
	result := "success"
	if err != nil {
		result = store.KindOf(err).String()
	}
	m.FeedbackOperations.WithLabelValues(operation, result).Inc()
	m.FeedbackLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
