// Package supabase is the RecordClient backed by a Supabase project: PostgREST
// for rows, the exec_sql RPC for schema creation and Supabase Realtime for
// insert notifications.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/logger"
	"github.com/joeyportfolio/portfolio/types"
	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
)

// Config contains configuration for the Supabase store.
type Config struct {
	URL         string
	AnonKey     string
	HTTPTimeout time.Duration
	// Heartbeat is the Realtime keepalive interval.
	Heartbeat time.Duration
}

// Store implements store.RecordClient.
type Store struct {
	client     *supa.Client
	baseURL    string
	key        string
	httpClient *http.Client
	heartbeat  time.Duration
	log        *zap.SugaredLogger
}

// New creates a Supabase store. It performs no network calls.
func New(cfg Config) (*Store, error) {
	if cfg.URL == "" || cfg.AnonKey == "" {
		return nil, errors.New("supabase url and anon key are required")
	}
	baseURL := strings.TrimRight(cfg.URL, "/")

	client, err := supa.NewClient(baseURL, cfg.AnonKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	heartbeat := cfg.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}

	return &Store{
		client:     client,
		baseURL:    baseURL,
		key:        cfg.AnonKey,
		httpClient: &http.Client{Timeout: timeout},
		heartbeat:  heartbeat,
		log:        logger.GetLogger().Named("supabase_store"),
	}, nil
}

// The PostgREST builder takes no context, so calls are only checked
// for cancellation before they start.
func (s *Store) Probe(ctx context.Context, limit int) error {
	if err := ctx.Err(); err != nil {
		return store.NewError(store.KindNetwork, "probe", err)
	}

	var rows []map[string]any
	_, err := s.client.From(store.FeedbackTable).
		Select("id", "", false).
		Limit(limit, "").
		ExecuteTo(&rows)
	if err != nil {
		return classify("probe", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, fb types.FeedbackCreate) (types.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return types.Feedback{}, store.NewError(store.KindNetwork, "insert", err)
	}

	var rows []types.Feedback
	_, err := s.client.From(store.FeedbackTable).
		Insert(fb, false, "", "representation", "").
		ExecuteTo(&rows)
	if err != nil {
		return types.Feedback{}, classify("insert", err)
	}
	if len(rows) == 0 {
		return types.Feedback{}, store.NewError(store.KindUnknown, "insert", errors.New("insert returned no row"))
	}
	return rows[0], nil
}

func (s *Store) List(ctx context.Context) ([]types.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.NewError(store.KindNetwork, "list", err)
	}

	rows := make([]types.Feedback, 0)
	_, err := s.client.From(store.FeedbackTable).
		Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, classify("list", err)
	}
	if rows == nil {
		rows = make([]types.Feedback, 0)
	}
	return rows, nil
}

// Ping checks that the REST endpoint answers. Any HTTP response counts as
// reachable.
func (s *Store) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/rest/v1/", nil)
	if err != nil {
		return store.NewError(store.KindUnknown, "ping", err)
	}
	s.setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return store.NewError(store.KindNetwork, "ping", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return store.NewError(store.KindNetwork, "ping", fmt.Errorf("supabase returned status code %d", resp.StatusCode))
	}
	return nil
}

func (s *Store) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *Store) setHeaders(req *http.Request) {
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Content-Type", "application/json")
}

var _ store.RecordClient = (*Store)(nil)
