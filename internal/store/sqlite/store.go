// Package sqlite is a RecordClient on a local SQLite file for development.
// SQLite has no row-level security, so CreateSchema installs only the table.
// Realtime inserts are delivered in-process.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joeyportfolio/portfolio/internal/realtime"
	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/logger"
	"github.com/joeyportfolio/portfolio/types"
	_ "modernc.org/sqlite"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS feedback (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    message TEXT NOT NULL,
    rating INTEGER NOT NULL CHECK (rating >= 1 AND rating <= 5),
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS feedback_created_at_idx ON feedback (created_at DESC);`

const (
	probeQuery  = `SELECT id FROM feedback LIMIT ?`
	listQuery   = `SELECT id, name, message, rating, created_at FROM feedback ORDER BY created_at DESC, rowid DESC`
	insertQuery = `INSERT INTO feedback (id, name, message, rating, created_at) VALUES (?, ?, ?, ?, ?)`
)

// Store implements store.RecordClient.
type Store struct {
	sqlDB       *sql.DB
	broadcaster *realtime.Broadcaster

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func toMicros(value time.Time) int64 {
	return value.UTC().UnixMicro()
}

func fromMicros(value int64) time.Time {
	return time.UnixMicro(value).UTC()
}

// Open opens (or creates) the database at path. ":memory:" keeps the data
// in a single shared connection.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	logger.GetLogger().Infow("Opened SQLite feedback store", "path", path)
	return New(sqlDB), nil
}

// New wraps an open handle.
func New(sqlDB *sql.DB) *Store {
	return &Store{
		sqlDB:       sqlDB,
		broadcaster: realtime.NewBroadcaster("sqlite", realtime.DefaultBufferSize),
		now:         time.Now,
	}
}

func (s *Store) Probe(ctx context.Context, limit int) error {
	rows, err := s.sqlDB.QueryContext(ctx, probeQuery, limit)
	if err != nil {
		return classify("probe", err)
	}
	defer rows.Close()
	if err := rows.Err(); err != nil {
		return classify("probe", err)
	}
	return nil
}

func (s *Store) CreateSchema(ctx context.Context) error {
	if _, err := s.sqlDB.ExecContext(ctx, schemaSQL); err != nil {
		return classify("create_schema", err)
	}
	return nil
}

// nextCreatedAt returns a strictly increasing timestamp so rows inserted in
// the same microsecond still sort deterministically.
func (s *Store) nextCreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC().Truncate(time.Microsecond)
	if !ts.After(s.last) {
		ts = s.last.Add(time.Microsecond)
	}
	s.last = ts
	return ts
}

func (s *Store) Insert(ctx context.Context, fb types.FeedbackCreate) (types.Feedback, error) {
	row := types.Feedback{
		ID:        uuid.NewString(),
		Name:      fb.Name,
		Message:   fb.Message,
		Rating:    fb.Rating,
		CreatedAt: s.nextCreatedAt(),
	}

	if _, err := s.sqlDB.ExecContext(ctx, insertQuery,
		row.ID, row.Name, row.Message, row.Rating, toMicros(row.CreatedAt)); err != nil {
		return types.Feedback{}, classify("insert", err)
	}

	s.broadcaster.Publish(row)
	return row, nil
}

func (s *Store) List(ctx context.Context) ([]types.Feedback, error) {
	rows, err := s.sqlDB.QueryContext(ctx, listQuery)
	if err != nil {
		return nil, classify("list", err)
	}
	defer rows.Close()

	out := make([]types.Feedback, 0)
	for rows.Next() {
		var (
			row       types.Feedback
			createdAt int64
		)
		if err := rows.Scan(&row.ID, &row.Name, &row.Message, &row.Rating, &createdAt); err != nil {
			return nil, classify("list", err)
		}
		row.CreatedAt = fromMicros(createdAt)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list", err)
	}
	return out, nil
}

func (s *Store) Subscribe(ctx context.Context) (store.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.NewError(store.KindNetwork, "subscribe", err)
	}
	return s.broadcaster.Subscribe(), nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.sqlDB.PingContext(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.broadcaster.CloseAll()
	if s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

var _ store.RecordClient = (*Store)(nil)
