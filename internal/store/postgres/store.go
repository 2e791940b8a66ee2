// Package postgres is the RecordClient backed by a Postgres database.
// Realtime inserts arrive through LISTEN/NOTIFY, fed by the trigger that
// CreateSchema installs.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joeyportfolio/portfolio/db"
	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/logger"
	"github.com/joeyportfolio/portfolio/types"
	"go.uber.org/zap"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

const (
	probeQuery  = `SELECT id FROM public.feedback LIMIT $1`
	listQuery   = `SELECT id::text, name, message, rating, created_at FROM public.feedback ORDER BY created_at DESC`
	insertQuery = `INSERT INTO public.feedback (name, message, rating) VALUES ($1, $2, $3)
RETURNING id::text, name, message, rating, created_at`
)

// Store implements store.RecordClient.
type Store struct {
	db          DB
	newListener ListenerFunc
	channel     string
	bufferSize  int
	log         *zap.SugaredLogger
}

type Option func(*Store)

// WithListener sets how Subscribe opens its notification listener.
// Without it Subscribe fails.
func WithListener(f ListenerFunc) Option {
	return func(s *Store) { s.newListener = f }
}

// WithChannel overrides the NOTIFY channel name.
func WithChannel(channel string) Option {
	return func(s *Store) { s.channel = channel }
}

// New wraps an existing pool.
func New(pool DB, opts ...Option) *Store {
	s := &Store{
		db:         pool,
		channel:    db.NotifyChannel,
		bufferSize: 64,
		log:        logger.GetLogger().Named("postgres_store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	ConnectTimeout  time.Duration
}

// Open connects a pgx pool to dsn, verifies it with a ping, and returns a
// Store whose subscriptions use a lib/pq listener on the same DSN.
func Open(ctx context.Context, dsn string, cfg PoolConfig) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, classify("connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classify("connect", err)
	}

	logger.GetLogger().Infow("Connected to Postgres",
		"dsn", logger.MaskConnectionString(dsn),
		"maxConns", poolCfg.MaxConns)

	return New(pool, WithListener(PQListener(dsn))), nil
}

func (s *Store) Probe(ctx context.Context, limit int) error {
	rows, err := s.db.Query(ctx, probeQuery, limit)
	if err != nil {
		return classify("probe", err)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return classify("probe", err)
	}
	return nil
}

func (s *Store) CreateSchema(ctx context.Context) error {
	// No arguments: pgx sends the batch over the simple protocol.
	if _, err := s.db.Exec(ctx, db.SchemaSQL()); err != nil {
		return classify("create_schema", err)
	}
	s.log.Infow("Feedback schema ensured")
	return nil
}

func (s *Store) Insert(ctx context.Context, fb types.FeedbackCreate) (types.Feedback, error) {
	var row types.Feedback
	err := s.db.QueryRow(ctx, insertQuery, fb.Name, fb.Message, fb.Rating).
		Scan(&row.ID, &row.Name, &row.Message, &row.Rating, &row.CreatedAt)
	if err != nil {
		return types.Feedback{}, classify("insert", err)
	}
	return row, nil
}

func (s *Store) List(ctx context.Context) ([]types.Feedback, error) {
	rows, err := s.db.Query(ctx, listQuery)
	if err != nil {
		return nil, classify("list", err)
	}
	defer rows.Close()

	out := make([]types.Feedback, 0)
	for rows.Next() {
		var row types.Feedback
		if err := rows.Scan(&row.ID, &row.Name, &row.Message, &row.Rating, &row.CreatedAt); err != nil {
			return nil, classify("list", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list", err)
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.db.Close()
	return nil
}

var _ store.RecordClient = (*Store)(nil)
