package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xraph/coldrun/dlq"
	"github.com/xraph/coldrun/job"
)

// Store bundles a Postgres-backed job registry and DLQ sink behind a
// single connection pool. Construct with New or NewFromPool.
type Store struct {
	pool   *pgxpool.Pool
	dsn    string
	logger *slog.Logger
	jobs   *jobBackend
	dlq    *dlqBackend
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for backend diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMigrationDSN sets the connection string golang-migrate uses to
// open its own connection during Migrate. Required when the Store was
// built with NewFromPool, since golang-migrate cannot run against a
// shared pgxpool.
func WithMigrationDSN(dsn string) Option {
	return func(s *Store) { s.dsn = dsn }
}

// New opens a connection pool against connString and wraps it in a Store.
func New(ctx context.Context, connString string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("coldrun/postgres: connect: %w", err)
	}
	return NewFromPool(pool, append([]Option{WithMigrationDSN(connString)}, opts...)...), nil
}

// NewFromPool wraps an already-constructed pool in a Store. Useful when
// the caller wants to share one pool across multiple stores or manage
// its lifecycle independently.
func NewFromPool(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	s.jobs = &jobBackend{pool: pool, dsn: s.dsn, logger: s.logger}
	s.dlq = &dlqBackend{pool: pool, logger: s.logger}
	return s
}

// Jobs returns the job registry backend.
func (s *Store) Jobs() job.Store { return s.jobs }

// DLQ returns the dead-letter sink backend.
func (s *Store) DLQ() dlq.Store { return s.dlq }

// Pool exposes the underlying connection pool, e.g. for a caller that
// needs to run administrative queries outside the Store interfaces.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Ping verifies the pool can reach Postgres.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies every pending migration in order via golang-migrate.
// Requires the Store to have been built with New, or with NewFromPool
// plus WithMigrationDSN — golang-migrate opens its own connection and
// cannot share the pool.
func (s *Store) Migrate(ctx context.Context) error {
	return applyMigrations(ctx, s.dsn, s.logger)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
