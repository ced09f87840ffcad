package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xraph/coldrun"
	"github.com/xraph/coldrun/dlq"
	"github.com/xraph/coldrun/id"
)

// dlqBackend is a Postgres-backed dlq.Store.
type dlqBackend struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ dlq.Store = (*dlqBackend)(nil)

// Push records a message that exceeded the maximum receive count.
func (b *dlqBackend) Push(ctx context.Context, jobID id.JobID, jobType string, requestBody []byte, receives int) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO coldrun_dlq (id, job_id, job_type, request_body, receives, diverted_at)
		VALUES ($1, $2, $3, $4, $5, NOW())`,
		id.NewDLQID().String(), jobID.String(), jobType, requestBody, receives,
	)
	if err != nil {
		return fmt.Errorf("coldrun/postgres: push dlq: %w", err)
	}
	return nil
}

// List returns entries matching opts, most recently diverted first.
func (b *dlqBackend) List(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	query := `
		SELECT id, job_id, job_type, request_body, receives, diverted_at, replayed_at
		FROM coldrun_dlq ORDER BY diverted_at DESC`
	args := []interface{}{}
	argIdx := 1

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("coldrun/postgres: list dlq: %w", err)
	}
	defer rows.Close()

	var entries []*dlq.Entry
	for rows.Next() {
		e, scanErr := scanDLQ(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("coldrun/postgres: scan dlq row: %w", scanErr)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("coldrun/postgres: iterate dlq rows: %w", err)
	}
	return entries, nil
}

// Get retrieves an entry by ID.
func (b *dlqBackend) Get(ctx context.Context, entryID id.DLQID) (*dlq.Entry, error) {
	row := b.pool.QueryRow(ctx, `
		SELECT id, job_id, job_type, request_body, receives, diverted_at, replayed_at
		FROM coldrun_dlq WHERE id = $1`,
		entryID.String(),
	)
	e, err := scanDLQ(row)
	if err != nil {
		if isNoRows(err) {
			return nil, coldrun.ErrDLQEntryNotFound
		}
		return nil, fmt.Errorf("coldrun/postgres: get dlq: %w", err)
	}
	return e, nil
}

// MarkReplayed records that an entry has been replayed.
func (b *dlqBackend) MarkReplayed(ctx context.Context, entryID id.DLQID) error {
	tag, err := b.pool.Exec(ctx,
		`UPDATE coldrun_dlq SET replayed_at = NOW() WHERE id = $1`, entryID.String(),
	)
	if err != nil {
		return fmt.Errorf("coldrun/postgres: mark replayed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return coldrun.ErrDLQEntryNotFound
	}
	return nil
}

// Purge removes entries diverted before the given time.
func (b *dlqBackend) Purge(ctx context.Context, before time.Time) (int64, error) {
	tag, err := b.pool.Exec(ctx, `DELETE FROM coldrun_dlq WHERE diverted_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("coldrun/postgres: purge dlq: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the total number of entries.
func (b *dlqBackend) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := b.pool.QueryRow(ctx, `SELECT COUNT(*) FROM coldrun_dlq`).Scan(&count); err != nil {
		return 0, fmt.Errorf("coldrun/postgres: count dlq: %w", err)
	}
	return count, nil
}

func scanDLQ(row pgx.Row) (*dlq.Entry, error) {
	var (
		e        dlq.Entry
		idStr    string
		jobIDStr string
	)
	if err := row.Scan(
		&idStr, &jobIDStr, &e.JobType, &e.RequestBody, &e.Receives, &e.DivertedAt, &e.ReplayedAt,
	); err != nil {
		return nil, err
	}

	parsedID, err := id.ParseDLQID(idStr)
	if err != nil {
		return nil, fmt.Errorf("coldrun/postgres: parse dlq id %q: %w", idStr, err)
	}
	e.ID = parsedID

	parsedJobID, err := id.ParseJobID(jobIDStr)
	if err != nil {
		return nil, fmt.Errorf("coldrun/postgres: parse job id %q: %w", jobIDStr, err)
	}
	e.JobID = parsedJobID

	return &e, nil
}
