package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xraph/coldrun"
	"github.com/xraph/coldrun/id"
	"github.com/xraph/coldrun/job"
)

// jobBackend is a Postgres-backed job.Store.
type jobBackend struct {
	pool   *pgxpool.Pool
	dsn    string
	logger *slog.Logger
}

var _ job.Store = (*jobBackend)(nil)

// Create persists a new PENDING job record.
func (b *jobBackend) Create(ctx context.Context, j *job.Job) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO coldrun_jobs (
			id, job_type, status, request_body, result_uri, error,
			worker_job_id, attempts, ttl, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		j.ID.String(), j.Type, string(j.Status), j.RequestBody, j.ResultURI, j.Error,
		j.WorkerJobID, int32(j.Attempts), nullableTime(j.TTL), j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("coldrun/postgres: create job: %w", err)
	}
	return nil
}

// Get retrieves a job by ID.
func (b *jobBackend) Get(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	row := b.pool.QueryRow(ctx, `
		SELECT id, job_type, status, request_body, result_uri, error,
		       worker_job_id, attempts, ttl, created_at, updated_at
		FROM coldrun_jobs WHERE id = $1`,
		jobID.String(),
	)
	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, coldrun.ErrJobNotFound
		}
		return nil, fmt.Errorf("coldrun/postgres: get job: %w", err)
	}
	return j, nil
}

// Claim conditionally transitions a record to PROCESSING iff it is not
// already terminal.
func (b *jobBackend) Claim(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	row := b.pool.QueryRow(ctx, `
		UPDATE coldrun_jobs
		SET status = 'processing', worker_job_id = '', attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'failed')
		RETURNING id, job_type, status, request_body, result_uri, error,
		          worker_job_id, attempts, ttl, created_at, updated_at`,
		jobID.String(),
	)
	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			// Either the job doesn't exist, or it exists but is terminal.
			// Disambiguate with a follow-up read.
			if _, getErr := b.Get(ctx, jobID); getErr != nil {
				return nil, getErr
			}
			return nil, coldrun.ErrTerminalStateImmutable
		}
		return nil, fmt.Errorf("coldrun/postgres: claim job: %w", err)
	}
	return j, nil
}

// SetWorkerJobID records the engine-assigned id for the current attempt.
func (b *jobBackend) SetWorkerJobID(ctx context.Context, jobID id.JobID, workerJobID string) error {
	tag, err := b.pool.Exec(ctx,
		`UPDATE coldrun_jobs SET worker_job_id = $2, updated_at = NOW() WHERE id = $1`,
		jobID.String(), workerJobID,
	)
	if err != nil {
		return fmt.Errorf("coldrun/postgres: set worker job id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return coldrun.ErrJobNotFound
	}
	return nil
}

// CommitCompleted conditionally writes a COMPLETED status. A no-op if
// the record is already terminal.
func (b *jobBackend) CommitCompleted(ctx context.Context, jobID id.JobID, resultURI string) error {
	tag, err := b.pool.Exec(ctx, `
		UPDATE coldrun_jobs SET status = 'completed', result_uri = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'failed')`,
		jobID.String(), resultURI,
	)
	if err != nil {
		return fmt.Errorf("coldrun/postgres: commit completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := b.Get(ctx, jobID); getErr != nil {
			return getErr
		}
		// already terminal: no-op, per contract
	}
	return nil
}

// CommitFailed conditionally writes a FAILED status. A no-op if the
// record is already terminal.
func (b *jobBackend) CommitFailed(ctx context.Context, jobID id.JobID, errMsg string) error {
	tag, err := b.pool.Exec(ctx, `
		UPDATE coldrun_jobs SET status = 'failed', error = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('completed', 'failed')`,
		jobID.String(), errMsg,
	)
	if err != nil {
		return fmt.Errorf("coldrun/postgres: commit failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := b.Get(ctx, jobID); getErr != nil {
			return getErr
		}
	}
	return nil
}

// MarkFailed transitions a PENDING record straight to FAILED.
func (b *jobBackend) MarkFailed(ctx context.Context, jobID id.JobID, errMsg string) error {
	tag, err := b.pool.Exec(ctx,
		`UPDATE coldrun_jobs SET status = 'failed', error = $2, updated_at = NOW() WHERE id = $1`,
		jobID.String(), errMsg,
	)
	if err != nil {
		return fmt.Errorf("coldrun/postgres: mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return coldrun.ErrJobNotFound
	}
	return nil
}

// ListByStatus returns jobs matching status, ordered by created_at.
func (b *jobBackend) ListByStatus(ctx context.Context, status job.State, opts job.ListOpts) ([]*job.Job, error) {
	query := `
		SELECT id, job_type, status, request_body, result_uri, error,
		       worker_job_id, attempts, ttl, created_at, updated_at
		FROM coldrun_jobs WHERE status = $1
		ORDER BY created_at ASC`
	args := []interface{}{string(status)}
	argIdx := 2

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
		return nil, fmt.Errorf("coldrun/postgres: list jobs by status: %w", err)
	}
	defer rows.Close()

	var jobs []*job.Job
	for rows.Next() {
		j, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("coldrun/postgres: scan job row: %w", scanErr)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("coldrun/postgres: iterate job rows: %w", err)
	}
	return jobs, nil
}

// ReapExpired deletes records whose TTL has passed and is nonzero.
func (b *jobBackend) ReapExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := b.pool.Exec(ctx,
		`DELETE FROM coldrun_jobs WHERE ttl IS NOT NULL AND ttl <= $1`, now,
	)
	if err != nil {
		return 0, fmt.Errorf("coldrun/postgres: reap expired jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping verifies the pool can reach Postgres.
func (b *jobBackend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

// Migrate applies embedded schema migrations.
func (b *jobBackend) Migrate(ctx context.Context) error {
	return applyMigrations(ctx, b.dsn, b.logger)
}

// Close is a no-op; the pool's lifecycle belongs to Store.
func (b *jobBackend) Close(_ context.Context) error {
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func scanJob(row pgx.Row) (*job.Job, error) {
	var (
		j         job.Job
		idStr     string
		statusStr string
		attempts  int32
		ttl       *time.Time
	)
	if err := row.Scan(
		&idStr, &j.Type, &statusStr, &j.RequestBody, &j.ResultURI, &j.Error,
		&j.WorkerJobID, &attempts, &ttl, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return nil, err
	}

	j.Status = job.State(statusStr)
	j.Attempts = uint32(attempts)
	if ttl != nil {
		j.TTL = *ttl
	}

	parsedID, err := id.ParseJobID(idStr)
	if err != nil {
		return nil, fmt.Errorf("coldrun/postgres: parse job id %q: %w", idStr, err)
	}
	j.ID = parsedID

	return &j, nil
}
