package underwriting

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const runColumns = `id, session_id, provider, model, file_paths, status, result, error_message, started_at, completed_at, created_at, updated_at`

// Create inserts a new run.
func (r *PGRepo) Create(ctx context.Context, run Run) error {
	const query = `
INSERT INTO underwriting_runs (
    id,
    session_id,
    provider,
    model,
    file_paths,
    status,
    started_at,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	paths, err := json.Marshal(run.FilePaths)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(
		ctx,
		query,
		run.ID,
		run.SessionID,
		run.Provider,
		run.Model,
		paths,
		run.Status,
		run.StartedAt,
		run.CreatedAt,
		run.UpdatedAt,
	)
	return err
}

// GetByID fetches a session's run by ID.
func (r *PGRepo) GetByID(ctx context.Context, sessionID, runID string) (Run, error) {
	const query = `
SELECT ` + runColumns + `
FROM underwriting_runs
WHERE session_id = $1 AND id = $2
LIMIT 1`
	run, err := scanRun(r.DB.QueryRowContext(ctx, query, sessionID, runID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, err
	}
	return run, nil
}

// UpdateStatus transitions a run and stores its result or error.
func (r *PGRepo) UpdateStatus(ctx context.Context, runID, status string, result *Document, errorMessage string) error {
	const query = `
UPDATE underwriting_runs
SET status = $1,
    result = $2,
    error_message = NULLIF($3, ''),
    completed_at = CASE WHEN $1 IN ('completed', 'failed') THEN now() ELSE completed_at END,
    updated_at = now()
WHERE id = $4`

	var resultJSON any
	if result != nil {
		encoded, err := json.Marshal(result)
		if err != nil {
			return err
		}
		resultJSON = encoded
	}

	res, err := r.DB.ExecContext(ctx, query, status, resultJSON, errorMessage, runID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBySession lists a session's runs, newest first.
func (r *PGRepo) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT ` + runColumns + `
FROM underwriting_runs
WHERE session_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type runScanner interface {
	Scan(dest ...any) error
}

func scanRun(row runScanner) (Run, error) {
	var run Run
	var paths []byte
	var result []byte
	var errorMessage sql.NullString
	var startedAt, completedAt sql.NullTime
	var createdAt, updatedAt time.Time

	if err := row.Scan(
		&run.ID,
		&run.SessionID,
		&run.Provider,
		&run.Model,
		&paths,
		&run.Status,
		&result,
		&errorMessage,
		&startedAt,
		&completedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return Run{}, err
	}

	if len(paths) > 0 {
		if err := json.Unmarshal(paths, &run.FilePaths); err != nil {
			return Run{}, err
		}
	}
	if len(result) > 0 {
		var doc Document
		if err := json.Unmarshal(result, &doc); err != nil {
			return Run{}, err
		}
		run.Result = &doc
	}
	if errorMessage.Valid {
		run.ErrorMessage = errorMessage.String
	}
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	run.CreatedAt = createdAt
	run.UpdatedAt = updatedAt
	return run, nil
}

var _ Repo = (*PGRepo)(nil)
