package statements

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements StatementsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const fileColumns = `id, session_id, file_name, mime_type, size_bytes, storage_key, extracted_text_key, extracted_at, created_at`

// Create inserts a new statement file record.
func (r *PGRepo) Create(ctx context.Context, f StatementFile) error {
	const query = `
INSERT INTO statement_files (
    id,
    session_id,
    file_name,
    mime_type,
    size_bytes,
    storage_key,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		f.ID,
		f.SessionID,
		f.FileName,
		f.MimeType,
		f.SizeBytes,
		f.StorageKey,
		f.CreatedAt,
	)
	return err
}

// GetByStorageKey fetches a statement file by storage key for a session.
func (r *PGRepo) GetByStorageKey(ctx context.Context, sessionID, storageKey string) (StatementFile, error) {
	const query = `
SELECT ` + fileColumns + `
FROM statement_files
WHERE session_id = $1 AND storage_key = $2
LIMIT 1`
	f, err := scanFile(r.DB.QueryRowContext(ctx, query, sessionID, storageKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StatementFile{}, ErrNotFound
		}
		return StatementFile{}, err
	}
	return f, nil
}

// ListBySession lists statement files for a session, newest first.
func (r *PGRepo) ListBySession(ctx context.Context, sessionID string) ([]StatementFile, error) {
	const query = `
SELECT ` + fileColumns + `
FROM statement_files
WHERE session_id = $1
ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFiles(rows)
}

// DeleteBySession removes all records for a session and returns the removed files.
func (r *PGRepo) DeleteBySession(ctx context.Context, sessionID string) ([]StatementFile, error) {
	const query = `
DELETE FROM statement_files
WHERE session_id = $1
RETURNING ` + fileColumns

	rows, err := r.DB.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFiles(rows)
}

// ListCreatedBefore returns files across all sessions created before the cutoff.
func (r *PGRepo) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]StatementFile, error) {
	const query = `
SELECT ` + fileColumns + `
FROM statement_files
WHERE created_at < $1
ORDER BY created_at ASC`

	rows, err := r.DB.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFiles(rows)
}

// Delete removes a single record by ID.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM statement_files WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkExtracted stores the extracted text key for a file.
func (r *PGRepo) MarkExtracted(ctx context.Context, id, extractedKey string, extractedAt time.Time) error {
	const query = `
UPDATE statement_files
SET extracted_text_key = $1, extracted_at = $2
WHERE id = $3 AND extracted_text_key IS NULL`
	_, err := r.DB.ExecContext(ctx, query, extractedKey, extractedAt, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (StatementFile, error) {
	var f StatementFile
	var extractedKey sql.NullString
	var extractedAt sql.NullTime
	if err := row.Scan(
		&f.ID,
		&f.SessionID,
		&f.FileName,
		&f.MimeType,
		&f.SizeBytes,
		&f.StorageKey,
		&extractedKey,
		&extractedAt,
		&f.CreatedAt,
	); err != nil {
		return StatementFile{}, err
	}
	if extractedKey.Valid {
		f.ExtractedTextKey = extractedKey.String
	}
	if extractedAt.Valid {
		f.ExtractedAt = &extractedAt.Time
	}
	return f, nil
}

func scanFiles(rows *sql.Rows) ([]StatementFile, error) {
	var out []StatementFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

var _ StatementsRepo = (*PGRepo)(nil)
