package statements

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"underwriter-backend/internal/shared/storage/object"
	"underwriter-backend/internal/shared/telemetry"
	"underwriter-backend/internal/shared/util"
)

// Service contains business logic for statement uploads.
type Service struct {
	Store object.ObjectStore
	Repo  StatementsRepo
}

// Upload saves a PDF statement to object storage and records it.
func (s *Service) Upload(ctx context.Context, sessionID, fileName string, r io.Reader) (StatementFile, error) {
	if sessionID == "" {
		return StatementFile{}, fmt.Errorf("%w: session id required", ErrInvalidInput)
	}

	clean, err := util.SanitizeFileName(fileName)
	if err != nil {
		return StatementFile{}, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	if !strings.HasSuffix(strings.ToLower(clean), ".pdf") {
		return StatementFile{}, fmt.Errorf("%w: only PDF statements are accepted", ErrInvalidInput)
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, sessionID, clean, r)
	if err != nil {
		return StatementFile{}, err
	}

	f := StatementFile{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		FileName:   clean,
		MimeType:   mimeType,
		SizeBytes:  size,
		StorageKey: storageKey,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, f); err != nil {
		// Best-effort rollback of the stored object.
		_ = s.Store.Remove(ctx, storageKey)
		return StatementFile{}, err
	}

	return f, nil
}

// Resolve maps the given file paths back to statement records owned by the
// session. Every path must resolve; an unknown path fails the whole call.
func (s *Service) Resolve(ctx context.Context, sessionID string, filePaths []string) ([]StatementFile, error) {
	if len(filePaths) == 0 {
		return nil, fmt.Errorf("%w: file_paths required", ErrInvalidInput)
	}

	out := make([]StatementFile, 0, len(filePaths))
	for _, path := range filePaths {
		f, err := s.Repo.GetByStorageKey(ctx, sessionID, path)
		if err != nil {
			if err == ErrNotFound {
				return nil, fmt.Errorf("%w: unknown file path %q", ErrNotFound, path)
			}
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// List returns the session's uploaded statements, newest first.
func (s *Service) List(ctx context.Context, sessionID string) ([]StatementFile, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id required", ErrInvalidInput)
	}
	return s.Repo.ListBySession(ctx, sessionID)
}

// MarkExtracted records the extracted text key for a statement file.
func (s *Service) MarkExtracted(ctx context.Context, fileID, extractedKey string) error {
	return s.Repo.MarkExtracted(ctx, fileID, extractedKey, time.Now().UTC())
}

// Clear removes all uploads for a session, both records and stored objects.
func (s *Service) Clear(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, fmt.Errorf("%w: session id required", ErrInvalidInput)
	}

	files, err := s.Repo.DeleteBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	for _, f := range files {
		removeObjects(ctx, s.Store, f)
	}
	return len(files), nil
}

// SweepExpired deletes uploads older than the retention window. It keeps
// going past individual failures so one bad record cannot stall the sweep.
func (s *Service) SweepExpired(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-retention)
	files, err := s.Repo.ListCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, f := range files {
		if err := s.Repo.Delete(ctx, f.ID); err != nil {
			telemetry.Error("statements.sweep_delete_failed", map[string]any{
				"file_id": f.ID,
				"error":   err.Error(),
			})
			continue
		}
		removeObjects(ctx, s.Store, f)
		removed++
	}
	return removed, nil
}

func removeObjects(ctx context.Context, store object.ObjectStore, f StatementFile) {
	if err := store.Remove(ctx, f.StorageKey); err != nil {
		telemetry.Error("statements.remove_object_failed", map[string]any{
			"storage_key": f.StorageKey,
			"error":       err.Error(),
		})
	}
	if f.ExtractedTextKey != "" {
		if err := store.Remove(ctx, f.ExtractedTextKey); err != nil {
			telemetry.Error("statements.remove_object_failed", map[string]any{
				"storage_key": f.ExtractedTextKey,
				"error":       err.Error(),
			})
		}
	}
}
