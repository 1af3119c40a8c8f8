package statements

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of StatementsRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]StatementFile // sessionId -> files
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string][]StatementFile),
	}
}

// Create stores a statement file record.
func (r *MemoryRepo) Create(ctx context.Context, f StatementFile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[f.SessionID] = append(r.data[f.SessionID], f)
	return nil
}

// GetByStorageKey returns the statement file with the given storage key.
func (r *MemoryRepo) GetByStorageKey(ctx context.Context, sessionID, storageKey string) (StatementFile, error) {
	if err := ctx.Err(); err != nil {
		return StatementFile{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	files := r.data[sessionID]
	for i := range files {
		if files[i].StorageKey == storageKey {
			return files[i], nil
		}
	}
	return StatementFile{}, ErrNotFound
}

// ListBySession returns all files for a session, newest first.
func (r *MemoryRepo) ListBySession(ctx context.Context, sessionID string) ([]StatementFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	sessionFiles := r.data[sessionID]
	r.mu.RUnlock()

	files := make([]StatementFile, len(sessionFiles))
	copy(files, sessionFiles)
	sort.Slice(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	return files, nil
}

// DeleteBySession removes all records for a session and returns the removed files.
func (r *MemoryRepo) DeleteBySession(ctx context.Context, sessionID string) ([]StatementFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	files := r.data[sessionID]
	delete(r.data, sessionID)
	return files, nil
}

// ListCreatedBefore returns files across all sessions created before the cutoff.
func (r *MemoryRepo) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]StatementFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []StatementFile
	for _, files := range r.data {
		for i := range files {
			if files[i].CreatedAt.Before(cutoff) {
				out = append(out, files[i])
			}
		}
	}
	return out, nil
}

// Delete removes a single record by ID.
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for sessionID, files := range r.data {
		for i := range files {
			if files[i].ID == id {
				r.data[sessionID] = append(files[:i], files[i+1:]...)
				return nil
			}
		}
	}
	return ErrNotFound
}

// MarkExtracted stores the extracted text key for a file.
func (r *MemoryRepo) MarkExtracted(ctx context.Context, id, extractedKey string, extractedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for sessionID, files := range r.data {
		for i := range files {
			if files[i].ID == id {
				if files[i].ExtractedTextKey == "" {
					files[i].ExtractedTextKey = extractedKey
					files[i].ExtractedAt = &extractedAt
					r.data[sessionID] = files
				}
				return nil
			}
		}
	}
	return ErrNotFound
}

var _ StatementsRepo = (*MemoryRepo)(nil)
