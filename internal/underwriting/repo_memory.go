package underwriting

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Run // runID -> run
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Run)}
}

// Create stores a run.
func (r *MemoryRepo) Create(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[run.ID] = run
	return nil
}

// GetByID returns a session's run by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, sessionID, runID string) (Run, error) {
	if err := ctx.Err(); err != nil {
		return Run{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.data[runID]
	if !ok || run.SessionID != sessionID {
		return Run{}, ErrNotFound
	}
	return run, nil
}

// UpdateStatus transitions a run and stores its result or error.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, runID, status string, result *Document, errorMessage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.data[runID]
	if !ok {
		return ErrNotFound
	}

	now := time.Now().UTC()
	run.Status = status
	run.Result = result
	run.ErrorMessage = errorMessage
	run.UpdatedAt = now
	if status == StatusCompleted || status == StatusFailed {
		run.CompletedAt = &now
	}
	r.data[runID] = run
	return nil
}

// ListBySession returns a session's runs, newest first.
func (r *MemoryRepo) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	var runs []Run
	for _, run := range r.data {
		if run.SessionID == sessionID {
			runs = append(runs, run)
		}
	}
	r.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	if offset >= len(runs) {
		return []Run{}, nil
	}
	end := len(runs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return runs[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)
