package underwriting

import "context"

// Repo defines persistence operations for underwriting runs.
type Repo interface {
	Create(ctx context.Context, run Run) error
	GetByID(ctx context.Context, sessionID, runID string) (Run, error)
	UpdateStatus(ctx context.Context, runID, status string, result *Document, errorMessage string) error
	ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]Run, error)
}
