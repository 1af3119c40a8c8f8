package statements

import (
	"context"
	"time"
)

// StatementsRepo defines persistence operations for statement files.
type StatementsRepo interface {
	Create(ctx context.Context, f StatementFile) error
	GetByStorageKey(ctx context.Context, sessionID, storageKey string) (StatementFile, error)
	ListBySession(ctx context.Context, sessionID string) ([]StatementFile, error)
	DeleteBySession(ctx context.Context, sessionID string) ([]StatementFile, error)
	ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]StatementFile, error)
	Delete(ctx context.Context, id string) error
	MarkExtracted(ctx context.Context, id, extractedKey string, extractedAt time.Time) error
}
