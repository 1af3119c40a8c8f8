package statements

import "time"

// StatementFile represents an uploaded bank statement owned by a session.
type StatementFile struct {
	ID               string
	SessionID        string
	FileName         string
	MimeType         string
	SizeBytes        int64
	StorageKey       string
	ExtractedTextKey string
	ExtractedAt      *time.Time
	CreatedAt        time.Time
}
