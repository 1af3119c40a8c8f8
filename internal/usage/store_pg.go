package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGStore persists session quotas in Postgres.
type PGStore struct {
	DB    *sql.DB
	Limit int
}

// NewPGStore constructs a PGStore with the configured quota limit.
func NewPGStore(db *sql.DB, limit int) *PGStore {
	if limit <= 0 {
		limit = 25
	}
	return &PGStore{DB: db, Limit: limit}
}

func (s *PGStore) Get(ctx context.Context, sessionID string) (Usage, error) {
	return s.EnsurePeriod(ctx, sessionID)
}

// EnsurePeriod initializes the session row and resets an expired window.
func (s *PGStore) EnsurePeriod(ctx context.Context, sessionID string) (Usage, error) {
	const upsert = `
INSERT INTO session_usage (session_id, used, usage_limit, period_start)
VALUES ($1, 0, $2, now())
ON CONFLICT (session_id) DO UPDATE
SET used = CASE WHEN session_usage.period_start + make_interval(days => $3) <= now()
                THEN 0 ELSE session_usage.used END,
    period_start = CASE WHEN session_usage.period_start + make_interval(days => $3) <= now()
                        THEN now() ELSE session_usage.period_start END,
    updated_at = now()
RETURNING used, usage_limit, period_start`

	return s.scan(s.DB.QueryRowContext(ctx, upsert, sessionID, s.Limit, quotaPeriodDays))
}

// Consume atomically increments usage if within the limit.
func (s *PGStore) Consume(ctx context.Context, sessionID string, n int) (Usage, error) {
	if n <= 0 {
		return s.EnsurePeriod(ctx, sessionID)
	}
	if _, err := s.EnsurePeriod(ctx, sessionID); err != nil {
		return Usage{}, err
	}

	const query = `
UPDATE session_usage
SET used = used + $1, updated_at = now()
WHERE session_id = $2 AND used + $1 <= usage_limit
RETURNING used, usage_limit, period_start`

	u, err := s.scan(s.DB.QueryRowContext(ctx, query, n, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Usage{}, ErrLimitReached
		}
		return Usage{}, err
	}
	return u, nil
}

// Reset zeroes usage and restarts the window.
func (s *PGStore) Reset(ctx context.Context, sessionID string) (Usage, error) {
	const query = `
INSERT INTO session_usage (session_id, used, usage_limit, period_start)
VALUES ($1, 0, $2, now())
ON CONFLICT (session_id) DO UPDATE
SET used = 0, period_start = now(), updated_at = now()
RETURNING used, usage_limit, period_start`

	return s.scan(s.DB.QueryRowContext(ctx, query, sessionID, s.Limit))
}

func (s *PGStore) scan(row *sql.Row) (Usage, error) {
	var u Usage
	var periodStart time.Time
	if err := row.Scan(&u.Used, &u.Limit, &periodStart); err != nil {
		return Usage{}, err
	}
	u.ResetsAt = periodStart.Add(quotaPeriodDays * 24 * time.Hour)
	return u, nil
}

var _ store = (*PGStore)(nil)
