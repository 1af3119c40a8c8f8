package usage

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu    sync.RWMutex
	limit int
	data  map[string]Usage
}

func newMemoryStore(limit int) *memoryStore {
	if limit <= 0 {
		limit = 25
	}
	return &memoryStore{
		limit: limit,
		data:  make(map[string]Usage),
	}
}

func (s *memoryStore) defaultUsage() Usage {
	return Usage{
		Limit:    s.limit,
		Used:     0,
		ResetsAt: time.Now().UTC().Add(quotaPeriodDays * 24 * time.Hour),
	}
}

func (s *memoryStore) Get(ctx context.Context, sessionID string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.RLock()
	u, ok := s.data[sessionID]
	s.mu.RUnlock()
	if ok {
		return u, nil
	}
	return s.ensure(ctx, sessionID)
}

func (s *memoryStore) EnsurePeriod(ctx context.Context, sessionID string) (Usage, error) {
	return s.ensure(ctx, sessionID)
}

func (s *memoryStore) ensure(ctx context.Context, sessionID string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data[sessionID]
	if !ok {
		u = s.defaultUsage()
	}
	if !now.Before(u.ResetsAt) {
		u.Used = 0
		u.ResetsAt = now.Add(quotaPeriodDays * 24 * time.Hour)
	}
	s.data[sessionID] = u
	return u, nil
}

func (s *memoryStore) Consume(ctx context.Context, sessionID string, n int) (Usage, error) {
	if n <= 0 {
		return s.ensure(ctx, sessionID)
	}
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data[sessionID]
	if !ok {
		u = s.defaultUsage()
	}
	if !now.Before(u.ResetsAt) {
		u.Used = 0
		u.ResetsAt = now.Add(quotaPeriodDays * 24 * time.Hour)
	}
	if u.Used+n > u.Limit {
		return Usage{}, ErrLimitReached
	}
	u.Used += n
	s.data[sessionID] = u
	return u, nil
}

func (s *memoryStore) Reset(ctx context.Context, sessionID string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data[sessionID]
	if !ok {
		u = s.defaultUsage()
	}
	u.Used = 0
	u.ResetsAt = now.Add(quotaPeriodDays * 24 * time.Hour)
	s.data[sessionID] = u
	return u, nil
}
