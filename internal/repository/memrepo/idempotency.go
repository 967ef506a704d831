package memrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultIdempotencyTTL = 24 * time.Hour

type idempotencyEntry struct {
	saleID    string
	expiresAt time.Time
}

// IdempotencyStore ключи идемпотентности в памяти процесса. Пустой saleID означает "в работе".
type IdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]idempotencyEntry
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{ttl: ttl, now: time.Now, entries: make(map[string]idempotencyEntry)}
}

func (s *IdempotencyStore) Acquire(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err //nolint:wrapcheck
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.entries[key]; ok && now.Before(entry.expiresAt) {
		return entry.saleID, false, nil
	}
	s.entries[key] = idempotencyEntry{expiresAt: now.Add(s.ttl)}
	return "", true, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, saleID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = idempotencyEntry{saleID: saleID.String(), expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
