package tokens

import (
	"context"
	"sync"
	"time"
)

// MemStore is an in-process Store for single-node deployments and tests.
// It has no native expiry, so expired records are evicted lazily on reads
// and actively by PurgeExpired.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]TokenRecord
	nowFunc func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string]TokenRecord),
		nowFunc: time.Now,
	}
}

func (s *MemStore) Store(ctx context.Context, token string, username string, scope string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	now := s.nowFunc().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[token] = TokenRecord{
		Token:     token,
		Username:  username,
		Scope:     scope,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		Source:    SourceTag,
	}
	return nil
}

func (s *MemStore) Retrieve(ctx context.Context, filter Filter) (*TokenRecord, error) {
	now := s.nowFunc()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if filter.Token != "" {
		record, ok := s.records[filter.Token]
		if !ok || !record.Live(now) {
			return nil, ErrNotFound
		}
		return &record, nil
	}
	for _, record := range s.records {
		if record.Source != SourceTag || !record.Live(now) {
			continue
		}
		if record.Username != filter.Username || record.Scope != filter.Scope {
			continue
		}
		return &record, nil
	}
	return nil, ErrNotFound
}

func (s *MemStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, token)
	return nil
}

func (s *MemStore) PurgeExpired(ctx context.Context) error {
	now := s.nowFunc()
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, record := range s.records {
		if !record.Live(now) {
			delete(s.records, token)
		}
	}
	return nil
}

// Put inserts a prebuilt record verbatim. Records from other systems
// sharing the store can be simulated this way in tests.
func (s *MemStore) Put(record TokenRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Token] = record
}
