package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatchSize = 100

// RedisStore keeps token records as Redis hashes keyed by token, with the
// record TTL delegated to Redis key expiry. Expired records vanish on their
// own, so PurgeExpired is a no-op.
type RedisStore struct {
	rdb       redis.UniversalClient
	keyPrefix string
}

func NewRedisStore(rdb redis.UniversalClient, keyPrefix string) *RedisStore {
	return &RedisStore{
		rdb:       rdb,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisStore) Store(ctx context.Context, token string, username string, scope string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	now := time.Now().UTC()
	record := TokenRecord{
		Token:     token,
		Username:  username,
		Scope:     scope,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		Source:    SourceTag,
	}
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, s.keyPrefix+token, record)
	pipe.ExpireAt(ctx, s.keyPrefix+token, record.ExpiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func (s *RedisStore) Retrieve(ctx context.Context, filter Filter) (*TokenRecord, error) {
	if filter.Token != "" {
		return s.getRecord(ctx, s.keyPrefix+filter.Token)
	}
	return s.scanMatch(ctx, filter)
}

func (s *RedisStore) getRecord(ctx context.Context, key string) (*TokenRecord, error) {
	cmd := s.rdb.HGetAll(ctx, key)
	if err := cmd.Err(); err != nil {
		return nil, fmt.Errorf("failed to retrieve token: %w", err)
	}
	if len(cmd.Val()) == 0 {
		return nil, ErrNotFound
	}
	var record TokenRecord
	if err := cmd.Scan(&record); err != nil {
		return nil, err
	}
	if !record.Live(time.Now()) {
		return nil, ErrNotFound
	}
	return &record, nil
}

// scanMatch walks all keys under the store prefix looking for the first
// live record whose attributes equal the filter's. Records written by
// other tenants of the same database carry a different source tag and are
// skipped.
func (s *RedisStore) scanMatch(ctx context.Context, filter Filter) (*TokenRecord, error) {
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, s.keyPrefix+"*", scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan tokens: %w", err)
		}
		for _, key := range keys {
			cmd := s.rdb.HGetAll(ctx, key)
			if err := cmd.Err(); err != nil {
				return nil, fmt.Errorf("failed to scan tokens: %w", err)
			}
			vals := cmd.Val()
			if vals["source"] != SourceTag {
				continue
			}
			if !matchAttrs(vals, filter) {
				continue
			}
			var record TokenRecord
			if err := cmd.Scan(&record); err != nil {
				return nil, err
			}
			if !record.Live(time.Now()) {
				continue
			}
			return &record, nil
		}
		cursor = next
		if cursor == 0 {
			return nil, ErrNotFound
		}
	}
}

// matchAttrs compares the filter against the raw hash fields. Values must
// be equal exactly, an empty string included. A hash missing the field
// altogether matches through, which cannot happen for records this service
// writes.
func matchAttrs(vals map[string]string, filter Filter) bool {
	if v, ok := vals["username"]; ok && v != filter.Username {
		return false
	}
	if v, ok := vals["scope"]; ok && v != filter.Scope {
		return false
	}
	return true
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, s.keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// PurgeExpired is a no-op, Redis expires keys natively.
func (s *RedisStore) PurgeExpired(ctx context.Context) error {
	return nil
}
