package tokens

import (
	"context"
	"errors"
	"time"
)

// SourceTag marks every record written by this service so it can share a
// backend with unrelated data.
const SourceTag = "tokend"

var (
	ErrNotFound   = errors.New("token not found")
	ErrInvalidTTL = errors.New("token ttl must be positive")
)

type TokenRecord struct {
	Token     string    `json:"token"     redis:"token"`
	Username  string    `json:"username"  redis:"username"`
	Scope     string    `json:"scope"     redis:"scope"`
	IssuedAt  time.Time `json:"issuedAt"  redis:"issued"`
	ExpiresAt time.Time `json:"expiresAt" redis:"expires"`
	Source    string    `json:"source"    redis:"source"`
}

func (r *TokenRecord) Live(now time.Time) bool {
	return r.ExpiresAt.After(now)
}

// RemainingTTL reports how long the record stays valid, truncated to whole
// seconds. Zero for expired records.
func (r *TokenRecord) RemainingTTL(now time.Time) time.Duration {
	remaining := r.ExpiresAt.Sub(now).Truncate(time.Second)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Filter selects records for Retrieve. A non-empty Token requests the
// exact-key lookup and the other fields are ignored. Otherwise the
// record's attributes must equal the filter's exactly, an empty Scope
// meaning unscoped. Only a record missing an attribute entirely matches
// through; records written by this service always carry every attribute.
type Filter struct {
	Token    string
	Username string
	Scope    string
}

// Store is the durable token mapping. Implementations must expire records
// at ExpiresAt on their own, either natively or on PurgeExpired sweeps,
// and must only ever hand out records carrying SourceTag on attribute
// scans.
type Store interface {
	// Store persists a new record with IssuedAt set to now and ExpiresAt
	// to now+ttl.
	Store(ctx context.Context, token string, username string, scope string, ttl time.Duration) error
	// Retrieve returns the first live record matching the filter, or
	// ErrNotFound.
	Retrieve(ctx context.Context, filter Filter) (*TokenRecord, error)
	// Delete removes a record. Deleting an absent token is not an error.
	Delete(ctx context.Context, token string) error
	// PurgeExpired actively evicts expired records on backends without
	// native expiry. No-op otherwise.
	PurgeExpired(ctx context.Context) error
}
