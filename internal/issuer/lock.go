package issuer

import (
	"context"
	"sync"
)

// Locker serializes concurrent issuance for the same (username, scope) key
// so the dedupe check and the mint cannot interleave across requests.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// KeyLocker is an in-process Locker. Entries are dropped once the last
// holder releases, so the key space stays bounded by concurrency.
type KeyLocker struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

func NewKeyLocker() *KeyLocker {
	return &KeyLocker{
		entries: make(map[string]*lockEntry),
	}
}

func (l *KeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}, nil
}
