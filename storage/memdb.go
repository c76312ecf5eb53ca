package storage

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value   []byte
	expires time.Time // zero means never
}

// MemDB implements Database with a map. Data lives only as long as the
// process, which makes it handy for tests and throwaway deployments.
type MemDB struct {
	mu        sync.RWMutex
	entries   map[string]memEntry
	keyTTL    time.Duration
	namespace string
	closed    bool
}

// NewMemDB returns an empty in-memory database. conf may be nil, in which
// case entries never expire and no namespace is applied.
func NewMemDB(conf *KVConfig) *MemDB {
	db := &MemDB{entries: make(map[string]memEntry)}
	if conf != nil {
		db.keyTTL = conf.KeyTTLDuration
		db.namespace = conf.Namespace
	}
	return db
}

// Open returns a handle onto the configured namespace
func (db *MemDB) Open(ctx context.Context) (KeyValue, error) {
	return openHandle(ctx, db, db.namespace)
}

func (db *MemDB) backend() Backend {
	return BackendMemory
}

func (db *MemDB) isClosed() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.closed
}

func (db *MemDB) set(key, value []byte) error {
	e := memEntry{value: append([]byte{}, value...)}
	if db.keyTTL > 0 {
		e.expires = time.Now().Add(db.keyTTL)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	db.entries[string(key)] = e
	return nil
}

func (db *MemDB) get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, ErrClosed
	}
	e, ok := db.entries[string(key)]
	if !ok || e.expired(time.Now()) {
		return nil, notFound(key)
	}
	return append([]byte{}, e.value...), nil
}

// Cleanup deletes expired entries
func (db *MemDB) Cleanup() error {
	now := time.Now()
	db.mu.Lock()
	defer db.mu.Unlock()
	for k, e := range db.entries {
		if e.expired(now) {
			delete(db.entries, k)
		}
	}
	mCleanup.WithLabelValues(string(BackendMemory), "ok").Inc()
	return nil
}

// Close drops every entry
func (db *MemDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.closed = true
	db.entries = nil
	return nil
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}
