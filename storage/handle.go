package storage

import (
	"context"
	"errors"
	"fmt"
)

// engine is implemented by each Database and does the actual reads and
// writes. Keys passed to it already carry the namespace prefix.
type engine interface {
	backend() Backend
	get(key []byte) ([]byte, error)
	set(key, value []byte) error
	isClosed() bool
}

// handle implements KeyValue on top of an engine, scoping every key to a
// namespace.
type handle struct {
	eng    engine
	prefix []byte
	closed bool
}

func openHandle(ctx context.Context, eng engine, namespace string) (KeyValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if eng.isClosed() {
		observe(eng.backend(), "open", ErrClosed)
		return nil, ErrClosed
	}
	observe(eng.backend(), "open", nil)

	var p []byte
	if namespace != "" {
		p = []byte(namespace + "/")
	}
	return &handle{eng: eng, prefix: p}, nil
}

func (h *handle) key(k []byte) []byte {
	nk := make([]byte, 0, len(h.prefix)+len(k))
	nk = append(nk, h.prefix...)
	return append(nk, k...)
}

// Put upserts an entry
func (h *handle) Put(entry KVEntry) error {
	if h.closed {
		return ErrClosed
	}
	err := h.eng.set(h.key(entry.Key), entry.Value)
	observe(h.eng.backend(), "put", err)
	return err
}

// Read returns an entry by key.
func (h *handle) Read(key []byte) (KVEntry, error) {
	if h.closed {
		return KVEntry{}, ErrClosed
	}
	v, err := h.eng.get(h.key(key))
	observe(h.eng.backend(), "read", err)
	if err != nil {
		return KVEntry{}, err
	}
	return KVEntry{
		Key:   key,
		Value: v,
	}, nil
}

// Close marks the handle as unusable. It's safe to call more than once.
func (h *handle) Close() error {
	h.closed = true
	return nil
}

// notFound wraps ErrKeyNotFound with the key that was missing
func notFound(key []byte) error {
	return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrKeyNotFound):
		return "not_found"
	default:
		return "error"
	}
}
