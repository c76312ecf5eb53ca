package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltFileName is the name of the database file inside the storage directory
const BoltFileName = "one-record.db"

var boltBucket = []byte("entries")

// Every value is stored behind an 8-byte header holding its expiry as Unix
// nanoseconds, or zero if it never expires.
const boltHeaderLen = 8

// BoltDB implements Database on top of a single bbolt file. bbolt has no
// notion of expiring keys, so BoltDB tracks expiry itself and removes
// expired entries during Cleanup.
type BoltDB struct {
	connection *bolt.DB
	keyTTL     time.Duration
	namespace  string
	closed     atomic.Bool
}

// NewBoltDB opens (creating if needed) the bbolt file in the configured
// storage directory. It is up to the caller to close the database with
// Close().
func NewBoltDB(conf *KVConfig) (*BoltDB, error) {
	if err := os.MkdirAll(conf.StorageDirPath, 0700); err != nil {
		return nil, fmt.Errorf("can't create the storage directory: %v", err)
	}

	p := filepath.Join(conf.StorageDirPath, BoltFileName)
	// Don't wait forever if another process holds the file lock
	db, err := bolt.Open(p, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("can't open the db connection: %v", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("can't create the bucket: %v", err)
	}

	return &BoltDB{
		connection: db,
		keyTTL:     conf.KeyTTLDuration,
		namespace:  conf.Namespace,
	}, nil
}

// Open returns a handle onto the configured namespace
func (db *BoltDB) Open(ctx context.Context) (KeyValue, error) {
	return openHandle(ctx, db, db.namespace)
}

func (db *BoltDB) backend() Backend {
	return BackendBolt
}

func (db *BoltDB) isClosed() bool {
	return db.closed.Load()
}

func (db *BoltDB) set(key, value []byte) error {
	var exp int64
	if db.keyTTL > 0 {
		exp = time.Now().Add(db.keyTTL).UnixNano()
	}

	var buf bytes.Buffer
	buf.Grow(boltHeaderLen + len(value))
	// Writes to a bytes.Buffer don't fail
	_ = binary.Write(&buf, binary.LittleEndian, exp)
	buf.Write(value)

	err := db.connection.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put(key, buf.Bytes())
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %v", err)
	}
	return nil
}

func (db *BoltDB) get(key []byte) ([]byte, error) {
	var val []byte
	err := db.connection.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(boltBucket).Get(key)
		if raw == nil || boltExpired(raw, time.Now()) {
			return notFound(key)
		}
		// Values returned by bbolt are only valid for the life of the
		// transaction
		val = append([]byte{}, raw[boltHeaderLen:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Cleanup deletes expired entries
func (db *BoltDB) Cleanup() error {
	now := time.Now()
	err := db.connection.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		// Deleting through a cursor mid-iteration can skip entries, so
		// collect the keys first
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if boltExpired(v, now) {
				expired = append(expired, append([]byte{}, k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		mCleanup.WithLabelValues(string(BackendBolt), "error").Inc()
		return fmt.Errorf("can't remove expired entries: %v", err)
	}
	mCleanup.WithLabelValues(string(BackendBolt), "ok").Inc()
	return nil
}

// Close tears down the database connection. You should defer this.
func (db *BoltDB) Close() error {
	db.closed.Store(true)
	if err := db.connection.Close(); err != nil {
		return fmt.Errorf("could not close the database: %v", err)
	}
	return nil
}

// boltExpired reports whether a stored value is past its expiry. Values too
// short to carry a header are treated as expired so they get cleaned up.
func boltExpired(raw []byte, now time.Time) bool {
	if len(raw) < boltHeaderLen {
		return true
	}
	exp := int64(binary.LittleEndian.Uint64(raw[:boltHeaderLen]))
	return exp != 0 && now.UnixNano() >= exp
}
