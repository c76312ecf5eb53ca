package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog/log"
)

// BadgerDB implements Database and represents the application's connection
// to BadgerDB.
type BadgerDB struct {
	connection *badger.DB
	keyTTL     time.Duration // TTL for each key in the db; zero means none
	namespace  string
}

// NewBadgerDB initializes the BadgerDB embedded database. It is up to the
// caller to close the database with Close().
func NewBadgerDB(conf *KVConfig) (*BadgerDB, error) {
	// Open the Badger database at dirPath.
	// See: https://dgraph.io/docs/badger/get-started/#opening-a-database
	opts := badger.DefaultOptions(conf.StorageDirPath).WithLogger(badgerLogger{})
	db, err := badger.Open(opts)

	if err != nil {
		return &BadgerDB{}, fmt.Errorf("can't open the db connection: %v", err)
	}

	return &BadgerDB{
		connection: db,
		keyTTL:     conf.KeyTTLDuration,
		namespace:  conf.Namespace,
	}, nil
}

// Open returns a handle onto the configured namespace
func (db *BadgerDB) Open(ctx context.Context) (KeyValue, error) {
	return openHandle(ctx, db, db.namespace)
}

func (db *BadgerDB) backend() Backend {
	return BackendBadger
}

func (db *BadgerDB) isClosed() bool {
	return db.connection == nil || db.connection.IsClosed()
}

func (db *BadgerDB) set(key, value []byte) error {
	err := db.connection.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, value)
		// A zero TTL would expire the entry immediately
		if db.keyTTL > 0 {
			e = e.WithTTL(db.keyTTL)
		}
		err := txn.SetEntry(e)
		if err != nil {
			return fmt.Errorf("could not set the KV pair: %v", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %v", err)
	}
	return nil
}

func (db *BadgerDB) get(key []byte) ([]byte, error) {
	var val []byte
	// See: https://dgraph.io/docs/badger/get-started/#read-only-transactions
	err := db.connection.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)

		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFound(key)
		}
		if err != nil {
			return fmt.Errorf("can't retrieve a value for the key provided: %v", err)
		}

		// We copy values rather than return them directly because item.Value()
		// is considered undefined behavior outside a transaction.
		// https://godoc.org/github.com/dgraph-io/badger#Item.Value
		val, err = item.ValueCopy(nil)

		if err != nil {
			return fmt.Errorf("can't copy the value from the database: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Cleanup performs BadgerDB's garbage collection routine with the
// recommended discardRatio.
//
// See: https://pkg.go.dev/github.com/dgraph-io/badger/v3#DB.RunValueLogGC
//
// This is the only time old records are actually removed, so make sure you're
// setting TTLs for records if you want them to go away.
func (db *BadgerDB) Cleanup() error {
	var discardRatio float64 = .5
	err := db.connection.RunValueLogGC(discardRatio)
	// If the GC determines that it can't rewrite anything, don't worry the
	// caller--just skip it
	if err == nil || errors.Is(err, badger.ErrNoRewrite) {
		mCleanup.WithLabelValues(string(BackendBadger), "ok").Inc()
		return nil
	}
	mCleanup.WithLabelValues(string(BackendBadger), "error").Inc()
	return err
}

// Close tears down the database connection. You should defer this.
func (db *BadgerDB) Close() error {
	err := db.connection.Close()
	if err != nil {
		return fmt.Errorf("could not close the database: %v", err)
	}
	return nil
}

// badgerLogger sends Badger's own logging through zerolog
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	log.Error().Str("module", "badger").Msg(badgerMsg(format, args))
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	log.Warn().Str("module", "badger").Msg(badgerMsg(format, args))
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	log.Debug().Str("module", "badger").Msg(badgerMsg(format, args))
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	log.Trace().Str("module", "badger").Msg(badgerMsg(format, args))
}

// Badger terminates most of its messages with a newline
func badgerMsg(format string, args []interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
