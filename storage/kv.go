package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Backend names a storage engine
type Backend string

const (
	// BackendBadger stores entries in a BadgerDB directory
	BackendBadger Backend = "badger"
	// BackendBolt stores entries in a single bbolt file
	BackendBolt Backend = "bolt"
	// BackendMemory keeps entries in memory for the life of the process
	BackendMemory Backend = "memory"
)

// DefaultNamespace is the logical namespace used when the config doesn't
// name one
const DefaultNamespace = "default"

// Cleanup runs every 10 minutes unless configured otherwise
const defaultCleanupInterval = time.Duration(10) * time.Minute

var (
	// ErrKeyNotFound is returned (possibly wrapped) by KeyValue.Read when
	// there is no value for a key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrClosed is returned when opening a handle on a closed Database, or
	// when using a handle after closing it.
	ErrClosed = errors.New("storage is closed")
)

var validate = validator.New()

// KVConfig contains settings for the storage layer
type KVConfig struct {
	Backend         Backend       `yaml:"backend" json:"backend" validate:"oneof=badger bolt memory"`
	StorageDirPath  string        `yaml:"storageDir" json:"storageDir" validate:"required_unless=Backend memory"`
	Namespace       string        `yaml:"namespace" json:"namespace"`
	KeyTTLDuration  time.Duration `yaml:"keyTTL" json:"keyTTL" validate:"gte=0"`
	CleanupInterval time.Duration `yaml:"cleanupInterval" json:"cleanupInterval" validate:"gte=0"`
}

// UnmarshalYAML parses the storage section of a user-provided config. Missing
// values are left at their zero values for CheckAndSetDefaults to fill in.
func (c *KVConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	v := make(map[string]string)
	err := unmarshal(&v)

	if err != nil {
		return fmt.Errorf("can't parse the storage config: %v", err)
	}

	c.Backend = Backend(v["backend"])
	c.StorageDirPath = v["storageDir"]
	c.Namespace = v["namespace"]

	if d, ok := v["keyTTL"]; ok {
		pd, err := time.ParseDuration(d)
		if err != nil {
			return fmt.Errorf("can't parse the key TTL as a duration: %v", err)
		}
		c.KeyTTLDuration = pd
	}

	if d, ok := v["cleanupInterval"]; ok {
		pd, err := time.ParseDuration(d)
		if err != nil {
			return fmt.Errorf("can't parse the cleanup interval as a duration: %v", err)
		}
		c.CleanupInterval = pd
	}

	return nil
}

// CheckAndSetDefaults validates c and either returns a copy of c with default
// settings applied or returns an error due to an invalid configuration
func (c *KVConfig) CheckAndSetDefaults() (KVConfig, error) {
	n := *c

	if n.Backend == "" {
		n.Backend = BackendBadger
	}
	if n.Namespace == "" {
		n.Namespace = DefaultNamespace
	}
	if n.CleanupInterval == 0 {
		n.CleanupInterval = defaultCleanupInterval
	}

	if err := validate.Struct(n); err != nil {
		return KVConfig{}, fmt.Errorf("invalid storage config: %w", err)
	}

	return n, nil
}

// KeyValue is a handle onto a single logical namespace of a Database.
// Handles are cheap and meant to live for a single unit of work.
type KeyValue interface {
	// Replace the value for a key or create it if it doesn't exist
	Put(KVEntry) error
	// Return the entry for a key. Returns an error wrapping ErrKeyNotFound
	// if there is none.
	Read(key []byte) (KVEntry, error)
	// Release the handle. The underlying Database stays open.
	Close() error
}

// Opener hands out KeyValue handles
type Opener interface {
	Open(ctx context.Context) (KeyValue, error)
}

// OpenerFunc lets an ordinary function act as an Opener
type OpenerFunc func(ctx context.Context) (KeyValue, error)

// Open calls f
func (f OpenerFunc) Open(ctx context.Context) (KeyValue, error) {
	return f(ctx)
}

// Database exposes a common interface for a storage engine.
//
// Implentations need to include connection logic in code to initialize
// a Database.
type Database interface {
	Opener
	// Cleanup performs routine maintenance, including removing expired
	// entries where the engine doesn't do that by itself.
	Cleanup() error
	// Drain/tear down the connection, or something analogous for
	// an embedded database
	Close() error
}

// KVEntry is what we'll write to and read from the KV store
type KVEntry struct {
	Key   []byte
	Value []byte
}

// NewDatabase opens the Database named by conf.Backend. It is up to the
// caller to close it.
func NewDatabase(conf *KVConfig) (Database, error) {
	switch conf.Backend {
	case BackendBadger:
		return NewBadgerDB(conf)
	case BackendBolt:
		return NewBoltDB(conf)
	case BackendMemory:
		return NewMemDB(conf), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", conf.Backend)
	}
}
