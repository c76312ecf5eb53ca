package storage

// storage contains the KeyValue interface for working with a persistent key/
// value store, as well as implementations for BadgerDB, bbolt, and an
// in-memory map. Note that the storage package isn't designed to represent
// _what_ is stored in the database, and deals only in opaque binary data.
//
// A Database is opened once per process. Callers get a short-lived KeyValue
// handle from it for each unit of work and close the handle when done; closing
// a handle never closes the Database.
