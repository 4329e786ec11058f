package kvdb

import "errors"

// ErrNotFound is returned by Get for missing keys.
var ErrNotFound = errors.New("kvdb: not found")

// Database is the minimal key-value engine the indexer persists into.
type Database interface {
	Get(key []byte) ([]byte, error)
	Put(key []byte, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	NewBatch() Batch
	Close() error
}

// Batch accumulates writes applied atomically by Write.
type Batch interface {
	Put(key []byte, value []byte) error
	Delete(key []byte) error
	ValueSize() int
	Write() error
	Reset()
}
