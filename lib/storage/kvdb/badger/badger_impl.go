package badger

import (
	"github.com/dgraph-io/badger/v3"

	"github.com/alkanes/alkanescore/lib/storage/kvdb"
)

// BadgerDatabase wraps a badger store behind kvdb.Database
type BadgerDatabase struct {
	path string
	db   *badger.DB
}

var _ kvdb.Database = (*BadgerDatabase)(nil)

func init() {
	kvdb.Register(kvdb.KVEngineTypeBadger, NewKVDBInstance)
}

// NewKVDBInstance opens a badger instance
func NewKVDBInstance(param *kvdb.KVParameter) (kvdb.Database, error) {
	opts := badger.DefaultOptions(param.GetDBPath())
	if param.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil).
		WithBlockCacheSize(int64(param.GetMemCacheSize()) << 20)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerDatabase{path: param.GetDBPath(), db: db}, nil
}

// Path returns the path to the database directory.
func (bdb *BadgerDatabase) Path() string {
	return bdb.path
}

// Get returns the given key if it's present.
func (bdb *BadgerDatabase) Get(key []byte) ([]byte, error) {
	var value []byte
	err := bdb.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, kvdb.ErrNotFound
	}
	return value, err
}

// Put puts the given key / value
func (bdb *BadgerDatabase) Put(key []byte, value []byte) error {
	return bdb.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete deletes the key
func (bdb *BadgerDatabase) Delete(key []byte) error {
	return bdb.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Has if the given key exists
func (bdb *BadgerDatabase) Has(key []byte) (bool, error) {
	_, err := bdb.Get(key)
	if err == kvdb.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

// Close close database instance
func (bdb *BadgerDatabase) Close() error {
	return bdb.db.Close()
}

// NewBatch new a write batch
func (bdb *BadgerDatabase) NewBatch() kvdb.Batch {
	return &BadgerBatch{db: bdb.db, wb: bdb.db.NewWriteBatch()}
}

// BadgerBatch define batch data structure of badger
type BadgerBatch struct {
	db   *badger.DB
	wb   *badger.WriteBatch
	size int
}

// Put put the key / value to batch
func (b *BadgerBatch) Put(key, value []byte) error {
	b.size += len(value)
	return b.wb.Set(copyBytes(key), copyBytes(value))
}

// Delete delete the key from batch
func (b *BadgerBatch) Delete(key []byte) error {
	b.size += len(key)
	return b.wb.Delete(copyBytes(key))
}

// Write flushes the batch
func (b *BadgerBatch) Write() error {
	err := b.wb.Flush()
	b.wb = b.db.NewWriteBatch()
	return err
}

// ValueSize return value size of batch
func (b *BadgerBatch) ValueSize() int {
	return b.size
}

// Reset drops pending writes
func (b *BadgerBatch) Reset() {
	b.wb.Cancel()
	b.wb = b.db.NewWriteBatch()
	b.size = 0
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
