package sandbox

import (
	"github.com/alkanes/alkanescore/lib/storage/kvdb"
)

// DBModel exposes a kvdb.Database as the root Store of an overlay chain.
type DBModel struct {
	db kvdb.Database
}

var _ Store = (*DBModel)(nil)

// NewDBModel wraps db.
func NewDBModel(db kvdb.Database) *DBModel {
	return &DBModel{db: db}
}

// Get maps kvdb.ErrNotFound to ErrNotFound.
func (m *DBModel) Get(key []byte) ([]byte, error) {
	v, err := m.db.Get(key)
	if err == kvdb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

// Put writes through.
func (m *DBModel) Put(key []byte, value []byte) error {
	return m.db.Put(key, value)
}

// Del writes through.
func (m *DBModel) Del(key []byte) error {
	return m.db.Delete(key)
}

// Flush writes o's write set to db in one batch and releases o.
func Flush(o *Overlay, db kvdb.Database) error {
	if o.Released() {
		return ErrReleased
	}
	batch := db.NewBatch()
	for _, w := range o.WriteSet() {
		var err error
		if w.Deleted {
			err = batch.Delete(w.Key)
		} else {
			err = batch.Put(w.Key, w.Value)
		}
		if err != nil {
			return err
		}
	}
	if err := batch.Write(); err != nil {
		return err
	}
	o.release()
	return nil
}
