package sandbox

import (
	"errors"
)

var (
	// ErrHasDel is returned when key was marked as del
	ErrHasDel = errors.New("key has been mark as del")
	// ErrNotFound is returned when key is not found
	ErrNotFound = errors.New("key not found")
	// ErrReleased is returned when an overlay is used after merge or discard
	ErrReleased = errors.New("overlay already released")
)

// Reader is the read side of a key space.
type Reader interface {
	// Get returns ErrNotFound for missing keys.
	Get(key []byte) ([]byte, error)
}

// Store is a key space that can be written.
type Store interface {
	Reader
	Put(key []byte, value []byte) error
	Del(key []byte) error
}

// WriteEntry is one element of a write set.
type WriteEntry struct {
	Key     []byte
	Value   []byte
	Deleted bool
}

// Overlay buffers writes over a parent key space. Reads fall through to the
// parent for keys the overlay has not touched; the parent is never written
// until Merge.
type Overlay struct {
	parent   Reader
	writes   *MemModel
	released bool
}

var _ Store = (*Overlay)(nil)

// NewOverlay creates a write buffer on top of parent.
func NewOverlay(parent Reader) *Overlay {
	return &Overlay{
		parent: parent,
		writes: NewMemModel(),
	}
}

// Derive opens a child scope whose writes stay invisible to o until merged.
func (o *Overlay) Derive() *Overlay {
	return NewOverlay(o)
}

// Get 先读本层写集，再穿透到父层
func (o *Overlay) Get(key []byte) ([]byte, error) {
	if o.released {
		return nil, ErrReleased
	}
	v, err := o.writes.Get(key)
	if err == nil {
		return v, nil
	}
	if err == ErrHasDel {
		return nil, ErrNotFound
	}
	if o.parent == nil {
		return nil, ErrNotFound
	}
	v, err = o.parent.Get(key)
	if err == ErrHasDel {
		return nil, ErrNotFound
	}
	return v, err
}

// Put buffers a write.
func (o *Overlay) Put(key []byte, value []byte) error {
	if o.released {
		return ErrReleased
	}
	return o.writes.Put(key, value)
}

// Del buffers a delete.
func (o *Overlay) Del(key []byte) error {
	if o.released {
		return ErrReleased
	}
	return o.writes.Del(key)
}

// WriteSet returns the buffered writes in key order.
func (o *Overlay) WriteSet() []WriteEntry {
	set := make([]WriteEntry, 0, o.writes.Len())
	o.writes.Walk(func(key []byte, value []byte, deleted bool) bool {
		set = append(set, WriteEntry{Key: key, Value: value, Deleted: deleted})
		return true
	})
	return set
}

// Dirty reports whether anything was written.
func (o *Overlay) Dirty() bool {
	return o.writes.Len() > 0
}

// Merge applies the write set to the parent and releases o.
func (o *Overlay) Merge() error {
	if o.released {
		return ErrReleased
	}
	parent, ok := o.parent.(Store)
	if !ok {
		return errors.New("overlay parent is read only")
	}
	if err := o.CommitTo(parent); err != nil {
		return err
	}
	o.release()
	return nil
}

// CommitTo applies the write set, in key order, to dst without releasing o.
func (o *Overlay) CommitTo(dst Store) error {
	for _, w := range o.WriteSet() {
		var err error
		if w.Deleted {
			err = dst.Del(w.Key)
		} else {
			err = dst.Put(w.Key, w.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Discard drops every buffered write. The parent is left untouched.
func (o *Overlay) Discard() {
	o.release()
}

// Released reports whether o was merged or discarded.
func (o *Overlay) Released() bool {
	return o.released
}

func (o *Overlay) release() {
	o.writes.Clear()
	o.released = true
}
