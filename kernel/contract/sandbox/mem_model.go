package sandbox

import (
	"bytes"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// entry is a value held in a MemModel; deleted marks a tombstone that hides
// the key from lower layers.
type entry struct {
	value   []byte
	deleted bool
}

// MemModel is an ordered in-memory key space.
type MemModel struct {
	tree *redblacktree.Tree
}

// NewMemModel returns an empty model.
func NewMemModel() *MemModel {
	return &MemModel{
		tree: redblacktree.NewWith(treeCompare),
	}
}

// Get returns the value under key. A tombstoned key yields ErrHasDel.
func (m *MemModel) Get(key []byte) ([]byte, error) {
	v, ok := m.tree.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	e := v.(*entry)
	if e.deleted {
		return nil, ErrHasDel
	}
	return e.value, nil
}

// Put stores a copy of value under key.
func (m *MemModel) Put(key []byte, value []byte) error {
	m.tree.Put(copyBytes(key), &entry{value: copyBytes(value)})
	return nil
}

// Del tombstones key.
func (m *MemModel) Del(key []byte) error {
	m.tree.Put(copyBytes(key), &entry{deleted: true})
	return nil
}

// Len is the number of keys written, tombstones included.
func (m *MemModel) Len() int {
	return m.tree.Size()
}

// Walk visits every key in ascending order until fn returns false.
func (m *MemModel) Walk(fn func(key []byte, value []byte, deleted bool) bool) {
	it := m.tree.Iterator()
	for it.Next() {
		e := it.Value().(*entry)
		if !fn(it.Key().([]byte), e.value, e.deleted) {
			return
		}
	}
}

// Clear drops every key.
func (m *MemModel) Clear() {
	m.tree.Clear()
}

func treeCompare(a, b interface{}) int {
	return bytes.Compare(a.([]byte), b.([]byte))
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
