package genid

import (
	"fmt"
	"iter"
)

type row[K comparable, V any] struct {
	key   K
	value V
}

// Map is a Seq of keyed rows with a reverse index from key to id. Each key
// appears at most once; inserting an existing key replaces its row.
type Map[K comparable, V any] struct {
	rows  Seq[row[K, V]]
	index map[K]ID
}

// Insert stores v under k. When k already had a row that row is removed first
// and replaced reports true.
func (m *Map[K, V]) Insert(k K, v V) (id ID, replaced bool) {
	if m.index == nil {
		m.index = make(map[K]ID)
	}
	if old, ok := m.index[k]; ok {
		if _, ok := m.rows.Remove(old); !ok {
			panic(fmt.Sprintf("genid: index entry %v for key %v has no row", old, k))
		}
		delete(m.index, k)
		replaced = true
	}
	id = m.rows.Insert(row[K, V]{key: k, value: v})
	m.index[k] = id
	return id, replaced
}

// Lookup returns the id stored for k.
func (m *Map[K, V]) Lookup(k K) (ID, bool) {
	id, ok := m.index[k]
	if !ok || !m.rows.Contains(id) {
		return ID{}, false
	}
	return id, true
}

// Get returns the value stored under k.
func (m *Map[K, V]) Get(k K) (V, bool) {
	id, ok := m.Lookup(k)
	if !ok {
		var zero V
		return zero, false
	}
	return m.GetID(id)
}

// GetID returns the value stored at id.
func (m *Map[K, V]) GetID(id ID) (V, bool) {
	r, ok := m.rows.Get(id)
	return r.value, ok
}

// Ptr returns a pointer to the value at id, or nil.
func (m *Map[K, V]) Ptr(id ID) *V {
	if r := m.rows.Ptr(id); r != nil {
		return &r.value
	}
	return nil
}

// Key returns the key of the row at id.
func (m *Map[K, V]) Key(id ID) (K, bool) {
	r, ok := m.rows.Get(id)
	return r.key, ok
}

// Remove deletes the row stored under k.
func (m *Map[K, V]) Remove(k K) bool {
	id, ok := m.index[k]
	if !ok {
		return false
	}
	delete(m.index, k)
	_, ok = m.rows.Remove(id)
	return ok
}

// RemoveID deletes the row at id along with its index entry.
func (m *Map[K, V]) RemoveID(id ID) (K, V, bool) {
	r, ok := m.rows.Remove(id)
	if !ok {
		var zero V
		var zeroK K
		return zeroK, zero, false
	}
	if cur, ok := m.index[r.key]; ok && cur == id {
		delete(m.index, r.key)
	}
	return r.key, r.value, true
}

// Contains reports whether k has a row.
func (m *Map[K, V]) Contains(k K) bool {
	_, ok := m.Lookup(k)
	return ok
}

// Len returns the number of rows.
func (m *Map[K, V]) Len() int {
	return m.rows.Len()
}

// All iterates over the rows in slot order.
func (m *Map[K, V]) All() iter.Seq2[ID, K] {
	return func(yield func(ID, K) bool) {
		for id, r := range m.rows.All() {
			if !yield(id, r.key) {
				return
			}
		}
	}
}

// Set is a generational table of unique keys.
type Set[K comparable] struct {
	m Map[K, struct{}]
}

// NewSetFrom builds a set from keys. Duplicate keys are a programming error
// and panic.
func NewSetFrom[K comparable](keys ...K) *Set[K] {
	s := &Set[K]{}
	for _, k := range keys {
		if _, replaced := s.Insert(k); replaced {
			panic(fmt.Sprintf("genid: duplicate key %v", k))
		}
	}
	return s
}

// Insert adds k, replacing its previous row if there was one.
func (s *Set[K]) Insert(k K) (ID, bool) {
	return s.m.Insert(k, struct{}{})
}

// Get returns the stored key equal to k.
func (s *Set[K]) Get(k K) (K, bool) {
	id, ok := s.m.Lookup(k)
	if !ok {
		var zero K
		return zero, false
	}
	return s.m.Key(id)
}

// Lookup returns the id of k.
func (s *Set[K]) Lookup(k K) (ID, bool) {
	return s.m.Lookup(k)
}

// GetID returns the key at id.
func (s *Set[K]) GetID(id ID) (K, bool) {
	return s.m.Key(id)
}

// Remove deletes k.
func (s *Set[K]) Remove(k K) bool {
	return s.m.Remove(k)
}

// RemoveID deletes the key at id and returns it.
func (s *Set[K]) RemoveID(id ID) (K, bool) {
	k, _, ok := s.m.RemoveID(id)
	return k, ok
}

func (s *Set[K]) Contains(k K) bool { return s.m.Contains(k) }

func (s *Set[K]) Len() int { return s.m.Len() }

// All iterates over the keys in slot order.
func (s *Set[K]) All() iter.Seq2[ID, K] {
	return s.m.All()
}
