package genid

import "iter"

type slot[V any] struct {
	gen      Generation
	occupied bool
	value    V
}

// Seq stores values behind reusable slot indices. A removed slot gets a new
// generation so ids handed out before the removal stop resolving.
type Seq[V any] struct {
	slots []slot[V]
	free  []int
	live  int
}

// Insert stores v in a free slot, or a new one, and returns its id.
func (s *Seq[V]) Insert(v V) ID {
	var idx int
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		s.slots = append(s.slots, slot[V]{gen: firstGeneration})
		idx = len(s.slots) - 1
	}
	sl := &s.slots[idx]
	sl.occupied = true
	sl.value = v
	s.live++
	return ID{Index: idx, Gen: sl.gen}
}

func (s *Seq[V]) lookup(id ID) *slot[V] {
	if s == nil || id.Index < 0 || id.Index >= len(s.slots) {
		return nil
	}
	sl := &s.slots[id.Index]
	if !sl.occupied || sl.gen != id.Gen {
		return nil
	}
	return sl
}

// Contains reports whether id names a live value.
func (s *Seq[V]) Contains(id ID) bool {
	return s.lookup(id) != nil
}

// Get returns the value for id.
func (s *Seq[V]) Get(id ID) (V, bool) {
	if sl := s.lookup(id); sl != nil {
		return sl.value, true
	}
	var zero V
	return zero, false
}

// Ptr returns a pointer to the stored value, or nil. The pointer is only valid
// until the next Insert.
func (s *Seq[V]) Ptr(id ID) *V {
	if sl := s.lookup(id); sl != nil {
		return &sl.value
	}
	return nil
}

// Remove deletes the value for id and invalidates id.
func (s *Seq[V]) Remove(id ID) (V, bool) {
	var zero V
	sl := s.lookup(id)
	if sl == nil {
		return zero, false
	}
	v := sl.value
	sl.value = zero
	sl.occupied = false
	s.live--
	if sl.gen == retired-1 {
		sl.gen = retired
		return v, true
	}
	sl.gen++
	s.free = append(s.free, id.Index)
	return v, true
}

// Len returns the number of live values.
func (s *Seq[V]) Len() int {
	if s == nil {
		return 0
	}
	return s.live
}

// Clear removes every value. All outstanding ids become invalid.
func (s *Seq[V]) Clear() {
	for i := range s.slots {
		if s.slots[i].occupied {
			s.Remove(ID{Index: i, Gen: s.slots[i].gen})
		}
	}
}

// All iterates over live values in slot order.
func (s *Seq[V]) All() iter.Seq2[ID, V] {
	return func(yield func(ID, V) bool) {
		if s == nil {
			return
		}
		for i := range s.slots {
			sl := &s.slots[i]
			if !sl.occupied {
				continue
			}
			if !yield(ID{Index: i, Gen: sl.gen}, sl.value) {
				return
			}
		}
	}
}
