package genid

type cell[V any] struct {
	gen   Generation
	set   bool
	value V
}

// Vec attaches values to ids allocated by another table. A value is only
// visible to ids of the generation it was stored for, so entries belonging to
// a removed row disappear once the slot is reused.
type Vec[V any] struct {
	cells []cell[V]
	live  int
}

// Set stores v for id, dropping any value kept for an older generation of the
// same slot.
func (v *Vec[V]) Set(id ID, value V) {
	if id.Index < 0 {
		return
	}
	if id.Index >= len(v.cells) {
		grow := id.Index + 1 - len(v.cells)
		v.cells = append(v.cells, make([]cell[V], grow)...)
	}
	c := &v.cells[id.Index]
	if !c.set {
		v.live++
	}
	c.gen = id.Gen
	c.set = true
	c.value = value
}

// Get returns the value stored for id.
func (v *Vec[V]) Get(id ID) (V, bool) {
	if id.Index < 0 || id.Index >= len(v.cells) {
		var zero V
		return zero, false
	}
	c := &v.cells[id.Index]
	if !c.set || c.gen != id.Gen {
		var zero V
		return zero, false
	}
	return c.value, true
}

// Delete removes the value stored for id.
func (v *Vec[V]) Delete(id ID) bool {
	if _, ok := v.Get(id); !ok {
		return false
	}
	var zero V
	v.cells[id.Index] = cell[V]{value: zero}
	v.live--
	return true
}

// Len counts stored values, including ones left behind by older generations.
func (v *Vec[V]) Len() int {
	return v.live
}
