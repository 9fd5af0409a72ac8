package asset

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Handle is a counted reference to one row of a Manager. Every handle from
// GetOrLoad, UpdateOrCreateWith*, NewMemory or Clone must be released exactly
// once; the row is removed with its last handle.
type Handle[T any] struct {
	m        *Manager[T]
	id       TableID
	released atomic.Bool
}

func newHandle[T any](m *Manager[T], id TableID) *Handle[T] {
	return &Handle[T]{m: m, id: id}
}

func (h *Handle[T]) live() {
	if h.released.Load() {
		panic(fmt.Sprintf("asset: %s handle %v used after Release", h.m.typeName, h.id))
	}
}

// Clone returns a new handle to the same row.
func (h *Handle[T]) Clone() *Handle[T] {
	h.live()
	h.m.retain(h.id)
	return newHandle(h.m, h.id)
}

// Release drops this handle's reference. Releasing a handle twice panics.
func (h *Handle[T]) Release() {
	if !h.released.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("asset: %s handle %v released twice", h.m.typeName, h.id))
	}
	h.m.release(h.id)
}

// ID returns the row id shared by all handles to this asset.
func (h *Handle[T]) ID() TableID {
	return h.id
}

// Manager returns the owning manager.
func (h *Handle[T]) Manager() *Manager[T] {
	return h.m
}

// Path returns the normalized path the asset is registered under.
func (h *Handle[T]) Path() string {
	h.live()
	path, _, _ := h.m.snapshot(h.id)
	return path
}

func (h *Handle[T]) Status() Status {
	h.live()
	_, _, st := h.m.snapshot(h.id)
	return st.status
}

// Err returns the load error of a Failed asset.
func (h *Handle[T]) Err() error {
	h.live()
	_, _, st := h.m.snapshot(h.id)
	return st.err
}

// Refcount returns the number of live handles to the row.
func (h *Handle[T]) Refcount() int {
	h.live()
	return h.m.refcount(h.id)
}

func (h *Handle[T]) Persistence() Persistence {
	h.live()
	_, p, _ := h.m.snapshot(h.id)
	return p
}

func (h *Handle[T]) SetPersistence(p Persistence) {
	h.live()
	h.m.mu.Lock()
	h.m.mustEntry(h.id).persistence = p
	h.m.mu.Unlock()
}

// TryValue returns the loaded value, or the manager's fallback for the
// current status when one is configured.
func (h *Handle[T]) TryValue() (T, bool) {
	h.live()
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	return h.m.fallback(h.m.mustEntry(h.id).state)
}

// Value is TryValue for callers that configured fallbacks. It panics when
// the asset is not loaded and no fallback is set.
func (h *Handle[T]) Value() T {
	h.live()
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	e := h.m.mustEntry(h.id)
	if v, ok := h.m.fallback(e.state); ok {
		return v
	}
	msg := fmt.Sprintf("asset: %s %q is %s and no fallback value is configured; call SetLoadingAndErrorValue on Manager[%s]",
		h.m.typeName, e.path, e.state.status, h.m.typeName)
	if e.state.err != nil {
		msg += ": " + e.state.err.Error()
	}
	panic(msg)
}

// ReplaceValue makes v the loaded value. It returns the previous value if
// the asset was Loaded.
func (h *Handle[T]) ReplaceValue(v T) (T, bool) {
	h.live()
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	e := h.m.mustEntry(h.id)
	prev := e.state
	cancelLoad(e)
	e.state = loadedState(v)
	if prev.status == Loaded {
		return prev.value, true
	}
	var zero T
	return zero, false
}

// Save writes the loaded value to the asset's path.
func (h *Handle[T]) Save(ctx context.Context) error {
	h.live()
	path, p, st := h.m.snapshot(h.id)
	if p == Memory {
		return fmt.Errorf("save %s: %w", path, ErrNotPersistent)
	}
	if st.status != Loaded {
		return fmt.Errorf("save %s: %w", path, ErrNotLoaded)
	}
	if h.m.saver == nil {
		return fmt.Errorf("save %s: %w", path, ErrUnsupported)
	}
	if err := h.m.saver.Save(ctx, st.value, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if h.m.modtimer != nil {
		if stamp, ok := h.m.modtimer.ModTime(path); ok {
			h.m.mu.Lock()
			h.m.stamps.Set(h.id, stamp)
			h.m.mu.Unlock()
		}
	}
	return nil
}

// HotReload reads the asset again and makes the result the loaded value. It
// returns the previous value if there was one. Memory assets are left alone.
// On error the asset keeps its current state.
func (h *Handle[T]) HotReload(ctx context.Context) (T, bool, error) {
	h.live()
	prev, ok, _, err := h.m.reload(ctx, h.id)
	return prev, ok, err
}

// LoadWithoutUpdate reads the asset's path without touching the table.
func (h *Handle[T]) LoadWithoutUpdate(ctx context.Context) (T, error) {
	h.live()
	var zero T
	path, p, _ := h.m.snapshot(h.id)
	if p == Memory {
		return zero, fmt.Errorf("load %s: %w", path, ErrNotPersistent)
	}
	v, err := h.m.loader.Load(ctx, path)
	if err != nil {
		return zero, fmt.Errorf("load %s: %w", path, err)
	}
	return v, nil
}

// HasModificationFromIO reports whether the stored data differs from the
// loaded value. A failed read, or an asset that is not Loaded, counts as
// modified. Memory assets have no stored data and never report a change.
func (h *Handle[T]) HasModificationFromIO(ctx context.Context) bool {
	if h.Persistence() == Memory {
		return false
	}
	fresh, err := h.LoadWithoutUpdate(ctx)
	if err != nil {
		return true
	}
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	st := h.m.mustEntry(h.id).state
	if st.status != Loaded {
		return true
	}
	return !h.m.equal(fresh, st.value)
}
