package asset

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// managed is the type-erased surface of a Manager used by Registry.
type managed interface {
	TypeName() string
	Update() int
	Flush(ctx context.Context) error
	ReloadPath(ctx context.Context, path string) (bool, error)
	ReloadChanged(ctx context.Context) (int, error)
	Len() int
	Pending() int
	Close() error
}

// Stats summarizes one manager.
type Stats struct {
	Type    string
	Rows    int
	Pending int
}

// Registry holds at most one Manager per payload type. It is created once at
// startup and passed to the code that needs assets.
type Registry struct {
	mu       sync.RWMutex
	managers map[reflect.Type]managed
	order    []reflect.Type
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{managers: map[reflect.Type]managed{}, log: log}
}

// Register adds m as the manager for T. Registering a second manager for the
// same type panics.
func Register[T any](r *Registry, m *Manager[T]) *Manager[T] {
	t := reflect.TypeFor[T]()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.managers[t]; ok {
		panic(fmt.Sprintf("asset: manager for %s registered twice", t))
	}
	r.managers[t] = m
	r.order = append(r.order, t)
	r.log.Debug("manager registered", zap.String("type", t.String()))
	return m
}

// ManagerOf returns the manager registered for T.
func ManagerOf[T any](r *Registry) (*Manager[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.managers[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return m.(*Manager[T]), true
}

// MustManager is ManagerOf for types that are known to be registered.
func MustManager[T any](r *Registry) *Manager[T] {
	m, ok := ManagerOf[T](r)
	if !ok {
		panic(fmt.Sprintf("asset: no manager registered for %s", reflect.TypeFor[T]()))
	}
	return m
}

func (r *Registry) each() []managed {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]managed, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.managers[t])
	}
	return out
}

// Update applies finished loads in every manager.
func (r *Registry) Update() int {
	n := 0
	for _, m := range r.each() {
		n += m.Update()
	}
	return n
}

// Flush waits for the loads of every manager.
func (r *Registry) Flush(ctx context.Context) error {
	for _, m := range r.each() {
		if err := m.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ReloadPath reloads path in every manager that holds it and returns how many
// rows changed.
func (r *Registry) ReloadPath(ctx context.Context, path string) (int, error) {
	n := 0
	var errs []error
	for _, m := range r.each() {
		ok, err := m.ReloadPath(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.TypeName(), err))
			continue
		}
		if ok {
			n++
		}
	}
	return n, errors.Join(errs...)
}

// ReloadChanged polls every manager for rows changed on disk.
func (r *Registry) ReloadChanged(ctx context.Context) (int, error) {
	n := 0
	var errs []error
	for _, m := range r.each() {
		c, err := m.ReloadChanged(ctx)
		n += c
		if err != nil {
			errs = append(errs, err)
		}
	}
	return n, errors.Join(errs...)
}

// Stats returns per-type row counts in registration order.
func (r *Registry) Stats() []Stats {
	ms := r.each()
	out := make([]Stats, 0, len(ms))
	for _, m := range ms {
		out = append(out, Stats{Type: m.TypeName(), Rows: m.Len(), Pending: m.Pending()})
	}
	return out
}

// Close closes every manager.
func (r *Registry) Close() error {
	var errs []error
	for _, m := range r.each() {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
