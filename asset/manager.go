package asset

import (
	"context"
	"errors"
	"fmt"
	"path"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"
	"github.com/milk9111/assetman/genid"
	"go.uber.org/zap"
)

// TableID identifies one row of a Manager.
type TableID = genid.ID

// MemoryScheme prefixes the generated paths of assets created by NewMemory.
const MemoryScheme = "mem://"

type options struct {
	log      *zap.Logger
	resolver Resolver
	ctx      context.Context
	queue    int
}

// Option configures a Manager.
type Option func(*options)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithResolver overrides path normalization. By default a loader that
// implements Resolver normalizes its own paths.
func WithResolver(r Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithContext sets the parent context of every background load.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// WithQueueSize sets how many finished loads may wait for Update.
func WithQueueSize(n int) Option {
	return func(o *options) { o.queue = n }
}

type completion[T any] struct {
	id      TableID
	token   uint64
	value   T
	err     error
	stamp   time.Time
	stamped bool
}

// Manager owns every live asset of type T. Rows are keyed by normalized path
// and shared by all handles to that path; a row is removed when its last
// handle is released.
//
// Loads run on their own goroutines and are applied to the table by Update or
// Flush, so the owner decides when state changes become visible.
type Manager[T any] struct {
	mu     sync.Mutex
	table  genid.Map[string, *entry[T]]
	paths  *btree.BTreeG[string]
	stamps genid.Vec[time.Time]

	loader   Loader[T]
	saver    Saver[T]
	resolver Resolver
	modtimer ModTimer
	equal    func(a, b T) bool

	loadingValue, errorValue T
	hasLoading, hasError     bool

	log       *zap.Logger
	typeName  string
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan completion[T]
	closing   chan struct{} // closed by Close only
	wg        sync.WaitGroup
	inflight  int
	nextToken uint64
	closed    bool
}

// NewManager creates a manager that loads values with loader. If loader also
// implements Saver, Resolver or ModTimer it serves those roles too.
func NewManager[T any](loader Loader[T], opts ...Option) *Manager[T] {
	o := options{queue: 64}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.ctx == nil {
		o.ctx = context.Background()
	}
	if o.resolver == nil {
		if r, ok := loader.(Resolver); ok {
			o.resolver = r
		} else {
			o.resolver = identityResolver{}
		}
	}
	if o.queue < 1 {
		o.queue = 1
	}

	typeName := reflect.TypeFor[T]().String()
	ctx, cancel := context.WithCancel(o.ctx)
	m := &Manager[T]{
		paths:    btree.NewG[string](8, func(a, b string) bool { return a < b }),
		loader:   loader,
		resolver: o.resolver,
		equal:    func(a, b T) bool { return reflect.DeepEqual(a, b) },
		log:      o.log.With(zap.String("type", typeName)),
		typeName: typeName,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan completion[T], o.queue),
		closing:  make(chan struct{}),
	}
	if s, ok := loader.(Saver[T]); ok {
		m.saver = s
	}
	if mt, ok := loader.(ModTimer); ok {
		m.modtimer = mt
	}
	return m
}

// TypeName returns the name of T.
func (m *Manager[T]) TypeName() string {
	return m.typeName
}

// SetEqual replaces the comparison used by HasModificationFromIO.
func (m *Manager[T]) SetEqual(eq func(a, b T) bool) {
	if eq == nil {
		return
	}
	m.mu.Lock()
	m.equal = eq
	m.mu.Unlock()
}

// SetLoadingAndErrorValue sets the values returned for assets that are still
// loading or failed to load.
func (m *Manager[T]) SetLoadingAndErrorValue(loading, failed T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadingValue, m.hasLoading = loading, true
	m.errorValue, m.hasError = failed, true
}

// SetLoadingValue sets only the loading fallback.
func (m *Manager[T]) SetLoadingValue(v T) {
	m.mu.Lock()
	m.loadingValue, m.hasLoading = v, true
	m.mu.Unlock()
}

// SetErrorValue sets only the error fallback.
func (m *Manager[T]) SetErrorValue(v T) {
	m.mu.Lock()
	m.errorValue, m.hasError = v, true
	m.mu.Unlock()
}

// ClearFallbacks removes both fallback values.
func (m *Manager[T]) ClearFallbacks() {
	var zero T
	m.mu.Lock()
	m.loadingValue, m.hasLoading = zero, false
	m.errorValue, m.hasError = zero, false
	m.mu.Unlock()
}

// GetOrLoad returns a handle to the asset at path. The first request for a
// path creates a Loading row and starts its load; later requests share that
// row whether or not the load finished. It never fails: load errors surface
// as the Failed status.
func (m *Manager[T]) GetOrLoad(path string) *Handle[T] {
	key := m.resolver.Resolve(path)

	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.table.Lookup(key); ok {
		m.mustEntry(id).refcount++
		return newHandle(m, id)
	}

	e := &entry[T]{path: key, refcount: 1}
	id := m.insert(key, e)
	if m.closed {
		e.state = failedState[T](ErrClosed)
		return newHandle(m, id)
	}
	m.startLoad(id, e)
	return newHandle(m, id)
}

// UpdateOrCreateWithValue stores v at path as a Loaded asset, creating the
// row if needed. No I/O happens.
func (m *Manager[T]) UpdateOrCreateWithValue(path string, v T) *Handle[T] {
	return m.updateOrCreate(m.resolver.Resolve(path), loadedState(v), Persistent)
}

// UpdateOrCreateWithError marks the asset at path as Failed with err.
func (m *Manager[T]) UpdateOrCreateWithError(path string, err error) *Handle[T] {
	return m.updateOrCreate(m.resolver.Resolve(path), failedState[T](err), Persistent)
}

// NewMemory stores v under a generated path as a Memory asset.
func (m *Manager[T]) NewMemory(v T) *Handle[T] {
	return m.updateOrCreate(MemoryScheme+uuid.NewString(), loadedState(v), Memory)
}

func (m *Manager[T]) updateOrCreate(key string, st state[T], p Persistence) *Handle[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.table.Lookup(key); ok {
		e := m.mustEntry(id)
		cancelLoad(e)
		e.state = st
		e.refcount++
		return newHandle(m, id)
	}
	id := m.insert(key, &entry[T]{path: key, state: st, refcount: 1, persistence: p})
	return newHandle(m, id)
}

func (m *Manager[T]) insert(key string, e *entry[T]) TableID {
	id, replaced := m.table.Insert(key, e)
	if replaced {
		panic(fmt.Sprintf("asset: %s row for %q inserted twice", m.typeName, key))
	}
	m.paths.ReplaceOrInsert(key)
	return id
}

// startLoad must be called with m.mu held.
func (m *Manager[T]) startLoad(id TableID, e *entry[T]) {
	m.nextToken++
	token := m.nextToken
	ctx, cancel := context.WithCancel(m.ctx)
	e.state = state[T]{status: Loading, token: token}
	e.cancel = cancel
	m.inflight++
	m.wg.Add(1)

	path := e.path
	go func() {
		defer m.wg.Done()
		v, err := m.loader.Load(ctx, path)
		c := completion[T]{id: id, token: token, value: v, err: err}
		if err == nil && m.modtimer != nil {
			c.stamp, c.stamped = m.modtimer.ModTime(path)
		}
		// A cancelled parent context still delivers the completion so the row
		// ends Failed; only Close drops it.
		select {
		case m.done <- c:
		case <-m.closing:
		}
	}()
}

func cancelLoad[T any](e *entry[T]) {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// apply must be called with m.mu held.
func (m *Manager[T]) apply(c completion[T]) bool {
	e, ok := m.table.GetID(c.id)
	if !ok || e.state.status != Loading || e.state.token != c.token {
		m.log.Debug("discarding stale load", zap.Stringer("id", c.id), zap.Uint64("token", c.token))
		return false
	}
	cancelLoad(e)
	if c.err != nil {
		e.state = failedState[T](c.err)
		m.log.Warn("asset load failed", zap.String("path", e.path), zap.Error(c.err))
		return true
	}
	e.state = loadedState(c.value)
	if c.stamped {
		m.stamps.Set(c.id, c.stamp)
	}
	m.log.Debug("asset loaded", zap.String("path", e.path), zap.Stringer("id", c.id))
	return true
}

func (m *Manager[T]) receive(c completion[T]) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight--
	return m.apply(c)
}

// Update applies every load that has finished and returns how many changed a
// row. It does not block.
func (m *Manager[T]) Update() int {
	n := 0
	for {
		select {
		case c := <-m.done:
			if m.receive(c) {
				n++
			}
		default:
			return n
		}
	}
}

// Flush applies finished loads until none are in flight or ctx ends.
func (m *Manager[T]) Flush(ctx context.Context) error {
	for {
		if m.Pending() == 0 {
			return nil
		}
		select {
		case c := <-m.done:
			m.receive(c)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Pending returns the number of loads not yet applied.
func (m *Manager[T]) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight
}

// Len returns the number of rows.
func (m *Manager[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.Len()
}

// Lookup returns the row id for path without creating or retaining it.
func (m *Manager[T]) Lookup(path string) (TableID, bool) {
	key := m.resolver.Resolve(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table.Lookup(key)
}

// Paths returns the sorted keys that start with prefix.
func (m *Manager[T]) Paths(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	m.paths.AscendGreaterOrEqual(prefix, func(p string) bool {
		if !strings.HasPrefix(p, prefix) {
			return false
		}
		out = append(out, p)
		return true
	})
	return out
}

// ReloadPath hot reloads the asset at name if it is in the table and
// persistent. A row requested without an extension before its file existed
// is found by the stem of name. It reports whether a row was updated.
func (m *Manager[T]) ReloadPath(ctx context.Context, name string) (bool, error) {
	key := m.resolver.Resolve(name)
	m.mu.Lock()
	id, ok := m.table.Lookup(key)
	if !ok {
		if ext := path.Ext(key); ext != "" {
			id, ok = m.table.Lookup(strings.TrimSuffix(key, ext))
		}
	}
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	_, _, updated, err := m.reload(ctx, id)
	return updated, err
}

// ReloadChanged reloads persistent, loaded rows whose data changed on disk
// since they were last read. It needs a loader that implements ModTimer.
func (m *Manager[T]) ReloadChanged(ctx context.Context) (int, error) {
	if m.modtimer == nil {
		return 0, nil
	}
	type candidate struct {
		id   TableID
		path string
	}
	var stale []candidate
	m.mu.Lock()
	for id, key := range m.table.All() {
		e := m.mustEntry(id)
		if e.persistence != Persistent || e.state.status != Loaded {
			continue
		}
		if _, ok := m.stamps.Get(id); !ok {
			continue
		}
		stale = append(stale, candidate{id: id, path: key})
	}
	m.mu.Unlock()

	n := 0
	var errs []error
	for _, c := range stale {
		mod, ok := m.modtimer.ModTime(c.path)
		if !ok {
			continue
		}
		m.mu.Lock()
		seen, _ := m.stamps.Get(c.id)
		m.mu.Unlock()
		if !mod.After(seen) {
			continue
		}
		_, _, updated, err := m.reload(ctx, c.id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if updated {
			n++
		}
	}
	return n, errors.Join(errs...)
}

func (m *Manager[T]) snapshot(id TableID) (string, Persistence, state[T]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.mustEntry(id)
	return e.path, e.persistence, e.state
}

// peek is snapshot for callers that do not hold a reference to the row.
func (m *Manager[T]) peek(id TableID) (string, Persistence, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.table.GetID(id)
	if !ok {
		return "", Persistent, false
	}
	return e.path, e.persistence, true
}

// reload loads the row's path and swaps the result in. It returns the
// previous value when there was one.
func (m *Manager[T]) reload(ctx context.Context, id TableID) (prev T, hadPrev, updated bool, err error) {
	key, p, ok := m.peek(id)
	if !ok || p == Memory {
		return prev, false, false, nil
	}
	// A bare key resolves to its file once one exists.
	path := m.resolver.Resolve(key)
	v, err := m.loader.Load(ctx, path)
	if err != nil {
		m.log.Warn("asset reload failed", zap.String("path", path), zap.Error(err))
		return prev, false, false, fmt.Errorf("reload %s: %w", path, err)
	}
	stamp, stamped := time.Time{}, false
	if m.modtimer != nil {
		stamp, stamped = m.modtimer.ModTime(path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.table.GetID(id)
	if !ok {
		return prev, false, false, nil
	}
	if e.state.status == Loaded {
		prev, hadPrev = e.state.value, true
	}
	cancelLoad(e)
	e.state = loadedState(v)
	if stamped {
		m.stamps.Set(id, stamp)
	}
	m.log.Info("asset reloaded", zap.String("path", path), zap.Stringer("id", id))
	return prev, hadPrev, true, nil
}

// Close cancels every load in flight and waits for the load goroutines. Rows
// still loading become Failed with ErrClosed. Handles stay usable.
func (m *Manager[T]) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.closing)
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
drain:
	for {
		select {
		case <-m.done:
		default:
			break drain
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight = 0
	for id := range m.table.All() {
		e := m.mustEntry(id)
		if e.state.status == Loading {
			cancelLoad(e)
			e.state = failedState[T](ErrClosed)
		}
	}
	return nil
}

// mustEntry must be called with m.mu held. A missing row means the refcount
// bookkeeping is broken.
func (m *Manager[T]) mustEntry(id TableID) *entry[T] {
	e, ok := m.table.GetID(id)
	if !ok {
		panic(fmt.Sprintf("asset: %s row %v is gone while still referenced", m.typeName, id))
	}
	return e
}

func (m *Manager[T]) retain(id TableID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mustEntry(id).refcount++
}

func (m *Manager[T]) release(id TableID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.mustEntry(id)
	e.refcount--
	if e.refcount > 0 {
		return
	}
	cancelLoad(e)
	if _, _, ok := m.table.RemoveID(id); !ok {
		panic(fmt.Sprintf("asset: removing %s row %v failed", m.typeName, id))
	}
	m.paths.Delete(e.path)
	m.stamps.Delete(id)
	m.log.Debug("asset released", zap.String("path", e.path), zap.Stringer("id", id))
}

func (m *Manager[T]) refcount(id TableID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mustEntry(id).refcount
}

func (m *Manager[T]) fallback(st state[T]) (T, bool) {
	switch st.status {
	case Loaded:
		return st.value, true
	case Loading:
		return m.loadingValue, m.hasLoading
	default:
		return m.errorValue, m.hasError
	}
}
