package asset

// Status is the resolution state of an asset.
type Status int

const (
	Loading Status = iota
	Loaded
	Failed
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Persistence decides whether an asset may be written to or reloaded from
// storage.
type Persistence int

const (
	Persistent Persistence = iota
	Memory
)

func (p Persistence) String() string {
	if p == Memory {
		return "memory"
	}
	return "persistent"
}

// state holds the value of one table row. token identifies the load that a
// Loading row is waiting on.
type state[T any] struct {
	status Status
	value  T
	err    error
	token  uint64
}

func loadedState[T any](v T) state[T] {
	return state[T]{status: Loaded, value: v}
}

func failedState[T any](err error) state[T] {
	return state[T]{status: Failed, err: err}
}

// entry is the table row behind every handle to one path.
type entry[T any] struct {
	path        string
	state       state[T]
	refcount    int
	persistence Persistence
	cancel      func()
}
