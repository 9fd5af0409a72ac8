package asset

import (
	"context"
	"time"
)

// Loader produces the value stored at a normalized path.
type Loader[T any] interface {
	Load(ctx context.Context, path string) (T, error)
}

// Saver writes a value to a path.
type Saver[T any] interface {
	Save(ctx context.Context, value T, path string) error
}

// Resolver normalizes a requested path into a table key.
type Resolver interface {
	Resolve(path string) string
}

// ModTimer reports when the data behind a path last changed.
type ModTimer interface {
	ModTime(path string) (time.Time, bool)
}

// LoaderFunc adapts a plain function to Loader.
type LoaderFunc[T any] func(ctx context.Context, path string) (T, error)

func (f LoaderFunc[T]) Load(ctx context.Context, path string) (T, error) {
	return f(ctx, path)
}

type identityResolver struct{}

func (identityResolver) Resolve(path string) string { return path }
