package asset

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by loaders when no data exists for a path.
	ErrNotFound = errors.New("asset: not found")
	// ErrNotPersistent is returned when saving or reloading a Memory asset.
	ErrNotPersistent = errors.New("asset: not persistent")
	// ErrNotLoaded is returned when saving an asset that has no value yet.
	ErrNotLoaded = errors.New("asset: not loaded")
	// ErrUnsupported is returned when a collaborator cannot perform an operation.
	ErrUnsupported = errors.New("asset: unsupported")
	// ErrClosed is the error stored on loads cut short by Manager.Close.
	ErrClosed = errors.New("asset: manager closed")
)

// CodecError reports a failure to encode or decode the data at Path.
type CodecError struct {
	Op     string // "decode" or "encode"
	Path   string
	Reason string
	Err    error
}

func (e *CodecError) Error() string {
	msg := fmt.Sprintf("asset: %s %s: %s", e.Op, e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CodecError) Unwrap() error { return e.Err }

// DecodeError builds a CodecError for a failed decode.
func DecodeError(path, reason string, err error) error {
	return &CodecError{Op: "decode", Path: path, Reason: reason, Err: err}
}

// EncodeError builds a CodecError for a failed encode.
func EncodeError(path, reason string, err error) error {
	return &CodecError{Op: "encode", Path: path, Reason: reason, Err: err}
}
