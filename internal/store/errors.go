package store

import "errors"

var (
	// ErrKindMismatch is returned when an evidence set is put into a store of another kind
	ErrKindMismatch = errors.New("evidence kind does not match cache kind")

	// ErrEmptyKey is returned when a cache key is empty
	ErrEmptyKey = errors.New("cache key is required")

	// ErrUnsupportedBackend is returned when an unknown backend is configured
	ErrUnsupportedBackend = errors.New("unsupported cache backend")
)
