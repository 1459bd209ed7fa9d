package logstore

import (
	"context"
	"io"
)

// RemoteStore is the capability surface of a hierarchical document store.
// All paths are absolute: the configured base URL followed by a slash-separated key.
type RemoteStore interface {
	// Exists reports whether a resource or collection is present at absPath.
	// Absence is a normal false result, not an error.
	Exists(ctx context.Context, absPath string) (bool, error)

	// Put uploads r to absPath, replacing any existing resource.
	// size is the number of bytes that will be read from r, or -1 if unknown.
	Put(ctx context.Context, absPath string, r io.Reader, size int64) error

	// Get opens absPath for streaming read. The caller must Close the result.
	// A missing resource yields an error wrapping ErrNotFound.
	Get(ctx context.Context, absPath string) (io.ReadCloser, error)

	// CreateCollection creates a single collection. Its parent must already exist.
	CreateCollection(ctx context.Context, absPath string) error
}

// RemoteStoreFactory returns a ready-to-use RemoteStore handle.
// Backends call it once per operation and never retain the handle.
type RemoteStoreFactory func() (RemoteStore, error)
