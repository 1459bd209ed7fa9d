package logstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// State is the lifecycle state of a Backend.
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateStored
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateStored:
		return "stored"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Options configures a Backend.
type Options struct {
	// PathTemplate is the storage key template, see ResolvePath.
	PathTemplate string
	// BaseURL is the root every resolved path is appended to.
	BaseURL string
}

// Backend archives the log of one execution to a RemoteStore.
//
// Initialize must be called exactly once before any other operation. The
// resolved path is fixed from then on, and every operation obtains a fresh
// RemoteStore from the factory. Calls against one Backend are expected to be
// serialized by the host.
type Backend struct {
	template string
	baseURL  string
	factory  RemoteStoreFactory
	logger   Logger

	resolved string
	state    atomic.Int32
}

// NewBackend creates an uninitialized Backend.
func NewBackend(opts Options, factory RemoteStoreFactory, logger Logger) *Backend {
	if logger == nil {
		logger = NewNopLogger()
	}
	template := opts.PathTemplate
	if template == "" {
		template = DefaultPathTemplate
	}
	return &Backend{
		template: template,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		factory:  factory,
		logger:   logger,
	}
}

// Initialize resolves the path template against execCtx and makes the
// backend ready. Configuration problems are reported as *ConfigError without
// touching the remote store.
func (b *Backend) Initialize(execCtx ExecutionContext) error {
	if b.State() != StateUninitialized {
		return ErrAlreadyInitialized
	}
	if b.baseURL == "" {
		return configErrorf("base URL was not set")
	}
	if b.factory == nil {
		return configErrorf("remote store factory was not set")
	}

	resolved, err := ResolvePath(b.template, execCtx)
	if err != nil {
		return err
	}
	b.resolved = resolved
	b.state.Store(int32(StateReady))

	b.logger.Debug("expanded path for the log", "location", b.Location())
	return nil
}

// State returns the current lifecycle state.
func (b *Backend) State() State {
	return State(b.state.Load())
}

// ResolvedPath returns the storage key relative to the base URL, or "" before Initialize.
func (b *Backend) ResolvedPath() string {
	return b.resolved
}

// Location returns the absolute location of the log on the remote store.
func (b *Backend) Location() string {
	return b.baseURL + "/" + b.resolved
}

func (b *Backend) requireInitialized() error {
	if b.State() == StateUninitialized {
		return ErrNotInitialized
	}
	return nil
}

func (b *Backend) openStore() (RemoteStore, error) {
	store, err := b.factory()
	if err != nil {
		return nil, fmt.Errorf("opening remote store: %w", err)
	}
	return store, nil
}

// Store uploads length bytes from r to the log location, creating missing
// parent collections first. The upload is attempted once; failures are
// returned as *StorageError.
func (b *Backend) Store(ctx context.Context, r io.Reader, length int64, modTime time.Time) (bool, error) {
	if err := b.requireInitialized(); err != nil {
		return false, err
	}
	location := b.Location()
	b.logger.Debug("storing log", "location", location, "size", sizeString(length), "modtime", modTime)

	if err := b.store(ctx, location, r, length); err != nil {
		b.state.Store(int32(StateFailed))
		b.logger.Error("storing log failed", "location", location, "error", err)
		return false, err
	}

	b.state.Store(int32(StateStored))
	b.logger.Info("stored log", "location", location, "size", sizeString(length))
	return true, nil
}

func (b *Backend) store(ctx context.Context, location string, r io.Reader, length int64) error {
	store, err := b.openStore()
	if err != nil {
		return &StorageError{Op: "store", Location: location, Err: err}
	}

	if parent := path.Dir(b.resolved); parent != "." {
		collection := b.baseURL + "/" + parent
		exists, err := store.Exists(ctx, collection)
		if err != nil {
			return &StorageError{Op: "provision", Location: location, Err: fmt.Errorf("checking collection %s: %w", collection, err)}
		}
		if !exists {
			if _, err := EnsureCollections(ctx, b.baseURL, collection, store, b.logger); err != nil {
				return &StorageError{Op: "provision", Location: location, Err: err}
			}
		}
	}

	if err := store.Put(ctx, location, r, length); err != nil {
		return &StorageError{Op: "store", Location: location, Err: err}
	}
	return nil
}

// IsAvailable reports whether the log exists on the remote store.
func (b *Backend) IsAvailable(ctx context.Context) (bool, error) {
	if err := b.requireInitialized(); err != nil {
		return false, err
	}
	location := b.Location()
	b.logger.Debug("getting state of log", "location", location)

	store, err := b.openStore()
	if err != nil {
		return false, &StorageError{Op: "available", Location: location, Err: err}
	}
	available, err := store.Exists(ctx, location)
	if err != nil {
		return false, &StorageError{Op: "available", Location: location, Err: err}
	}
	return available, nil
}

// Retrieve copies the archived log into w. The remote stream is always
// closed. It returns true only if the whole log was copied.
func (b *Backend) Retrieve(ctx context.Context, w io.Writer) (bool, error) {
	if err := b.requireInitialized(); err != nil {
		return false, err
	}
	location := b.Location()
	b.logger.Info("retrieving log", "location", location)

	store, err := b.openStore()
	if err != nil {
		return false, &StorageError{Op: "retrieve", Location: location, Err: err}
	}
	rc, err := store.Get(ctx, location)
	if err != nil {
		return false, &StorageError{Op: "retrieve", Location: location, Err: err}
	}
	defer rc.Close()

	n, err := io.Copy(w, rc)
	if err != nil {
		return false, &StorageError{Op: "retrieve", Location: location, Err: fmt.Errorf("copying log: %w", err)}
	}

	b.logger.Debug("retrieved log", "location", location, "size", sizeString(n))
	return true, nil
}

func sizeString(n int64) string {
	if n < 0 {
		return "unknown"
	}
	return humanize.Bytes(uint64(n))
}
