package testutil

import (
	"context"
	"io"
	"sync"

	"logstore-go/internal/logstore"
	"logstore-go/internal/remote"
)

// TestBaseURL is the root collection of stores built by NewTestStore.
const TestBaseURL = "mem://dav"

// NewTestStore creates a new in-memory remote store for testing.
func NewTestStore() *remote.MemoryStore {
	return remote.NewMemoryStore(TestBaseURL)
}

// Call records one RemoteStore invocation.
type Call struct {
	Op   string // "exists", "put", "get", "mkcol"
	Path string
}

// RecordingStore wraps a RemoteStore, records every call in order and can
// be told to fail specific operations. Safe for concurrent use.
type RecordingStore struct {
	Inner logstore.RemoteStore

	mu    sync.Mutex
	calls []Call
	fail  map[Call]error
}

// NewRecordingStore wraps inner.
func NewRecordingStore(inner logstore.RemoteStore) *RecordingStore {
	return &RecordingStore{Inner: inner, fail: make(map[Call]error)}
}

// FailOn makes the next and all later calls of op on path return err.
func (s *RecordingStore) FailOn(op, path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[Call{Op: op, Path: path}] = err
}

// Calls returns a copy of the recorded calls.
func (s *RecordingStore) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsOf returns the paths of recorded calls of op, in order.
func (s *RecordingStore) CallsOf(op string) []string {
	var paths []string
	for _, c := range s.Calls() {
		if c.Op == op {
			paths = append(paths, c.Path)
		}
	}
	return paths
}

// Reset forgets recorded calls.
func (s *RecordingStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *RecordingStore) record(op, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := Call{Op: op, Path: path}
	s.calls = append(s.calls, c)
	return s.fail[c]
}

func (s *RecordingStore) Exists(ctx context.Context, absPath string) (bool, error) {
	if err := s.record("exists", absPath); err != nil {
		return false, err
	}
	return s.Inner.Exists(ctx, absPath)
}

func (s *RecordingStore) Put(ctx context.Context, absPath string, r io.Reader, size int64) error {
	if err := s.record("put", absPath); err != nil {
		return err
	}
	return s.Inner.Put(ctx, absPath, r, size)
}

func (s *RecordingStore) Get(ctx context.Context, absPath string) (io.ReadCloser, error) {
	if err := s.record("get", absPath); err != nil {
		return nil, err
	}
	return s.Inner.Get(ctx, absPath)
}

func (s *RecordingStore) CreateCollection(ctx context.Context, absPath string) error {
	if err := s.record("mkcol", absPath); err != nil {
		return err
	}
	return s.Inner.CreateCollection(ctx, absPath)
}

// Factory returns a RemoteStoreFactory handing out s and counting calls.
func (s *RecordingStore) Factory(opened *int) logstore.RemoteStoreFactory {
	return func() (logstore.RemoteStore, error) {
		if opened != nil {
			*opened++
		}
		return s, nil
	}
}

// TrackingReadCloser reports whether Close was called. Reads fail with
// ReadErr when set.
type TrackingReadCloser struct {
	R       io.Reader
	ReadErr error
	Closed  bool
}

func (t *TrackingReadCloser) Read(p []byte) (int, error) {
	if t.ReadErr != nil {
		return 0, t.ReadErr
	}
	return t.R.Read(p)
}

func (t *TrackingReadCloser) Close() error {
	t.Closed = true
	return nil
}

// StubGetStore is a RemoteStore whose Get always returns Body.
type StubGetStore struct {
	logstore.RemoteStore
	Body *TrackingReadCloser
}

func (s *StubGetStore) Get(context.Context, string) (io.ReadCloser, error) {
	return s.Body, nil
}

var _ logstore.RemoteStore = (*RecordingStore)(nil)
