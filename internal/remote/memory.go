package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"logstore-go/internal/logstore"
)

var (
	// ErrConflict is returned when a resource or collection is written under
	// a parent collection that does not exist.
	ErrConflict = errors.New("parent collection does not exist")

	// ErrCollectionExists is returned by CreateCollection for an existing path.
	ErrCollectionExists = errors.New("collection already exists")
)

// MemoryStore is an in-memory implementation of logstore.RemoteStore that
// follows WebDAV rules: resources and collections may only be created inside
// an existing collection. The root collection always exists.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	root        string
	resources   map[string][]byte   // absolute path -> content
	collections map[string]struct{} // absolute path
	mu          sync.RWMutex
}

// NewMemoryStore creates an empty store whose root collection is root.
func NewMemoryStore(root string) *MemoryStore {
	root = strings.TrimRight(root, "/")
	return &MemoryStore{
		root:        root,
		resources:   make(map[string][]byte),
		collections: map[string]struct{}{root: {}},
	}
}

// Root returns the root collection of the store.
func (m *MemoryStore) Root() string {
	return m.root
}

func (m *MemoryStore) parentOf(absPath string) (string, error) {
	if !strings.HasPrefix(absPath, m.root+"/") {
		return "", fmt.Errorf("path %s is outside store root %s", absPath, m.root)
	}
	return absPath[:strings.LastIndex(absPath, "/")], nil
}

// Exists reports whether a resource or collection exists at absPath.
func (m *MemoryStore) Exists(_ context.Context, absPath string) (bool, error) {
	absPath = strings.TrimRight(absPath, "/")

	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.collections[absPath]; ok {
		return true, nil
	}
	_, ok := m.resources[absPath]
	return ok, nil
}

// Put stores the content of r at absPath.
func (m *MemoryStore) Put(_ context.Context, absPath string, r io.Reader, size int64) error {
	parent, err := m.parentOf(absPath)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[parent]; !ok {
		return fmt.Errorf("put %s: %w", absPath, ErrConflict)
	}
	if _, ok := m.collections[absPath]; ok {
		return fmt.Errorf("put %s: path is a collection", absPath)
	}
	m.resources[absPath] = data
	return nil
}

// Get returns a reader over a copy of the resource at absPath.
func (m *MemoryStore) Get(_ context.Context, absPath string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.resources[absPath]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", absPath, logstore.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(data))), nil
}

// CreateCollection creates the collection absPath inside its existing parent.
func (m *MemoryStore) CreateCollection(_ context.Context, absPath string) error {
	absPath = strings.TrimRight(absPath, "/")
	parent, err := m.parentOf(absPath)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[parent]; !ok {
		return fmt.Errorf("mkcol %s: %w", absPath, ErrConflict)
	}
	if _, ok := m.collections[absPath]; ok {
		return fmt.Errorf("mkcol %s: %w", absPath, ErrCollectionExists)
	}
	if _, ok := m.resources[absPath]; ok {
		return fmt.Errorf("mkcol %s: path is a resource", absPath)
	}
	m.collections[absPath] = struct{}{}
	return nil
}

// Delete removes the resource at absPath. Used to simulate external removal.
func (m *MemoryStore) Delete(absPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.resources, absPath)
}

// Collections returns the paths of all collections below the root.
func (m *MemoryStore) Collections() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.collections))
	for c := range m.collections {
		if c != m.root {
			out = append(out, c)
		}
	}
	return out
}

// Compile-time check that MemoryStore implements logstore.RemoteStore
var _ logstore.RemoteStore = (*MemoryStore)(nil)
