package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"logstore-go/internal/logstore"
)

// FileSystemStore is a logstore.RemoteStore over a local directory tree,
// typically a mounted network share. Locations have the form
// file:///<root>/<key>; collections are directories.
type FileSystemStore struct {
	baseURL string
	root    string
}

// NewFileSystemStore creates a store for baseURL, which must be a file:// URL
// naming an existing directory.
func NewFileSystemStore(baseURL string) (*FileSystemStore, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "file" || u.Path == "" {
		return nil, fmt.Errorf("invalid filesystem base URL %q: want file:///path", baseURL)
	}
	return &FileSystemStore{baseURL: baseURL, root: filepath.FromSlash(u.Path)}, nil
}

// localPath maps an absolute location to a path below root.
func (s *FileSystemStore) localPath(absPath string) (string, error) {
	absPath = strings.TrimRight(absPath, "/")
	if absPath == s.baseURL {
		return s.root, nil
	}
	rel, ok := strings.CutPrefix(absPath, s.baseURL+"/")
	if !ok {
		return "", fmt.Errorf("path %s is outside base URL %s", absPath, s.baseURL)
	}
	p := filepath.Join(s.root, filepath.FromSlash(rel))
	if !strings.HasPrefix(p, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes base URL %s", absPath, s.baseURL)
	}
	return p, nil
}

// Exists reports whether a file or directory exists at absPath.
func (s *FileSystemStore) Exists(_ context.Context, absPath string) (bool, error) {
	p, err := s.localPath(absPath)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", absPath, err)
	}
	return true, nil
}

// Put writes r to absPath using atomic write (temp file + rename), so a
// failed upload never leaves a partial log behind.
func (s *FileSystemStore) Put(_ context.Context, absPath string, r io.Reader, size int64) error {
	destPath, err := s.localPath(absPath)
	if err != nil {
		return err
	}

	// Create temp file in the same directory to ensure atomic rename works
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Get opens the file at absPath.
func (s *FileSystemStore) Get(_ context.Context, absPath string) (io.ReadCloser, error) {
	p, err := s.localPath(absPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("get %s: %w", absPath, logstore.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// CreateCollection creates a single directory; its parent must exist.
func (s *FileSystemStore) CreateCollection(_ context.Context, absPath string) error {
	p, err := s.localPath(absPath)
	if err != nil {
		return err
	}
	if err := os.Mkdir(p, 0755); err != nil {
		return fmt.Errorf("mkcol %s: %w", absPath, err)
	}
	return nil
}

// Compile-time check that FileSystemStore implements logstore.RemoteStore
var _ logstore.RemoteStore = (*FileSystemStore)(nil)
