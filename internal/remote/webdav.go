package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"

	"logstore-go/internal/logstore"
)

// DefaultTimeout bounds a single WebDAV request.
const DefaultTimeout = 30 * time.Second

// DAVStore is a logstore.RemoteStore backed by a WebDAV server.
// Absolute paths passed to it must start with the base URL it was created with.
//
// The underlying client has no per-request context, so ctx is only checked
// before a request is issued.
type DAVStore struct {
	baseURL string
	client  *gowebdav.Client
}

// NewDAVStore creates a WebDAV store rooted at baseURL using basic or digest
// authentication with the given credentials.
func NewDAVStore(baseURL, username, password string) *DAVStore {
	baseURL = strings.TrimRight(baseURL, "/")
	client := gowebdav.NewClient(baseURL, username, password)
	client.SetTimeout(DefaultTimeout)
	return &DAVStore{baseURL: baseURL, client: client}
}

// relative converts an absolute location into a path for the client.
func (s *DAVStore) relative(absPath string) (string, error) {
	if absPath == s.baseURL {
		return "/", nil
	}
	if !strings.HasPrefix(absPath, s.baseURL+"/") {
		return "", fmt.Errorf("path %s is outside base URL %s", absPath, s.baseURL)
	}
	return strings.TrimPrefix(absPath, s.baseURL), nil
}

// Exists issues a PROPFIND for absPath.
func (s *DAVStore) Exists(ctx context.Context, absPath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := s.relative(absPath)
	if err != nil {
		return false, err
	}
	if _, err := s.client.Stat(p); err != nil {
		if gowebdav.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", absPath, err)
	}
	return true, nil
}

// Put uploads r to absPath with a single PUT request.
func (s *DAVStore) Put(ctx context.Context, absPath string, r io.Reader, _ int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.relative(absPath)
	if err != nil {
		return err
	}
	if err := s.client.WriteStream(p, r, 0644); err != nil {
		return fmt.Errorf("put %s: %w", absPath, err)
	}
	return nil
}

// Get opens absPath for reading.
func (s *DAVStore) Get(ctx context.Context, absPath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.relative(absPath)
	if err != nil {
		return nil, err
	}
	rc, err := s.client.ReadStream(p)
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, fmt.Errorf("get %s: %w", absPath, logstore.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", absPath, err)
	}
	return rc, nil
}

// CreateCollection issues a MKCOL for absPath.
func (s *DAVStore) CreateCollection(ctx context.Context, absPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.relative(absPath)
	if err != nil {
		return err
	}
	if err := s.client.Mkdir(p, os.ModeDir|0755); err != nil {
		return fmt.Errorf("mkcol %s: %w", absPath, err)
	}
	return nil
}

// Compile-time check that DAVStore implements logstore.RemoteStore
var _ logstore.RemoteStore = (*DAVStore)(nil)
