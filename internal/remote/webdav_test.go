package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/webdav"

	"logstore-go/internal/logstore"
)

// davServer is an in-process WebDAV server mounted at /dav that records
// the method and path of every request.
type davServer struct {
	*httptest.Server
	BaseURL string

	mu       sync.Mutex
	requests []string
}

func newDAVServer(t *testing.T) *davServer {
	t.Helper()
	h := &webdav.Handler{
		Prefix:     "/dav",
		FileSystem: webdav.NewMemFS(),
		LockSystem: webdav.NewMemLS(),
	}
	s := &davServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+strings.TrimSuffix(r.URL.Path, "/"))
		s.mu.Unlock()
		h.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	s.BaseURL = s.URL + "/dav"
	return s
}

// mkcols returns the distinct MKCOL paths in the order first seen.
func (s *davServer) mkcols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	seen := map[string]bool{}
	for _, r := range s.requests {
		p, ok := strings.CutPrefix(r, "MKCOL ")
		if ok && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func TestDAVStore_CollectionLifecycle(t *testing.T) {
	srv := newDAVServer(t)
	store := NewDAVStore(srv.BaseURL, "user", "pass")
	ctx := context.Background()

	ok, err := store.Exists(ctx, srv.BaseURL+"/logs")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.CreateCollection(ctx, srv.BaseURL+"/logs"))

	ok, err = store.Exists(ctx, srv.BaseURL+"/logs")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDAVStore_PutAndGet(t *testing.T) {
	srv := newDAVServer(t)
	store := NewDAVStore(srv.BaseURL, "user", "pass")
	ctx := context.Background()
	path := srv.BaseURL + "/42.rdlog"
	content := "^^^ log output ^^^\n"

	require.NoError(t, store.Put(ctx, path, strings.NewReader(content), int64(len(content))))

	ok, err := store.Exists(ctx, path)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := store.Get(ctx, path)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestDAVStore_GetNotFound(t *testing.T) {
	srv := newDAVServer(t)
	store := NewDAVStore(srv.BaseURL, "user", "pass")

	_, err := store.Get(context.Background(), srv.BaseURL+"/missing.rdlog")
	assert.ErrorIs(t, err, logstore.ErrNotFound)
}

func TestDAVStore_RejectsForeignPath(t *testing.T) {
	srv := newDAVServer(t)
	store := NewDAVStore(srv.BaseURL, "user", "pass")

	_, err := store.Exists(context.Background(), "https://other.example.com/dav/x")
	assert.Error(t, err)
	assert.Empty(t, srv.mkcols())
}

func TestDAVStore_CanceledContext(t *testing.T) {
	srv := newDAVServer(t)
	store := NewDAVStore(srv.BaseURL, "user", "pass")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Exists(ctx, srv.BaseURL+"/x")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDAVStore_ServerDown(t *testing.T) {
	srv := newDAVServer(t)
	store := NewDAVStore(srv.BaseURL, "user", "pass")
	srv.Close()

	_, err := store.Exists(context.Background(), srv.BaseURL+"/x")
	assert.Error(t, err)
}

func TestDAVStore_BackendEndToEnd(t *testing.T) {
	srv := newDAVServer(t)
	factory := func() (logstore.RemoteStore, error) {
		return NewDAVStore(srv.BaseURL, "user", "pass"), nil
	}
	b := logstore.NewBackend(logstore.Options{
		PathTemplate: "rundeck/projects/${job.project}/${job.execid}.rdlog",
		BaseURL:      srv.BaseURL,
	}, factory, nil)
	require.NoError(t, b.Initialize(logstore.NewExecutionContext("77", "", "demo")))
	ctx := context.Background()

	available, err := b.IsAvailable(ctx)
	require.NoError(t, err)
	assert.False(t, available)

	content := strings.Repeat("log line\n", 100)
	ok, err := b.Store(ctx, strings.NewReader(content), int64(len(content)), time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{
		"/dav/rundeck",
		"/dav/rundeck/projects",
		"/dav/rundeck/projects/demo",
	}, srv.mkcols())

	available, err = b.IsAvailable(ctx)
	require.NoError(t, err)
	assert.True(t, available)

	var sb strings.Builder
	ok, err = b.Retrieve(ctx, &sb)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, content, sb.String())
}
