package remote

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"logstore-go/internal/logstore"
)

func newTestFileSystemStore(t *testing.T) (*FileSystemStore, string, string) {
	t.Helper()
	dir := t.TempDir()
	baseURL := "file://" + filepath.ToSlash(dir)
	s, err := NewFileSystemStore(baseURL)
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	return s, baseURL, dir
}

func TestNewFileSystemStore(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{name: "file url", baseURL: "file:///srv/logs"},
		{name: "trailing slash", baseURL: "file:///srv/logs/"},
		{name: "http url", baseURL: "http://srv/logs", wantErr: true},
		{name: "no path", baseURL: "file://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileSystemStore(tt.baseURL)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewFileSystemStore(%q) error = %v, wantErr %v", tt.baseURL, err, tt.wantErr)
			}
		})
	}
}

func TestFileSystemStore_PutAndGet(t *testing.T) {
	s, baseURL, dir := newTestFileSystemStore(t)
	ctx := context.Background()
	data := "hello world"

	if err := s.Put(ctx, baseURL+"/1.rdlog", strings.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "1.rdlog"))
	if err != nil {
		t.Fatalf("failed to read stored file: %v", err)
	}
	if string(content) != data {
		t.Errorf("content = %q, want %q", string(content), data)
	}

	rc, err := s.Get(ctx, baseURL+"/1.rdlog")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		t.Fatalf("reading content: %v", err)
	}
	if buf.String() != data {
		t.Errorf("Get() = %q, want %q", buf.String(), data)
	}
}

func TestFileSystemStore_PutSizeMismatchLeavesNothing(t *testing.T) {
	s, baseURL, dir := newTestFileSystemStore(t)

	err := s.Put(context.Background(), baseURL+"/1.rdlog", strings.NewReader("hello"), 100)
	if err == nil {
		t.Fatal("Put() expected error for size mismatch")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("files left behind: %v", entries)
	}
}

func TestFileSystemStore_Collections(t *testing.T) {
	s, baseURL, dir := newTestFileSystemStore(t)
	ctx := context.Background()

	if err := s.CreateCollection(ctx, baseURL+"/a/b"); err == nil {
		t.Error("CreateCollection() expected error when parent is missing")
	}

	if err := s.CreateCollection(ctx, baseURL+"/a"); err != nil {
		t.Fatalf("CreateCollection() error = %v", err)
	}
	if info, err := os.Stat(filepath.Join(dir, "a")); err != nil || !info.IsDir() {
		t.Errorf("collection directory not created: %v", err)
	}

	ok, err := s.Exists(ctx, baseURL+"/a")
	if err != nil || !ok {
		t.Errorf("Exists() = %v, %v; want true, nil", ok, err)
	}
}

func TestFileSystemStore_GetNotFound(t *testing.T) {
	s, baseURL, _ := newTestFileSystemStore(t)

	_, err := s.Get(context.Background(), baseURL+"/missing")
	if !errors.Is(err, logstore.ErrNotFound) {
		t.Errorf("Get() error = %v, want logstore.ErrNotFound", err)
	}
}

func TestFileSystemStore_RejectsEscape(t *testing.T) {
	s, baseURL, _ := newTestFileSystemStore(t)

	if _, err := s.Exists(context.Background(), baseURL+"/../etc"); err == nil {
		t.Error("Exists() expected error for path escaping the root")
	}
	if _, err := s.Exists(context.Background(), "file:///elsewhere/x"); err == nil {
		t.Error("Exists() expected error for path outside the base URL")
	}
}

func TestFileSystemStore_BackendEndToEnd(t *testing.T) {
	s, baseURL, dir := newTestFileSystemStore(t)
	factory := func() (logstore.RemoteStore, error) { return s, nil }
	b := logstore.NewBackend(logstore.Options{PathTemplate: logstore.DefaultPathTemplate, BaseURL: baseURL}, factory, nil)
	if err := b.Initialize(logstore.NewExecutionContext("77", "", "demo")); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if _, err := b.Store(context.Background(), strings.NewReader("log"), 3, time.Now()); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "rundeck", "projects", "demo", "77.rdlog")); err != nil {
		t.Errorf("log not stored at expected path: %v", err)
	}
}
