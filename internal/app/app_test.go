package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"logstore-go/internal/config"
	"logstore-go/internal/logstore"
)

func newTestApp(t *testing.T, path string) *LogStoreApp {
	t.Helper()
	cfg := &config.Config{
		Path:   path,
		LogDir: filepath.Join(t.TempDir(), "log"),
		Remote: config.RemoteConfig{Type: "memory", BaseURL: "mem://dav"},
	}
	a, err := NewLogStoreApp(context.Background(), cfg, "Test", slog.LevelError)
	if err != nil {
		t.Fatalf("NewLogStoreApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNewLogStoreApp(t *testing.T) {
	t.Run("rejects invalid config", func(t *testing.T) {
		cfg := &config.Config{
			Path:   "logs/static.log",
			LogDir: t.TempDir(),
			Remote: config.RemoteConfig{Type: "memory", BaseURL: "mem://dav"},
		}
		_, err := NewLogStoreApp(context.Background(), cfg, "Test", slog.LevelInfo)
		if !logstore.IsConfigError(err) {
			t.Fatalf("NewLogStoreApp() error = %v, want *logstore.ConfigError", err)
		}
	})

	t.Run("creates log file", func(t *testing.T) {
		a := newTestApp(t, logstore.DefaultPathTemplate)
		if _, err := os.Stat(filepath.Join(a.cfg.LogDir, "logstore.log")); err != nil {
			t.Errorf("log file not created: %v", err)
		}
	})
}

func TestLogStoreApp_StoreRetrieve(t *testing.T) {
	a := newTestApp(t, logstore.DefaultPathTemplate)
	ctx := context.Background()
	execCtx := logstore.NewExecutionContext("77", "", "demo")

	available, location, err := a.IsAvailable(ctx, execCtx)
	if err != nil {
		t.Fatalf("IsAvailable() error = %v", err)
	}
	if available {
		t.Error("IsAvailable() = true before store")
	}
	if location != "mem://dav/rundeck/projects/demo/77.rdlog" {
		t.Errorf("location = %q", location)
	}

	content := "step 1 ok\nstep 2 ok\n"
	if _, err := a.Store(ctx, execCtx, strings.NewReader(content), int64(len(content)), time.Now()); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	var buf bytes.Buffer
	if _, err := a.Retrieve(ctx, execCtx, &buf); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if buf.String() != content {
		t.Errorf("Retrieve() = %q, want %q", buf.String(), content)
	}
	if a.op.Status != "success" {
		t.Errorf("operation status = %q, want success", a.op.Status)
	}
	if a.op.ExecID != "77" {
		t.Errorf("operation execid = %q, want 77", a.op.ExecID)
	}
}

func TestLogStoreApp_StoreFile(t *testing.T) {
	a := newTestApp(t, "logs/")
	ctx := context.Background()
	execCtx := logstore.NewExecutionContext("5", "", "")

	path := filepath.Join(t.TempDir(), "output.log")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatalf("writing log file: %v", err)
	}

	location, size, err := a.StoreFile(ctx, execCtx, path)
	if err != nil {
		t.Fatalf("StoreFile() error = %v", err)
	}
	if location != "mem://dav/logs/5.rdlog" {
		t.Errorf("location = %q, want %q", location, "mem://dav/logs/5.rdlog")
	}
	if size != 5 {
		t.Errorf("size = %d, want 5", size)
	}

	t.Run("missing file", func(t *testing.T) {
		_, _, err := a.StoreFile(ctx, execCtx, filepath.Join(t.TempDir(), "nope.log"))
		if err == nil {
			t.Fatal("StoreFile() expected error for missing file")
		}
		if a.op.Status != "error" {
			t.Errorf("operation status = %q, want error", a.op.Status)
		}
	})
}

func TestLogStoreApp_RetrieveMissing(t *testing.T) {
	a := newTestApp(t, logstore.DefaultPathTemplate)

	_, err := a.Retrieve(context.Background(), logstore.NewExecutionContext("1", "", "p"), &bytes.Buffer{})
	if !errors.Is(err, logstore.ErrNotFound) {
		t.Fatalf("Retrieve() error = %v, want logstore.ErrNotFound", err)
	}
	if a.op.Status != "error" {
		t.Errorf("operation status = %q, want error", a.op.Status)
	}
}

func TestLogStoreApp_ResolveLocation(t *testing.T) {
	a := newTestApp(t, "${job.project}/${job.id}/${job.execid}.log")

	location, err := a.ResolveLocation(logstore.NewExecutionContext("3", "job-1", "ops"))
	if err != nil {
		t.Fatalf("ResolveLocation() error = %v", err)
	}
	if location != "mem://dav/ops/job-1/3.log" {
		t.Errorf("ResolveLocation() = %q", location)
	}
}

func TestResolvePassword(t *testing.T) {
	notTTY, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	defer notTTY.Close()

	t.Run("keeps configured password", func(t *testing.T) {
		t.Setenv("LOGSTORE_PASSWORD", "from-env")
		cfg := &config.Config{Remote: config.RemoteConfig{Type: "webdav", Password: "set"}}
		if err := ResolvePassword(cfg, notTTY, &bytes.Buffer{}); err != nil {
			t.Fatalf("ResolvePassword() error = %v", err)
		}
		if cfg.Remote.Password != "set" {
			t.Errorf("Password = %q, want %q", cfg.Remote.Password, "set")
		}
	})

	t.Run("reads environment", func(t *testing.T) {
		t.Setenv("LOGSTORE_PASSWORD", "from-env")
		cfg := &config.Config{Remote: config.RemoteConfig{Type: "webdav"}}
		if err := ResolvePassword(cfg, notTTY, &bytes.Buffer{}); err != nil {
			t.Fatalf("ResolvePassword() error = %v", err)
		}
		if cfg.Remote.Password != "from-env" {
			t.Errorf("Password = %q, want %q", cfg.Remote.Password, "from-env")
		}
	})

	t.Run("no prompt without terminal", func(t *testing.T) {
		t.Setenv("LOGSTORE_PASSWORD", "")
		var out bytes.Buffer
		cfg := &config.Config{Remote: config.RemoteConfig{Type: "webdav"}}
		if err := ResolvePassword(cfg, notTTY, &out); err != nil {
			t.Fatalf("ResolvePassword() error = %v", err)
		}
		if cfg.Remote.Password != "" || out.Len() != 0 {
			t.Errorf("unexpected prompt: password=%q output=%q", cfg.Remote.Password, out.String())
		}
	})

	t.Run("ignored for s3", func(t *testing.T) {
		t.Setenv("LOGSTORE_PASSWORD", "from-env")
		cfg := &config.Config{Remote: config.RemoteConfig{Type: "s3"}}
		if err := ResolvePassword(cfg, notTTY, &bytes.Buffer{}); err != nil {
			t.Fatalf("ResolvePassword() error = %v", err)
		}
		if cfg.Remote.Password != "" {
			t.Errorf("Password = %q, want empty", cfg.Remote.Password)
		}
	})
}
