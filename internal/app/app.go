package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"logstore-go/internal/config"
	"logstore-go/internal/logstore"
	"logstore-go/internal/remote"
)

// LogStoreApp is the application layer between the CLI and the log archive
// backend. It builds the remote store factory from config and creates one
// Backend per execution it is asked about.
type LogStoreApp struct {
	cfg     *config.Config
	factory logstore.RemoteStoreFactory
	logger  logstore.Logger
	op      *Operation
	logFile *os.File
}

// NewLogStoreApp creates a fully wired LogStoreApp from the given config.
// operation identifies the CLI command being run (e.g. "Store", "Retrieve").
// The caller must call Close when done.
func NewLogStoreApp(ctx context.Context, cfg *config.Config, operation string, level slog.Level) (*LogStoreApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factory, err := remote.NewFactoryFromConfig(ctx, cfg.Remote)
	if err != nil {
		return nil, fmt.Errorf("creating remote store: %w", err)
	}

	op := NewOperation(operation)
	l, logFile, err := newLogger(cfg.LogDir, op.ID, level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	return &LogStoreApp{
		cfg:     cfg,
		factory: factory,
		logger:  &slogAdapter{l: l},
		op:      op,
		logFile: logFile,
	}, nil
}

// newBackend creates and initializes the backend for one execution.
func (a *LogStoreApp) newBackend(execCtx logstore.ExecutionContext) (*logstore.Backend, error) {
	a.op.ExecID = execCtx.Get(logstore.KeyExecID)

	b := logstore.NewBackend(logstore.Options{
		PathTemplate: a.cfg.Path,
		BaseURL:      a.cfg.Remote.BaseURL,
	}, a.factory, a.logger)
	if err := b.Initialize(execCtx); err != nil {
		return nil, err
	}
	return b, nil
}

func (a *LogStoreApp) track(err error) error {
	if err != nil {
		a.op.Fail()
	}
	return err
}

// ResolveLocation returns where the log of the execution would be stored.
func (a *LogStoreApp) ResolveLocation(execCtx logstore.ExecutionContext) (string, error) {
	b, err := a.newBackend(execCtx)
	if err != nil {
		return "", a.track(err)
	}
	return b.Location(), nil
}

// Store archives length bytes from r as the log of the execution.
// Returns the location the log was written to.
func (a *LogStoreApp) Store(ctx context.Context, execCtx logstore.ExecutionContext, r io.Reader, length int64, modTime time.Time) (string, error) {
	b, err := a.newBackend(execCtx)
	if err != nil {
		return "", a.track(err)
	}
	if _, err := b.Store(ctx, r, length, modTime); err != nil {
		return "", a.track(err)
	}
	return b.Location(), nil
}

// StoreFile archives the file at path, or stdin when path is "-".
// Returns the location and the number of bytes declared for the upload
// (-1 for stdin).
func (a *LogStoreApp) StoreFile(ctx context.Context, execCtx logstore.ExecutionContext, path string) (string, int64, error) {
	if path == "-" {
		location, err := a.Store(ctx, execCtx, os.Stdin, -1, time.Now())
		return location, -1, err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", 0, a.track(fmt.Errorf("opening log file: %w", err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", 0, a.track(fmt.Errorf("stat log file: %w", err))
	}

	location, err := a.Store(ctx, execCtx, f, info.Size(), info.ModTime())
	return location, info.Size(), err
}

// Retrieve copies the archived log of the execution into w.
func (a *LogStoreApp) Retrieve(ctx context.Context, execCtx logstore.ExecutionContext, w io.Writer) (string, error) {
	b, err := a.newBackend(execCtx)
	if err != nil {
		return "", a.track(err)
	}
	if _, err := b.Retrieve(ctx, w); err != nil {
		return "", a.track(err)
	}
	return b.Location(), nil
}

// IsAvailable reports whether the log of the execution has been archived.
func (a *LogStoreApp) IsAvailable(ctx context.Context, execCtx logstore.ExecutionContext) (bool, string, error) {
	b, err := a.newBackend(execCtx)
	if err != nil {
		return false, "", a.track(err)
	}
	available, err := b.IsAvailable(ctx)
	if err != nil {
		return false, "", a.track(err)
	}
	return available, b.Location(), nil
}

// Close logs the outcome of the operation and closes the log file.
func (a *LogStoreApp) Close() error {
	a.logger.Debug("operation finished",
		"operation", a.op.Name,
		"execid", a.op.ExecID,
		"status", a.op.Status,
		"duration", time.Since(a.op.StartedAt).Round(time.Millisecond),
	)

	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			return fmt.Errorf("closing log file: %w", err)
		}
	}
	return nil
}
