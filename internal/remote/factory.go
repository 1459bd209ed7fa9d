package remote

import (
	"context"
	"fmt"
	"sync"

	"logstore-go/internal/config"
	"logstore-go/internal/logstore"
)

// NewFactoryFromConfig creates a RemoteStoreFactory for the remote config type.
//
// WebDAV handles are built fresh on every call. The S3 client is loaded once
// and shared between handles. All handles of a "memory" factory share one
// in-process store.
func NewFactoryFromConfig(ctx context.Context, cfg config.RemoteConfig) (logstore.RemoteStoreFactory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "memory":
		store := NewMemoryStore(cfg.BaseURL)
		return func() (logstore.RemoteStore, error) {
			return store, nil
		}, nil
	case "webdav":
		return func() (logstore.RemoteStore, error) {
			return NewDAVStore(cfg.BaseURL, cfg.Username, cfg.Password), nil
		}, nil
	case "s3":
		return newS3Factory(ctx, cfg), nil
	case "filesystem":
		store, err := NewFileSystemStore(cfg.BaseURL)
		if err != nil {
			return nil, &logstore.ConfigError{Reason: err.Error()}
		}
		return func() (logstore.RemoteStore, error) {
			return store, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown remote type: %s", cfg.Type)
	}
}

// newS3Factory defers loading the AWS configuration to the first handle so
// that configuration problems surface as storage errors of that operation.
func newS3Factory(ctx context.Context, cfg config.RemoteConfig) logstore.RemoteStoreFactory {
	var (
		once   sync.Once
		client S3API
		err    error
	)
	return func() (logstore.RemoteStore, error) {
		once.Do(func() {
			client, err = NewS3Client(ctx, S3Options{
				Region:          cfg.S3Region,
				Endpoint:        cfg.S3Endpoint,
				AccessKeyID:     cfg.Username,
				SecretAccessKey: cfg.Password,
			})
		})
		if err != nil {
			return nil, err
		}
		return NewS3Store(client), nil
	}
}
