package logstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped by RemoteStore implementations when Get targets a
	// resource that does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrNotInitialized is returned by Backend operations invoked before Initialize.
	ErrNotInitialized = errors.New("backend not initialized")

	// ErrAlreadyInitialized is returned when Initialize is called a second time.
	ErrAlreadyInitialized = errors.New("backend already initialized")
)

// ConfigError reports an invalid path template or backend configuration.
// It is raised before any remote activity and is never worth retrying.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

func configErrorf(format string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// StorageError wraps a failure of the remote store together with the log
// location it concerned.
type StorageError struct {
	Op       string // "store", "available", "retrieve", "provision"
	Location string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("log location: %s: %s: %v", e.Location, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is (or wraps) a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
