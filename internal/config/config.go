package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"logstore-go/internal/logstore"
)

// Config represents the main configuration for logstore.
type Config struct {
	Path   string       `toml:"path"` // storage key template
	LogDir string       `toml:"log_dir"`
	Remote RemoteConfig `toml:"remote"`
}

// RemoteConfig represents configuration for the remote store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type RemoteConfig struct {
	Type     string `toml:"type"` // "webdav", "s3", "filesystem" or "memory"
	BaseURL  string `toml:"base_url"`
	Username string `toml:"username,omitempty"`
	Password string `toml:"password,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"`
}

// NewConfig creates a new Config with the default path template and log directory.
func NewConfig(baseDir string) *Config {
	return &Config{
		Path:   logstore.DefaultPathTemplate,
		LogDir: filepath.Join(baseDir, "log"),
		Remote: RemoteConfig{
			Type: "webdav",
		},
	}
}

// Validate checks that the configuration is complete. Problems are reported
// as *logstore.ConfigError.
func (c *Config) Validate() error {
	if err := logstore.ValidateTemplate(c.Path); err != nil {
		return err
	}
	return c.Remote.Validate()
}

// Validate checks the remote store settings for the configured type.
func (r *RemoteConfig) Validate() error {
	if strings.TrimSpace(r.BaseURL) == "" {
		return &logstore.ConfigError{Reason: "remote.base_url was not set"}
	}
	switch r.Type {
	case "webdav":
		if r.Username == "" {
			return &logstore.ConfigError{Reason: "remote.username was not set"}
		}
		if r.Password == "" {
			return &logstore.ConfigError{Reason: "remote.password was not set"}
		}
	case "s3":
		if !strings.HasPrefix(r.BaseURL, "s3://") {
			return &logstore.ConfigError{Reason: "s3 remote.base_url must start with s3://"}
		}
		if (r.Username == "") != (r.Password == "") {
			return &logstore.ConfigError{Reason: "s3 credentials need both username and password, or neither"}
		}
	case "filesystem":
		if !strings.HasPrefix(r.BaseURL, "file://") {
			return &logstore.ConfigError{Reason: "filesystem remote.base_url must start with file://"}
		}
	case "memory":
	default:
		return &logstore.ConfigError{Reason: fmt.Sprintf("unknown remote type: %s", r.Type)}
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Path == "" {
		cfg.Path = logstore.DefaultPathTemplate
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// The file may hold credentials, so it is created owner-readable only.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
