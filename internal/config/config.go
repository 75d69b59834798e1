// Package config loads vaultctl configuration from TOML.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/infodancer/filevault"
)

// DefaultPath is where vaultctl looks for its configuration.
const DefaultPath = "/etc/filevault/config.toml"

// Config is the top-level vaultctl configuration.
type Config struct {
	Keys   StoreSection  `toml:"keys"`
	Files  StoreSection  `toml:"files"`
	Limits LimitsSection `toml:"limits"`
	Vault  VaultSection  `toml:"vault"`
	Log    LogSection    `toml:"log"`
	Audit  AuditSection  `toml:"audit"`
}

// StoreSection selects and configures a registered backend.
type StoreSection struct {
	Type    string            `toml:"type"`
	Path    string            `toml:"path"`
	Options map[string]string `toml:"options"`
}

// LimitsSection holds request limits.
type LimitsSection struct {
	MaxUploadSize int64 `toml:"max_upload_size"`

	// AllowedExtensions lists accepted file extensions; empty accepts all.
	AllowedExtensions []string `toml:"allowed_extensions"`
}

// VaultSection scopes vault operations.
type VaultSection struct {
	Tenant string `toml:"tenant"`
}

// LogSection configures structured logging.
type LogSection struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// AuditSection configures the activity log. An empty path disables it.
type AuditSection struct {
	Path string `toml:"path"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Keys: StoreSection{
			Type: "keydir",
			Path: "/var/lib/filevault/keys",
		},
		Files: StoreSection{
			Type: "maildir",
			Path: "/var/lib/filevault/files",
		},
		Limits: LimitsSection{
			MaxUploadSize: filevault.DefaultMaxUploadSize,
		},
		Log: LogSection{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path over the defaults. Keys absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values no backend could accept.
func (c *Config) Validate() error {
	if c.Keys.Type == "" || c.Keys.Path == "" {
		return fmt.Errorf("[keys] type and path are required")
	}
	if c.Files.Type == "" || c.Files.Path == "" {
		return fmt.Errorf("[files] type and path are required")
	}
	if c.Limits.MaxUploadSize <= 0 {
		return fmt.Errorf("[limits] max_upload_size must be positive, got %d", c.Limits.MaxUploadSize)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("[log] format must be \"console\" or \"json\", got %q", c.Log.Format)
	}
	return nil
}

// KeyStoreConfig converts the [keys] section for filevault.OpenKeyStore.
func (c *Config) KeyStoreConfig() filevault.KeyStoreConfig {
	return filevault.KeyStoreConfig{
		Type:    c.Keys.Type,
		Path:    c.Keys.Path,
		Options: c.Keys.Options,
	}
}

// StoreConfig converts the [files] section for filevault.Open.
func (c *Config) StoreConfig() filevault.StoreConfig {
	return filevault.StoreConfig{
		Type:     c.Files.Type,
		BasePath: c.Files.Path,
		Options:  c.Files.Options,
	}
}
