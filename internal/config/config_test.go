package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Limits.MaxUploadSize != 16<<20 {
		t.Errorf("MaxUploadSize = %d, want %d", cfg.Limits.MaxUploadSize, 16<<20)
	}
	if cfg.Keys.Type != "keydir" || cfg.Files.Type != "maildir" {
		t.Errorf("default backends = %q/%q", cfg.Keys.Type, cfg.Files.Type)
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
[keys]
type = "sqlite"
path = "/srv/vault.db"

[files]
type = "maildir"
path = "/srv/files"

[files.options]
maildir_subdir = "Vault"
path_template = "{domain}/{localpart}"

[limits]
max_upload_size = 1048576
allowed_extensions = ["pdf", "txt"]

[vault]
tenant = "acme"

[log]
level = "debug"
format = "json"

[audit]
path = "/var/log/filevault/audit.jsonl"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ks := cfg.KeyStoreConfig()
	if ks.Type != "sqlite" || ks.Path != "/srv/vault.db" {
		t.Errorf("KeyStoreConfig = %+v", ks)
	}
	sc := cfg.StoreConfig()
	if sc.BasePath != "/srv/files" || sc.Options["path_template"] != "{domain}/{localpart}" {
		t.Errorf("StoreConfig = %+v", sc)
	}
	if cfg.Limits.MaxUploadSize != 1<<20 {
		t.Errorf("MaxUploadSize = %d", cfg.Limits.MaxUploadSize)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if len(cfg.Limits.AllowedExtensions) != 2 || cfg.Limits.AllowedExtensions[1] != "txt" {
		t.Errorf("AllowedExtensions = %v", cfg.Limits.AllowedExtensions)
	}
	if cfg.Vault.Tenant != "acme" {
		t.Errorf("Vault.Tenant = %q", cfg.Vault.Tenant)
	}
	if cfg.Audit.Path != "/var/log/filevault/audit.jsonl" {
		t.Errorf("Audit.Path = %q", cfg.Audit.Path)
	}
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "warn"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
	if cfg.Log.Format != "console" {
		t.Errorf("Log.Format = %q, want default console", cfg.Log.Format)
	}
	if cfg.Keys.Path != "/var/lib/filevault/keys" {
		t.Errorf("Keys.Path = %q, want default", cfg.Keys.Path)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", "[keys\ntype = "},
		{"negative limit", "[limits]\nmax_upload_size = -1\n"},
		{"bad log format", "[log]\nformat = \"xml\"\n"},
		{"empty key type", "[keys]\ntype = \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}
