package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "Khata Book", cfg.App.Name)
	assert.Equal(t, "Khata", cfg.App.BookPrefix)
	assert.Equal(t, "Khata Book Data", cfg.App.FolderName)
	assert.Equal(t, "khata_backup.json", cfg.App.BackupFile)
	assert.Equal(t, "https://sheets.googleapis.com/v4", cfg.API.SheetsBaseURL)
	assert.Equal(t, "30s", cfg.API.Timeout)
	assert.Equal(t, "info", cfg.Logging.LogLevel)
	assert.Empty(t, cfg.Auth.ClientID)
	assert.Len(t, cfg.Auth.Scopes, 4)
}

func TestLoad_LayersOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
[app]
book_prefix = "Ledger"

[auth]
client_id = "my-client.apps.googleusercontent.com"

[logging]
log_level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// Explicit keys win.
	assert.Equal(t, "Ledger", cfg.App.BookPrefix)
	assert.Equal(t, "my-client.apps.googleusercontent.com", cfg.Auth.ClientID)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)

	// Untouched keys keep their defaults.
	assert.Equal(t, "Khata Book Data", cfg.App.FolderName)
	assert.Equal(t, "30s", cfg.API.Timeout)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeConfigFile(t, `
[app]
book_prefx = "typo"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
	assert.Contains(t, err.Error(), "book_prefx")
}

func TestLoad_RejectsMalformedTOML(t *testing.T) {
	path := writeConfigFile(t, `[app`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nonexistent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().App.BookPrefix, cfg.App.BookPrefix)
}

func TestResolve_EnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
[auth]
client_id = "file-client"
`)

	cfg, err := Resolve(EnvOverrides{
		ClientID:     "env-client",
		ClientSecret: "env-secret",
		DataDir:      "/tmp/khata-test",
	}, path)
	require.NoError(t, err)

	// Environment beats the config file.
	assert.Equal(t, "env-client", cfg.Auth.ClientID)
	assert.Equal(t, "env-secret", cfg.Auth.ClientSecret)
	assert.Equal(t, "/tmp/khata-test", cfg.App.DataDir)
}

func TestResolve_CLIPathBeatsEnvPath(t *testing.T) {
	envPath := writeConfigFile(t, `
[app]
book_prefix = "FromEnv"
`)
	cliPath := writeConfigFile(t, `
[app]
book_prefix = "FromCLI"
`)

	cfg, err := Resolve(EnvOverrides{ConfigPath: envPath}, cliPath)
	require.NoError(t, err)
	assert.Equal(t, "FromCLI", cfg.App.BookPrefix)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.LogLevel = "verbose" },
			wantErr: "log_level",
		},
		{
			name:    "unparseable timeout",
			mutate:  func(c *Config) { c.API.Timeout = "thirty seconds" },
			wantErr: "api.timeout",
		},
		{
			name:    "empty book prefix",
			mutate:  func(c *Config) { c.App.BookPrefix = "" },
			wantErr: "book_prefix",
		},
		{
			name:    "empty folder name",
			mutate:  func(c *Config) { c.App.FolderName = "" },
			wantErr: "folder_name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHTTPTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout string
		want    time.Duration
	}{
		{"configured value", "45s", 45 * time.Second},
		{"unset falls back", "", 30 * time.Second},
		{"garbage falls back", "soon", 30 * time.Second},
		{"negative falls back", "-5s", 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.API.Timeout = tt.timeout
			assert.Equal(t, tt.want, cfg.HTTPTimeout())
		})
	}
}

func TestReadEnvOverrides(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/khata/config.toml")
	t.Setenv(EnvClientID, "abc")
	t.Setenv(EnvClientSecret, "shh")
	t.Setenv(EnvDataDir, "/var/lib/khata")

	env := ReadEnvOverrides()
	assert.Equal(t, "/etc/khata/config.toml", env.ConfigPath)
	assert.Equal(t, "abc", env.ClientID)
	assert.Equal(t, "shh", env.ClientSecret)
	assert.Equal(t, "/var/lib/khata", env.DataDir)
}

func TestStatePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/data", "state.db"), StatePath("/data"))
}
