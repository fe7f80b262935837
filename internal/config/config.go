// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for khata. It supports a three-layer
// override chain (defaults -> config file -> environment variables); CLI
// flags are applied by the caller on top.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	App     AppConfig     `toml:"app"`
	API     APIConfig     `toml:"api"`
	Auth    AuthConfig    `toml:"auth"`
	Logging LoggingConfig `toml:"logging"`
}

// AppConfig names the application-level artifacts: the book name prefix used
// when creating and discovering spreadsheets, the Drive folder holding
// backups, and the backup file inside it.
type AppConfig struct {
	Name       string `toml:"name"`
	BookPrefix string `toml:"book_prefix"`
	FolderName string `toml:"folder_name"`
	BackupFile string `toml:"backup_file"`
	DataDir    string `toml:"data_dir"`
}

// APIConfig holds the remote endpoint base URLs. Overridable so tests and
// self-hosted proxies can point the client elsewhere.
type APIConfig struct {
	SheetsBaseURL string `toml:"sheets_base_url"`
	DriveBaseURL  string `toml:"drive_base_url"`
	UploadBaseURL string `toml:"upload_base_url"`
	TokenInfoURL  string `toml:"token_info_url"`
	RevokeURL     string `toml:"revoke_url"`
	UserInfoURL   string `toml:"user_info_url"`
	UserAgent     string `toml:"user_agent"`
	Timeout       string `toml:"timeout"`
}

// AuthConfig identifies the OAuth2 client used for interactive sign-in.
// ClientSecret may be empty for installed-application clients.
type AuthConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	Scopes       []string `toml:"scopes"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}
