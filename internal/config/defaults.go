package config

// Default values for configuration options. These represent the base layer
// of the override chain and work out of the box without a config file,
// except for auth.client_id which must be supplied by the user.
const (
	defaultAppName       = "Khata Book"
	defaultBookPrefix    = "Khata"
	defaultFolderName    = "Khata Book Data"
	defaultBackupFile    = "khata_backup.json"
	defaultSheetsBaseURL = "https://sheets.googleapis.com/v4"
	defaultDriveBaseURL  = "https://www.googleapis.com/drive/v3"
	defaultUploadBaseURL = "https://www.googleapis.com/upload/drive/v3"
	defaultTokenInfoURL  = "https://oauth2.googleapis.com/tokeninfo"
	defaultRevokeURL     = "https://oauth2.googleapis.com/revoke"
	defaultUserInfoURL   = "https://www.googleapis.com/oauth2/v2/userinfo"
	defaultUserAgent     = "khata/0.1"
	defaultTimeout       = "30s"
	defaultLogLevel      = "info"
)

// defaultScopes covers spreadsheet access, per-file Drive access for
// backups, and the profile fields shown by whoami.
var defaultScopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/drive.file",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
}

// DefaultConfig returns a Config populated with all default values.
// Used both as the starting point for TOML decoding (so unset fields retain
// defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:       defaultAppName,
			BookPrefix: defaultBookPrefix,
			FolderName: defaultFolderName,
			BackupFile: defaultBackupFile,
			DataDir:    DefaultDataDir(),
		},
		API: APIConfig{
			SheetsBaseURL: defaultSheetsBaseURL,
			DriveBaseURL:  defaultDriveBaseURL,
			UploadBaseURL: defaultUploadBaseURL,
			TokenInfoURL:  defaultTokenInfoURL,
			RevokeURL:     defaultRevokeURL,
			UserInfoURL:   defaultUserInfoURL,
			UserAgent:     defaultUserAgent,
			Timeout:       defaultTimeout,
		},
		Auth: AuthConfig{
			Scopes: append([]string(nil), defaultScopes...),
		},
		Logging: LoggingConfig{
			LogLevel: defaultLogLevel,
		},
	}
}
