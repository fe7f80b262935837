package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig       = "KHATA_CONFIG"
	EnvClientID     = "KHATA_CLIENT_ID"
	EnvClientSecret = "KHATA_CLIENT_SECRET"
	EnvDataDir      = "KHATA_DATA_DIR"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath   string // KHATA_CONFIG: override config file path
	ClientID     string // KHATA_CLIENT_ID: OAuth2 client ID
	ClientSecret string // KHATA_CLIENT_SECRET: OAuth2 client secret
	DataDir      string // KHATA_DATA_DIR: state database directory
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; Resolve applies the fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		DataDir:      os.Getenv(EnvDataDir),
	}
}
