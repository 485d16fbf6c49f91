package config

import "os"

// Environment variable names for overrides. The OAuth client registration
// is usually injected through the environment rather than written into a
// config file, so the secret stays out of version control.
const (
	EnvConfig       = "DRIVEBACK_CONFIG"
	EnvListenAddr   = "DRIVEBACK_LISTEN_ADDR"
	EnvBaseURL      = "DRIVEBACK_BASE_URL"
	EnvClientID     = "GOOGLE_CLIENT_ID"
	EnvClientSecret = "GOOGLE_CLIENT_SECRET"
	EnvRedirectURL  = "REDIRECT_URL"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath   string
	ListenAddr   string
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. It does not modify a Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		ListenAddr:   os.Getenv(EnvListenAddr),
		BaseURL:      os.Getenv(EnvBaseURL),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		RedirectURL:  os.Getenv(EnvRedirectURL),
	}
}

// applyEnv overlays environment values onto the config. Environment wins
// over the config file because deployments set credentials per-instance.
func applyEnv(cfg *Config, env EnvOverrides) {
	if env.ListenAddr != "" {
		cfg.Server.ListenAddr = env.ListenAddr
	}

	if env.BaseURL != "" {
		cfg.Server.BaseURL = env.BaseURL
	}

	if env.ClientID != "" {
		cfg.OAuth.ClientID = env.ClientID
	}

	if env.ClientSecret != "" {
		cfg.OAuth.ClientSecret = env.ClientSecret
	}

	if env.RedirectURL != "" {
		cfg.OAuth.RedirectURL = env.RedirectURL
	}
}
