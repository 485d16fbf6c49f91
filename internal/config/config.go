// Package config implements TOML configuration loading, validation, and
// override resolution for driveback. It supports a three-layer override
// chain (defaults -> config file -> environment) plus a handful of CLI
// flags applied by the serve command.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	OAuth    OAuthConfig    `toml:"oauth"`
	Backup   BackupConfig   `toml:"backup"`
	Sessions SessionsConfig `toml:"sessions"`
	Logging  LoggingConfig  `toml:"logging"`
}

// ServerConfig controls the HTTP listener and how the service addresses
// itself in OAuth redirect URLs.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
	BaseURL    string `toml:"base_url"`
}

// OAuthConfig holds the Google OAuth client registration. ClientID and
// ClientSecret have no defaults — the service refuses to start a login
// without them. RedirectURL defaults to base_url + "/auth/callback".
type OAuthConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURL  string `toml:"redirect_url"`
}

// BackupConfig controls the backup pipeline: where archives land, when an
// archive rotates, and how large listing pages are.
type BackupConfig struct {
	RootDir       string `toml:"root_dir"`
	ArchiveBudget string `toml:"archive_budget"`
	PageSize      int    `toml:"page_size"`
}

// SessionsConfig controls session lifetime and expiry sweeping.
// Durations are Go duration strings ("4h", "30m").
type SessionsConfig struct {
	TTL             string `toml:"ttl"`
	CleanupInterval string `toml:"cleanup_interval"`
	CookieMaxAge    string `toml:"cookie_max_age"`
}

// LoggingConfig controls log output behavior: level, format, and the
// optional rotating log file.
type LoggingConfig struct {
	LogLevel         string `toml:"log_level"`
	LogFile          string `toml:"log_file"`
	LogFormat        string `toml:"log_format"`
	LogRetentionDays int    `toml:"log_retention_days"`
}
