package config

// Default values for configuration options. These are "layer 0" of the
// override chain and are chosen so the service runs locally without a
// config file, matching the out-of-box OAuth redirect registration.
const (
	defaultListenAddr       = ":8000"
	defaultBaseURL          = "http://localhost:8000"
	defaultRootDir          = "downloads"
	defaultArchiveBudget    = "2GB"
	defaultPageSize         = 1000
	defaultSessionTTL       = "4h"
	defaultCleanupInterval  = "1h"
	defaultCookieMaxAge     = "1h"
	defaultLogLevel         = "info"
	defaultLogFormat        = "auto"
	defaultLogRetentionDays = 30
)

// DefaultConfig returns a Config populated with all default values.
// This is the starting point for TOML decoding (unset fields retain
// defaults) and the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: defaultListenAddr,
			BaseURL:    defaultBaseURL,
		},
		Backup: BackupConfig{
			RootDir:       defaultRootDir,
			ArchiveBudget: defaultArchiveBudget,
			PageSize:      defaultPageSize,
		},
		Sessions: SessionsConfig{
			TTL:             defaultSessionTTL,
			CleanupInterval: defaultCleanupInterval,
			CookieMaxAge:    defaultCookieMaxAge,
		},
		Logging: LoggingConfig{
			LogLevel:         defaultLogLevel,
			LogFormat:        defaultLogFormat,
			LogRetentionDays: defaultLogRetentionDays,
		},
	}
}
