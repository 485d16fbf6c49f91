package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Validation range constants.
const (
	minPageSize     = 1
	maxPageSize     = 1000 // Drive API files.list maximum
	minLogRetention = 1
	minSessionTTL   = time.Minute
	minCleanup      = 10 * time.Second
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateBackup(&cfg.Backup)...)
	errs = append(errs, validateSessions(&cfg.Sessions)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

func validateServer(sc *ServerConfig) []error {
	var errs []error

	if sc.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr: must not be empty"))
	}

	if sc.BaseURL != "" {
		u, err := url.Parse(sc.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("base_url: not a valid absolute URL: %q", sc.BaseURL))
		}
	}

	return errs
}

func validateBackup(bc *BackupConfig) []error {
	var errs []error

	if bc.RootDir == "" {
		errs = append(errs, errors.New("root_dir: must not be empty"))
	}

	budget, err := ParseSize(bc.ArchiveBudget)
	if err != nil {
		errs = append(errs, fmt.Errorf("archive_budget: %w", err))
	} else if budget <= 0 {
		errs = append(errs, fmt.Errorf("archive_budget: must be positive, got %q", bc.ArchiveBudget))
	}

	if bc.PageSize < minPageSize || bc.PageSize > maxPageSize {
		errs = append(errs, fmt.Errorf("page_size: must be between %d and %d, got %d",
			minPageSize, maxPageSize, bc.PageSize))
	}

	return errs
}

func validateSessions(sc *SessionsConfig) []error {
	var errs []error

	if d, err := time.ParseDuration(sc.TTL); err != nil {
		errs = append(errs, fmt.Errorf("ttl: %w", err))
	} else if d < minSessionTTL {
		errs = append(errs, fmt.Errorf("ttl: must be at least %s, got %q", minSessionTTL, sc.TTL))
	}

	if d, err := time.ParseDuration(sc.CleanupInterval); err != nil {
		errs = append(errs, fmt.Errorf("cleanup_interval: %w", err))
	} else if d < minCleanup {
		errs = append(errs, fmt.Errorf("cleanup_interval: must be at least %s, got %q", minCleanup, sc.CleanupInterval))
	}

	if _, err := time.ParseDuration(sc.CookieMaxAge); err != nil {
		errs = append(errs, fmt.Errorf("cookie_max_age: %w", err))
	}

	return errs
}

func validateLogging(lc *LoggingConfig) []error {
	var errs []error

	switch lc.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level: must be debug, info, warn, or error, got %q", lc.LogLevel))
	}

	switch lc.LogFormat {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format: must be auto, text, or json, got %q", lc.LogFormat))
	}

	if lc.LogRetentionDays < minLogRetention {
		errs = append(errs, fmt.Errorf("log_retention_days: must be at least %d, got %d",
			minLogRetention, lc.LogRetentionDays))
	}

	return errs
}
