package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors — silently ignoring a
// typo in a config file leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with all default values. This supports the zero-config
// first-run experience: users can start with nothing but two env vars.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolved is the fully materialized configuration: string sizes and
// durations parsed, the redirect URL derived, environment applied.
type Resolved struct {
	ListenAddr      string
	BaseURL         string
	ClientID        string
	ClientSecret    string
	RedirectURL     string
	RootDir         string
	ArchiveBudget   int64
	PageSize        int
	SessionTTL      time.Duration
	CleanupInterval time.Duration
	CookieMaxAge    time.Duration
	Logging         LoggingConfig
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment. The config path itself comes
// from the env override or the explicit path argument (CLI flag), with
// the flag winning.
func Resolve(flagConfigPath string, env EnvOverrides) (*Resolved, error) {
	cfgPath := env.ConfigPath
	if flagConfigPath != "" {
		cfgPath = flagConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	applyEnv(cfg, env)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	budget, err := ParseSize(cfg.Backup.ArchiveBudget)
	if err != nil {
		return nil, fmt.Errorf("archive_budget: %w", err)
	}

	ttl, err := time.ParseDuration(cfg.Sessions.TTL)
	if err != nil {
		return nil, fmt.Errorf("ttl: %w", err)
	}

	cleanup, err := time.ParseDuration(cfg.Sessions.CleanupInterval)
	if err != nil {
		return nil, fmt.Errorf("cleanup_interval: %w", err)
	}

	cookieAge, err := time.ParseDuration(cfg.Sessions.CookieMaxAge)
	if err != nil {
		return nil, fmt.Errorf("cookie_max_age: %w", err)
	}

	redirect := cfg.OAuth.RedirectURL
	if redirect == "" {
		redirect = strings.TrimRight(cfg.Server.BaseURL, "/") + "/auth/callback"
	}

	return &Resolved{
		ListenAddr:      cfg.Server.ListenAddr,
		BaseURL:         cfg.Server.BaseURL,
		ClientID:        cfg.OAuth.ClientID,
		ClientSecret:    cfg.OAuth.ClientSecret,
		RedirectURL:     redirect,
		RootDir:         cfg.Backup.RootDir,
		ArchiveBudget:   budget,
		PageSize:        cfg.Backup.PageSize,
		SessionTTL:      ttl,
		CleanupInterval: cleanup,
		CookieMaxAge:    cookieAge,
		Logging:         cfg.Logging,
	}, nil
}
