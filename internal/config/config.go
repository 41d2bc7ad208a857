// Package config defines service configuration structures and loading hooks.
//
// Values are layered as defaults (New), an optional YAML file and WRCHECK_
// environment variables. Components receive the values they need through
// their constructors; nothing reads the Config after startup.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoder: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the status/metrics HTTP listen address, e.g. ":9080".
	// Empty disables the server.
	Addr string `koanf:"addr"`

	// DatabasePath is the SQLite file holding score history and metadata.
	DatabasePath string `koanf:"database_path"`

	// LoopWait is the fixed delay between two ticks.
	LoopWait time.Duration `koanf:"loop_wait"`

	// RequestTimeout bounds every outbound call.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// RecapWindow is the trailing window summarized by the weekly recap.
	RecapWindow time.Duration `koanf:"recap_window"`

	// FetchConcurrency caps in-flight per-level backend reads within a tick.
	FetchConcurrency int `koanf:"fetch_concurrency"`

	// HeartbeatURL is pinged after every tick when set.
	HeartbeatURL string `koanf:"heartbeat_url"`

	// ReplayDir is the root directory for downloaded replay files.
	ReplayDir string `koanf:"replay_dir"`

	// ReplayEnabled toggles replay downloads for new records.
	ReplayEnabled bool `koanf:"replay_enabled"`

	Catalog Catalog `koanf:"catalog"`
	Backend Backend `koanf:"backend"`
	Discord Discord `koanf:"discord"`
}

// Catalog points at the static level catalog files.
type Catalog struct {
	LevelIDsPath    string `koanf:"level_ids_path"`
	LevelTitlesPath string `koanf:"level_titles_path"`
}

// Backend configures the Parse server client.
type Backend struct {
	BaseURL   string `koanf:"base_url"`
	AppID     string `koanf:"app_id"`
	ClassName string `koanf:"class_name"`
	UserAgent string `koanf:"user_agent"`
	Weekly    Weekly `koanf:"weekly"`
}

// Weekly names the Parse classes backing the weekly challenge.
type Weekly struct {
	// ClassName holds the weekly challenge scores.
	ClassName string `koanf:"class_name"`
	// StatsClassName holds the CHALLENGE_DATA descriptor row.
	StatsClassName string `koanf:"stats_class_name"`
}

// Discord configures webhook delivery.
type Discord struct {
	// Webhooks receive record and recap messages.
	Webhooks []string `koanf:"webhooks"`
	// WeeklyWebhooks receive the weekly challenge announcement.
	WeeklyWebhooks []string `koanf:"weekly_webhooks"`
	// MaxAttempts bounds delivery attempts per webhook and message.
	MaxAttempts int `koanf:"max_attempts"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		DatabasePath:     "wrchecker.db",
		LoopWait:         60 * time.Second,
		RequestTimeout:   15 * time.Second,
		RecapWindow:      7 * 24 * time.Hour,
		FetchConcurrency: 8,
		ReplayDir:        "replays",
		ReplayEnabled:    true,
		Catalog: Catalog{
			LevelIDsPath:    "miuu_level_ids.json",
			LevelTitlesPath: "miuu_levelid_to_name.json",
		},
		Backend: Backend{
			UserAgent: "wrchecker",
		},
		Discord: Discord{
			MaxAttempts: 3,
		},
	}
}
