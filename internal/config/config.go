package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Mode selects whether a run writes to the destination system.
type Mode string

const (
	ModeSync   Mode = "sync"    // Live writes to the destination
	ModeDryRun Mode = "dry-run" // Full pipeline without the final write (default)
)

// IdempotencyStrategy selects how idempotency keys are built.
type IdempotencyStrategy string

const (
	IdempotencyTimestamped IdempotencyStrategy = "timestamped" // resourceId-mapping-unixMillis (default)
	IdempotencyStable      IdempotencyStrategy = "stable"      // resourceId-mapping
)

type (
	Config struct {
		HTTP
		Source      Endpoint
		Destination Endpoint
		Sync
		Schedule
		Audit
		Global
		Database
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}
	// Endpoint describes the connection to the source or destination system.
	Endpoint struct {
		BaseURL    string
		AuthHeader string // Sent verbatim as the Authorization header
	}
	Sync struct {
		BatchSize           int
		Mode                Mode
		SharedSecret        string
		MaxRetries          int
		RetryBaseDelay      time.Duration
		RateLimitDelay      time.Duration
		HTTPTimeout         time.Duration
		IdempotencyStrategy IdempotencyStrategy
		MappingsFile        string // Optional YAML file with extra mappings
	}
	Schedule struct {
		Enabled  bool
		Cron     string   // Cron format: "*/15 * * * *" = every 15 minutes
		Mappings []string // Mapping names run on every tick
	}
	Audit struct {
		Dir           string
		RetentionDays int // Days to keep sync log entries (default: 30)
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("audit_dir", "./audit")
	v.SetDefault("audit_retention_days", 30)

	// Sync engine defaults
	v.SetDefault("sync_batch_size", DefaultBatchSize)
	v.SetDefault("sync_mode", string(ModeDryRun))
	v.SetDefault("sync_max_retries", 3)
	v.SetDefault("sync_retry_base_delay", "1s")
	v.SetDefault("sync_rate_limit_delay", "100ms")
	v.SetDefault("sync_http_timeout", "30s")
	v.SetDefault("idempotency_key_strategy", string(IdempotencyTimestamped))
	v.SetDefault("mappings_file", "")

	// Scheduler defaults
	v.SetDefault("sync_schedule_enabled", false)
	v.SetDefault("sync_schedule", "*/15 * * * *")
	v.SetDefault("sync_scheduled_mappings", "")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "30m")
	v.SetDefault("task_cleanup_interval", "1h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Source: Endpoint{
			BaseURL:    v.GetString("SOURCE_BASE_URL"),
			AuthHeader: v.GetString("SOURCE_AUTH_HEADER"),
		},
		Destination: Endpoint{
			BaseURL:    v.GetString("DESTINATION_BASE_URL"),
			AuthHeader: v.GetString("DESTINATION_AUTH_HEADER"),
		},
		Sync: Sync{
			BatchSize:           v.GetInt("SYNC_BATCH_SIZE"),
			Mode:                Mode(v.GetString("SYNC_MODE")),
			SharedSecret:        v.GetString("SYNC_SHARED_SECRET"),
			MaxRetries:          v.GetInt("SYNC_MAX_RETRIES"),
			RetryBaseDelay:      v.GetDuration("SYNC_RETRY_BASE_DELAY"),
			RateLimitDelay:      v.GetDuration("SYNC_RATE_LIMIT_DELAY"),
			HTTPTimeout:         v.GetDuration("SYNC_HTTP_TIMEOUT"),
			IdempotencyStrategy: IdempotencyStrategy(v.GetString("IDEMPOTENCY_KEY_STRATEGY")),
			MappingsFile:        v.GetString("MAPPINGS_FILE"),
		},
		Schedule: Schedule{
			Enabled:  v.GetBool("SYNC_SCHEDULE_ENABLED"),
			Cron:     v.GetString("SYNC_SCHEDULE"),
			Mappings: splitList(v.GetString("SYNC_SCHEDULED_MAPPINGS")),
		},
		Audit: Audit{
			Dir:           v.GetString("AUDIT_DIR"),
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
	}
}

// DryRun reports whether the configured default mode skips destination writes.
func (c *Config) DryRun() bool {
	return c.Sync.Mode != ModeSync
}

// ValidationError lists every configuration problem found by Validate.
type ValidationError struct {
	Missing []string // Required keys that are not set
	Invalid []string // Keys whose values could not be used
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required settings: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid settings: "+strings.Join(e.Invalid, "; "))
	}
	return "configuration error: " + strings.Join(parts, "; ")
}

// Validate checks the settings a sync run depends on. It never stops at the
// first problem so that operators can fix everything in one pass.
func (c *Config) Validate() error {
	verr := &ValidationError{}

	required := []struct {
		key   string
		value string
	}{
		{"SOURCE_BASE_URL", c.Source.BaseURL},
		{"SOURCE_AUTH_HEADER", c.Source.AuthHeader},
		{"DESTINATION_BASE_URL", c.Destination.BaseURL},
		{"DESTINATION_AUTH_HEADER", c.Destination.AuthHeader},
		{"SYNC_SHARED_SECRET", c.Sync.SharedSecret},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			verr.Missing = append(verr.Missing, r.key)
		}
	}

	for _, u := range []struct {
		key   string
		value string
	}{
		{"SOURCE_BASE_URL", c.Source.BaseURL},
		{"DESTINATION_BASE_URL", c.Destination.BaseURL},
	} {
		if u.value == "" {
			continue
		}
		parsed, err := url.Parse(u.value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			verr.Invalid = append(verr.Invalid, fmt.Sprintf("%s: %q is not an absolute URL", u.key, u.value))
		}
	}

	switch c.Sync.Mode {
	case ModeSync, ModeDryRun:
	default:
		verr.Invalid = append(verr.Invalid, fmt.Sprintf("SYNC_MODE: %q (want %q or %q)", c.Sync.Mode, ModeSync, ModeDryRun))
	}

	switch c.Sync.IdempotencyStrategy {
	case IdempotencyTimestamped, IdempotencyStable:
	default:
		verr.Invalid = append(verr.Invalid, fmt.Sprintf("IDEMPOTENCY_KEY_STRATEGY: %q", c.Sync.IdempotencyStrategy))
	}

	if c.Sync.BatchSize <= 0 {
		verr.Invalid = append(verr.Invalid, fmt.Sprintf("SYNC_BATCH_SIZE: %d must be positive", c.Sync.BatchSize))
	}
	if c.Sync.MaxRetries < 0 {
		verr.Invalid = append(verr.Invalid, fmt.Sprintf("SYNC_MAX_RETRIES: %d must not be negative", c.Sync.MaxRetries))
	}

	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return verr
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
