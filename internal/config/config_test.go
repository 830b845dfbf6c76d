package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SOURCE_BASE_URL", "http://source.local")
	t.Setenv("SOURCE_AUTH_HEADER", "Bearer src")
	t.Setenv("DESTINATION_BASE_URL", "http://dest.local")
	t.Setenv("DESTINATION_AUTH_HEADER", "Bearer dst")
	t.Setenv("SYNC_SHARED_SECRET", "s3cret")
}

func TestNewConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg := NewConfig()

	assert.Equal(t, DefaultBatchSize, cfg.Sync.BatchSize)
	assert.Equal(t, ModeDryRun, cfg.Sync.Mode)
	assert.True(t, cfg.DryRun())
	assert.Equal(t, 3, cfg.Sync.MaxRetries)
	assert.Equal(t, time.Second, cfg.Sync.RetryBaseDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.Sync.RateLimitDelay)
	assert.Equal(t, 30*time.Second, cfg.Sync.HTTPTimeout)
	assert.Equal(t, IdempotencyTimestamped, cfg.Sync.IdempotencyStrategy)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, "*/15 * * * *", cfg.Schedule.Cron)
	assert.Empty(t, cfg.Schedule.Mappings)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SYNC_MODE", "sync")
	t.Setenv("SYNC_BATCH_SIZE", "10")
	t.Setenv("SYNC_RATE_LIMIT_DELAY", "2s")
	t.Setenv("SYNC_SCHEDULED_MAPPINGS", "users, campaigns ,,tasks")

	cfg := NewConfig()

	assert.Equal(t, ModeSync, cfg.Sync.Mode)
	assert.False(t, cfg.DryRun())
	assert.Equal(t, 10, cfg.Sync.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Sync.RateLimitDelay)
	assert.Equal(t, []string{"users", "campaigns", "tasks"}, cfg.Schedule.Mappings)
}

func TestValidate_ReportsAllMissingKeys(t *testing.T) {
	cfg := &Config{Sync: Sync{
		BatchSize:           50,
		Mode:                ModeDryRun,
		IdempotencyStrategy: IdempotencyTimestamped,
	}}

	err := cfg.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{
		"SOURCE_BASE_URL",
		"SOURCE_AUTH_HEADER",
		"DESTINATION_BASE_URL",
		"DESTINATION_AUTH_HEADER",
		"SYNC_SHARED_SECRET",
	}, verr.Missing)
	assert.Contains(t, err.Error(), "SYNC_SHARED_SECRET")
}

func TestValidate_InvalidValues(t *testing.T) {
	cfg := &Config{
		Source:      Endpoint{BaseURL: "not a url", AuthHeader: "x"},
		Destination: Endpoint{BaseURL: "http://dest.local", AuthHeader: "y"},
		Sync: Sync{
			SharedSecret:        "secret",
			BatchSize:           0,
			Mode:                "live",
			IdempotencyStrategy: "random",
		},
	}

	err := cfg.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Empty(t, verr.Missing)
	assert.Len(t, verr.Invalid, 4)
}
