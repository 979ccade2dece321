package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The multi-word snake_case defaults must survive the viper unmarshal;
// a silently zeroed TTL or gap collapses the whole pipeline.
func TestLoad_DefaultsSurviveUnmarshal(t *testing.T) {
	t.Setenv("TUTOR_LLM_MODEL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.Session.TTLHours)
	assert.Equal(t, 20, cfg.Session.MaxMessages)
	assert.Equal(t, 60, cfg.Session.SweepIntervalMinutes)
	assert.Equal(t, 4, cfg.Session.GapHours)

	assert.Equal(t, 5, cfg.Summary.MinMessages)
	assert.Equal(t, 90, cfg.Summary.RetentionDays)

	assert.Equal(t, 6, cfg.Digest.MinTotalMessages)
	assert.Equal(t, 2, cfg.Digest.MinConversations)
	assert.Equal(t, 19, cfg.Digest.RunHour)
	assert.Equal(t, 7, cfg.Digest.NotificationTTLDays)

	assert.Equal(t, 5, cfg.Batch.Size)
	assert.Equal(t, 2, cfg.Batch.DelaySeconds)
	assert.Equal(t, 6, cfg.Batch.CleanupIntervalHours)

	assert.Equal(t, 500, cfg.LLM.MaxTokens)
	assert.Equal(t, 30, cfg.LLM.TimeoutSeconds)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 0.001)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("TUTOR_LLM_MODEL", "gpt-4o")
	t.Setenv("POSTGRES_HOST", "db.internal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MissingAPIKeyIsFatal(t *testing.T) {
	cfg := &Config{}
	assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
}
