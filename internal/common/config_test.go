package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost:5432/menus")
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, 3*time.Second, cfg.Database.DialTimeout)
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "gpt-4o", cfg.LLM.VisionModel)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.TextModel)
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 2, cfg.Pipeline.OCRAttempts)
	assert.Equal(t, 2, cfg.Pipeline.StructuringAttempts)
	assert.Equal(t, 4, cfg.Worker.Workers)
	assert.Equal(t, 5*time.Second, cfg.Worker.PollInterval)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost:5432/menus")
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("PIPELINE_OCR_ATTEMPTS", "3")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("LLM_TIMEOUT", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Pipeline.OCRAttempts)
	assert.Equal(t, 8, cfg.Worker.Workers)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
}

func TestValidateRequiresDSNAndKey(t *testing.T) {
	cfg := &Config{}
	cfg.LLM.APIKey = "k"
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "DB_URL")

	cfg = &Config{}
	cfg.Database.DSN = "postgres://localhost/menus"
	err = cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}
