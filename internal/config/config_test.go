package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "data", cfg.Data.Dir)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.Equal(t, 100, cfg.Extraction.MinChars)
	assert.Equal(t, 50, cfg.Extraction.MinCharsPerPage)
	assert.InDelta(t, 0.05, cfg.Extraction.GarbleRatio, 1e-9)
	assert.InDelta(t, 0.10, cfg.Extraction.GarbleRatioOCR, 1e-9)
	assert.Equal(t, "fail", cfg.Extraction.OCRFallbackMode)
	assert.Equal(t, 4, cfg.Extraction.Workers)

	assert.Equal(t, 100, cfg.Analysis.MinTextLength)
	assert.Equal(t, 150000, cfg.Analysis.MaxCallChars)
	assert.Equal(t, 8, cfg.Analysis.MaxChunks)
	assert.Equal(t, 300, cfg.Analysis.TimeoutSecs)

	assert.Equal(t, 3, cfg.Pipeline.MaxRetries)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FILING_PIPELINE_MAX_RETRIES", "7")
	t.Setenv("FILING_STORE_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Pipeline.MaxRetries)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "verbose", Format: "json"})
	assert.Error(t, err)
}
