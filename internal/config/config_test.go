package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Contains(t, cfg.OISSTBaseURL, "{year}")
	assert.Contains(t, cfg.OISSTFallbackURL, "{year}")
	assert.Equal(t, 60*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 1, cfg.ClimatologyMinYears)
	assert.Equal(t, 8, cfg.ClimatologyConcurrency)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("OISST_DATA_DIR", "/data/oisst")
	t.Setenv("CLIMATOLOGY_MIN_YEARS", "10")
	t.Setenv("FETCH_TIMEOUT", "15s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "/data/oisst", cfg.OISSTDataDir)
	assert.Equal(t, 10, cfg.ClimatologyMinYears)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("base URL without year placeholder", func(t *testing.T) {
		t.Setenv("OISST_BASE_URL", "https://example.com/sst.nc")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("zero min years", func(t *testing.T) {
		t.Setenv("CLIMATOLOGY_MIN_YEARS", "0")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("negative timeout", func(t *testing.T) {
		t.Setenv("FETCH_TIMEOUT", "-5s")
		_, err := Load()
		assert.Error(t, err)
	})
}
