// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all service settings, populated from environment
// variables.
type Config struct {
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// CORSAllowedOrigins is a comma-separated origin list; empty allows
	// all origins.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// OISSTBaseURL is the primary NetCDF subset endpoint template; the
	// {year} placeholder resolves to the per-year dataset file.
	OISSTBaseURL string `env:"OISST_BASE_URL" envDefault:"https://psl.noaa.gov/thredds/ncss/grid/Datasets/noaa.oisst.v2.highres/sst.day.mean.{year}.nc"`
	// OISSTFallbackURL is the secondary endpoint tried when the primary
	// fails; empty disables the fallback.
	OISSTFallbackURL string `env:"OISST_FALLBACK_URL" envDefault:"https://www.psl.noaa.gov/thredds/ncss/grid/Datasets/noaa.oisst.v2.highres/sst.day.mean.{year}.nc"`
	// OISSTDataDir optionally points at a directory of pre-downloaded
	// per-year files, used as a last-resort source.
	OISSTDataDir string `env:"OISST_DATA_DIR"`

	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"60s"`

	ClimatologyMinYears    int `env:"CLIMATOLOGY_MIN_YEARS" envDefault:"1"`
	ClimatologyConcurrency int `env:"CLIMATOLOGY_CONCURRENCY" envDefault:"8"`
}

// Load reads configuration from the environment, applying defaults where
// unset.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	if cfg.OISSTBaseURL == "" && cfg.OISSTDataDir == "" {
		return nil, errors.New("OISST_BASE_URL or OISST_DATA_DIR is required")
	}
	if cfg.OISSTBaseURL != "" && !strings.Contains(cfg.OISSTBaseURL, "{year}") {
		return nil, errors.New("OISST_BASE_URL must contain a {year} placeholder")
	}
	if cfg.OISSTFallbackURL != "" && !strings.Contains(cfg.OISSTFallbackURL, "{year}") {
		return nil, errors.New("OISST_FALLBACK_URL must contain a {year} placeholder")
	}
	if cfg.FetchTimeout <= 0 {
		return nil, errors.New("FETCH_TIMEOUT must be positive")
	}
	if cfg.ClimatologyMinYears < 1 {
		return nil, errors.New("CLIMATOLOGY_MIN_YEARS must be at least 1")
	}
	if cfg.ClimatologyConcurrency < 1 {
		return nil, errors.New("CLIMATOLOGY_CONCURRENCY must be at least 1")
	}

	return &cfg, nil
}
