// Package main provides the SST anomaly API HTTP server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"go.ngs.io/sst-api/internal/adapter/store/gridcache"
	"go.ngs.io/sst-api/internal/adapter/store/oisst"
	"go.ngs.io/sst-api/internal/config"
	"go.ngs.io/sst-api/internal/domain"
	httpHandler "go.ngs.io/sst-api/internal/http"
	"go.ngs.io/sst-api/internal/observability"
	"go.ngs.io/sst-api/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("sst-api version %s\n", version)
		return
	}

	// Load .env if present; real environment wins.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	logger.Info("starting SST anomaly API server",
		"addr", cfg.HTTPAddr,
		"window", fmt.Sprintf("lat %g-%g, lon %g-%g",
			domain.KoreaEastChinaSea.MinLat, domain.KoreaEastChinaSea.MaxLat,
			domain.KoreaEastChinaSea.MinLon, domain.KoreaEastChinaSea.MaxLon),
		"reference_period", fmt.Sprintf("%d-%d",
			domain.DefaultReferencePeriod.StartYear, domain.DefaultReferencePeriod.EndYear))

	// Assemble the ordered list of dataset access sources.
	region := domain.KoreaEastChinaSea
	var sources []oisst.Source
	if cfg.OISSTBaseURL != "" {
		sources = append(sources, oisst.NewHTTPSource("primary", cfg.OISSTBaseURL, region, cfg.FetchTimeout))
		logger.Info("dataset source configured", "source", "primary", "url", cfg.OISSTBaseURL)
	}
	if cfg.OISSTFallbackURL != "" {
		sources = append(sources, oisst.NewHTTPSource("fallback", cfg.OISSTFallbackURL, region, cfg.FetchTimeout))
		logger.Info("dataset source configured", "source", "fallback", "url", cfg.OISSTFallbackURL)
	}
	if cfg.OISSTDataDir != "" {
		sources = append(sources, oisst.NewDirSource(cfg.OISSTDataDir))
		logger.Info("dataset source configured", "source", "local", "dir", cfg.OISSTDataDir)
	}

	metrics := observability.NewMetrics()
	gridStore := oisst.NewStore(region, logger.With("component", "oisst"), sources...)
	cached := gridcache.New(gridStore, metrics)

	uc := usecase.New(cached, clockwork.NewRealClock(), logger.With("component", "usecase"), metrics, usecase.Options{
		MinYears:    cfg.ClimatologyMinYears,
		Concurrency: cfg.ClimatologyConcurrency,
	})

	router := httpHandler.SetupRouter(uc, metrics, cfg.CORSAllowedOrigins)

	logger.Info("server listening", "addr", cfg.HTTPAddr)
	if err := router.Run(cfg.HTTPAddr); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from config.
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("SST Anomaly API Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  sst-api [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  HTTP_ADDR                 Listen address (default: :8080)")
	fmt.Println("  LOG_LEVEL                 debug|info|warn|error (default: info)")
	fmt.Println("  LOG_FORMAT                text|json (default: text)")
	fmt.Println("  CORS_ALLOWED_ORIGINS      Comma-separated origins (default: all origins)")
	fmt.Println("  OISST_BASE_URL            Primary NetCDF subset endpoint ({year} template)")
	fmt.Println("  OISST_FALLBACK_URL        Secondary endpoint tried on failure")
	fmt.Println("  OISST_DATA_DIR            Directory of per-year files (optional, last resort)")
	fmt.Println("  FETCH_TIMEOUT             Per-request timeout (default: 60s)")
	fmt.Println("  CLIMATOLOGY_MIN_YEARS     Years required to trust the mean (default: 1)")
	fmt.Println("  CLIMATOLOGY_CONCURRENCY   Parallel reference-year fetches (default: 8)")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET /health                    Health check")
	fmt.Println("  GET /metrics                   Prometheus metrics")
	fmt.Println("  GET /v1/sst                    Daily regional SST grid")
	fmt.Println("  GET /v1/sst/climatology        1991-2020 mean for the calendar day")
	fmt.Println("  GET /v1/sst/anomaly            Observed minus climatology")
	fmt.Println("  GET /v1/sst/point              Values sampled at one location")
	fmt.Println("  GET /v1/sst/map                PNG heat map (mode=absolute|anomaly)")
	fmt.Println()
}
