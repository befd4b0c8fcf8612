package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kurihiro0119/github-sbom-licenses/internal/aggregator"
	"github.com/kurihiro0119/github-sbom-licenses/internal/api"
	"github.com/kurihiro0119/github-sbom-licenses/internal/config"
	"github.com/kurihiro0119/github-sbom-licenses/internal/storage"
	"github.com/kurihiro0119/github-sbom-licenses/internal/storage/csvfile"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("Invalid LOG_LEVEL")
	}
	zerolog.SetGlobalLevel(level)
	if level > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// Reports are read from disk on every request, so a finished export is served immediately
	agg := aggregator.NewAggregator(func(org string) storage.Storage {
		return csvfile.NewCSVStorage(cfg.ReportPath(org))
	})

	handler := api.NewHandler(agg)
	router := api.SetupRoutes(handler)

	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Info().Str("addr", addr).Str("report_dir", cfg.ReportDir).Msg("Starting API server")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("Failed to start server")
		os.Exit(1)
	}
}
