// Package app wires configuration, storage, providers and services into
// a runnable application core.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/tickwatch/internal/common"
	"github.com/bobmcallan/tickwatch/internal/providers"
	"github.com/bobmcallan/tickwatch/internal/services/market"
	"github.com/bobmcallan/tickwatch/internal/storage"
)

// App holds all initialized services and shared state. It is the core
// used by cmd/tickwatch-server.
type App struct {
	Config        *common.Config
	Logger        *common.Logger
	Storage       storage.Store
	Registry      *providers.Registry
	MarketService *market.Service
	StartupTime   time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, storage, providers and services.
// configPath may be empty, in which case the default resolution logic is
// used.
func NewApp(configPath string) (*App, error) {
	binDir := getBinaryDir()

	// Config resolution: explicit path, TICKWATCH_CONFIG, binary dir,
	// then the development fallback.
	if configPath == "" {
		configPath = os.Getenv("TICKWATCH_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "tickwatch.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/tickwatch.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage path to the binary directory
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	store, err := storage.NewStore(&config.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	registry := providers.NewRegistry(&config.Providers, logger)
	collector := market.NewCollector(registry, logger)
	marketService := market.NewService(config, store, collector, logger)

	if config.Providers.AlphaVantage.APIKey == "" {
		logger.Warn().Msg("Alpha Vantage API key not configured - that source will be skipped")
	}

	return &App{
		Config:        config,
		Logger:        logger,
		Storage:       store,
		Registry:      registry,
		MarketService: marketService,
		StartupTime:   time.Now(),
	}, nil
}

// Close releases application resources.
func (a *App) Close() {
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}
}
