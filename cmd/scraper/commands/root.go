package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/krspack/scrap-booking-for-Brno/config"
	"github.com/krspack/scrap-booking-for-Brno/internal/database"
	"github.com/krspack/scrap-booking-for-Brno/internal/obs"
)

var rootCmd = &cobra.Command{
	Use:   "scraper",
	Short: "scraper collects prices and availability of Brno accommodation.",
	Long: `scraper reads a catalog of accommodation properties, queries the
availability calendar of every property that can host the requested
number of adults, and writes the merged results as tab separated files.`,
	SilenceUsage: true,
}

var catalogPath *string

func init() {
	catalogPath = rootCmd.PersistentFlags().String("catalog", "", "Path to the property dataset, overrides CATALOG_PATH.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the shared logger, metrics and
// optional results store.
func setup() (*config.Config, *logrus.Logger, *obs.Metrics, *database.Store, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if *catalogPath != "" {
		cfg.Catalog.Path = *catalogPath
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	logger.SetLevel(level)

	metrics := obs.NewMetrics(prometheus.NewRegistry())

	var store *database.Store
	if cfg.Database.Path != "" {
		logger.WithField("path", cfg.Database.Path).Info("Using results store")
		store, err = database.Open(cfg.Database.Path, cfg, logger)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}

	return cfg, logger, metrics, store, nil
}
