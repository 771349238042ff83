package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/krspack/scrap-booking-for-Brno/config"
	"github.com/krspack/scrap-booking-for-Brno/internal/api"
	"github.com/krspack/scrap-booking-for-Brno/internal/catalog"
	"github.com/krspack/scrap-booking-for-Brno/internal/database"
	"github.com/krspack/scrap-booking-for-Brno/internal/export"
	"github.com/krspack/scrap-booking-for-Brno/internal/geocoding"
	"github.com/krspack/scrap-booking-for-Brno/internal/geometry"
	"github.com/krspack/scrap-booking-for-Brno/internal/models"
	"github.com/krspack/scrap-booking-for-Brno/internal/obs"
	"github.com/krspack/scrap-booking-for-Brno/internal/processor"
	"github.com/krspack/scrap-booking-for-Brno/internal/scraping"
)

const geocoderUserAgent = "scrap-booking-for-Brno/1.0"

// Runner executes one complete scrape: load the catalog, scrape every
// eligible property, export the artifacts, persist and publish the result.
type Runner struct {
	config       *config.Config
	logger       *logrus.Logger
	loader       *catalog.Loader
	orchestrator *processor.Orchestrator
	exporter     *export.Exporter
	store        *database.Store
	snapshots    *api.Snapshots
}

// NewRunner wires the pipeline. store and snapshots are optional.
func NewRunner(cfg *config.Config, metrics *obs.Metrics, store *database.Store, snapshots *api.Snapshots, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	var geocoder catalog.Geocoder
	if cfg.Catalog.GeocodeMissing {
		client := resty.New().
			SetTimeout(cfg.Scraping.RequestTimeout).
			SetHeader("User-Agent", geocoderUserAgent)
		geocoder = geocoding.NewGeocoder(client, cfg.Catalog.GeocoderURL, cfg.Catalog.GeocodeCache, logger)
	}

	fetcher := scraping.NewFetcher(scraping.NewClient(cfg), cfg, metrics, logger)

	return &Runner{
		config:       cfg,
		logger:       logger,
		loader:       catalog.NewLoader(logger, geocoder),
		orchestrator: processor.NewOrchestrator(fetcher, cfg, metrics, logger),
		exporter:     export.NewExporter(cfg, logger),
		store:        store,
		snapshots:    snapshots,
	}
}

// Request is the stay configured for every run.
func (r *Runner) Request() models.Request {
	return models.Request{
		ArrivalDate: r.config.Request.ArrivalDate,
		Nights:      r.config.Request.Nights,
		Adults:      r.config.Request.Adults,
		Rooms:       r.config.Request.Rooms,
	}
}

// Run performs one scrape. Per-property failures are reported, not returned.
func (r *Runner) Run(ctx context.Context) (*processor.ScrapeReport, error) {
	req := r.Request()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if timeout := r.config.Scraping.RunTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	properties, skipped, err := r.loader.LoadFile(ctx, r.config.Catalog.Path)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		r.logger.WithField("skipped", len(skipped)).Warn("Some catalog records were skipped")
	}

	table := catalog.NewTable(properties, req)
	report, err := r.orchestrator.Run(ctx, table)
	if err != nil {
		return nil, err
	}

	if err := r.exporter.Export(table); err != nil {
		return report, fmt.Errorf("failed to export results: %w", err)
	}

	// a cancelled run still persists what it collected
	persistCtx := context.WithoutCancel(ctx)
	if r.store != nil {
		if err := r.store.SaveRun(persistCtx, table, report); err != nil {
			return report, err
		}
	}

	if r.snapshots != nil {
		r.snapshots.Publish(&api.Snapshot{
			Table:       table,
			Report:      report,
			Features:    geometry.PropertyFeatures(table),
			CompletedAt: time.Now(),
		})
	}

	return report, nil
}
