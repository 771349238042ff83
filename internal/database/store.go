package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/krspack/scrap-booking-for-Brno/config"
	"github.com/krspack/scrap-booking-for-Brno/internal/catalog"
	"github.com/krspack/scrap-booking-for-Brno/internal/processor"
)

const insertBatchSize = 200

var ErrNoRuns = errors.New("no stored runs")

// Store persists finished runs.
type Store struct {
	db         *gorm.DB
	logger     *logrus.Logger
	maxRetries int
	retryDelay time.Duration
}

// Open opens (or creates) the sqlite database at path and migrates the schema.
func Open(path string, cfg *config.Config, logger *logrus.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	return NewStore(db, cfg, logger)
}

// NewStore wraps an open connection and migrates the schema.
func NewStore(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	if err := db.AutoMigrate(&ScrapeRun{}, &PropertyRecord{}, &DateResultRecord{}, &FailureRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	maxRetries := cfg.Database.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Store{
		db:         db,
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: cfg.Database.RetryDelay,
	}, nil
}

// SaveRun writes a run, its rows, its answered dates and its failures in a
// single transaction, retrying the whole transaction on failure.
func (s *Store) SaveRun(ctx context.Context, table *catalog.Table, report *processor.ScrapeReport) error {
	run := buildRun(table, report)
	log := s.logger.WithField("run_id", run.ID)

	var err error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if attempt > 1 {
			log.WithFields(logrus.Fields{
				"attempt":      attempt,
				"max_attempts": s.maxRetries,
			}).Info("Retrying run persistence")
			if err := sleepContext(ctx, s.retryDelay); err != nil {
				return fmt.Errorf("failed to save run %s: %w", run.ID, err)
			}
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return insertRun(tx, run)
		})
		if err == nil {
			log.WithFields(logrus.Fields{
				"properties": len(run.PropertyRecords),
				"results":    len(run.DateResults),
				"failures":   len(run.Failures),
			}).Info("Saved run")
			return nil
		}

		log.WithError(err).Error("Run persistence failed")
	}

	return fmt.Errorf("failed to save run after %d attempts: %w", s.maxRetries, err)
}

func insertRun(tx *gorm.DB, run *ScrapeRun) error {
	header := *run
	header.PropertyRecords, header.DateResults, header.Failures = nil, nil, nil
	if err := tx.Create(&header).Error; err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	if len(run.PropertyRecords) > 0 {
		if err := tx.CreateInBatches(run.PropertyRecords, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert properties: %w", err)
		}
	}
	if len(run.DateResults) > 0 {
		if err := tx.CreateInBatches(run.DateResults, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert date results: %w", err)
		}
	}
	if len(run.Failures) > 0 {
		if err := tx.CreateInBatches(run.Failures, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert failures: %w", err)
		}
	}
	return nil
}

func buildRun(table *catalog.Table, report *processor.ScrapeReport) *ScrapeRun {
	run := &ScrapeRun{
		ID:          report.RunID,
		ArrivalDate: report.Request.ArrivalDate,
		Nights:      report.Request.Nights,
		Adults:      report.Request.Adults,
		Rooms:       report.Request.Rooms,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
		Properties:  report.Properties,
		Launched:    report.Launched,
		Succeeded:   report.Succeeded,
		Ineligible:  len(report.Ineligible),
		Failed:      len(report.Failures),
	}

	for _, p := range table.Properties {
		run.PropertyRecords = append(run.PropertyRecords, PropertyRecord{
			RunID:         run.ID,
			PropertyIndex: p.Index,
			CatalogOrder:  p.Order,
			URL:           p.URL,
			Name:          p.Name,
			Type:          p.Type,
			Latitude:      p.Latitude,
			Longitude:     p.Longitude,
			Street:        p.Street,
			FullAddress:   p.FullAddress,
			Capacity:      p.Capacity(),
			PageName:      p.PageName,
			PageTitle:     p.PageTitle,
		})

		for _, d := range table.Dates {
			r, ok := table.Result(p, d)
			if !ok {
				continue
			}
			record := DateResultRecord{
				RunID:         run.ID,
				PropertyIndex: p.Index,
				Date:          d,
				Available:     r.IsAvailable(),
			}
			if price, ok := r.Price(); ok {
				record.Price = &price
			}
			if stay, ok := r.MinStay(); ok {
				record.MinStay = &stay
			}
			run.DateResults = append(run.DateResults, record)
		}
	}

	for _, f := range report.Failures {
		run.Failures = append(run.Failures, FailureRecord{
			RunID:         run.ID,
			PropertyIndex: f.PropertyIndex,
			URL:           f.URL,
			Kind:          f.Kind,
			Status:        f.Status,
			Attempts:      f.Attempts,
			Message:       f.Message,
		})
	}
	return run
}

// LatestRun returns the most recently finished run with its failures.
func (s *Store) LatestRun(ctx context.Context) (*ScrapeRun, error) {
	var run ScrapeRun
	err := s.db.WithContext(ctx).
		Preload("Failures").
		Order("finished_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}
	return &run, nil
}

// DateResults returns the answered dates of a run ordered by property and date.
func (s *Store) DateResults(ctx context.Context, runID string) ([]DateResultRecord, error) {
	var records []DateResultRecord
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("property_index, date").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query date results: %w", err)
	}
	return records, nil
}

// PriceHistory returns every stored answer for one property URL and date
// across runs, oldest first.
func (s *Store) PriceHistory(ctx context.Context, url, date string) ([]DateResultRecord, error) {
	var records []DateResultRecord
	err := s.db.WithContext(ctx).
		Joins("JOIN property_records ON property_records.run_id = date_result_records.run_id AND property_records.property_index = date_result_records.property_index").
		Joins("JOIN scrape_runs ON scrape_runs.id = date_result_records.run_id").
		Where("property_records.url = ? AND date_result_records.date = ?", url, date).
		Order("scrape_runs.finished_at").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	return records, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
