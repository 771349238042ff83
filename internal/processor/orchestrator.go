package processor

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/krspack/scrap-booking-for-Brno/config"
	"github.com/krspack/scrap-booking-for-Brno/internal/catalog"
	"github.com/krspack/scrap-booking-for-Brno/internal/models"
	"github.com/krspack/scrap-booking-for-Brno/internal/obs"
	"github.com/krspack/scrap-booking-for-Brno/internal/queue"
)

// PropertyFetcher runs the network task for a single property.
type PropertyFetcher interface {
	Fetch(ctx context.Context, index int, url string, req models.Request) models.ScrapeOutcome
}

// FailureEntry is one line of the per-run failure log.
type FailureEntry struct {
	PropertyIndex int    `json:"property_index"`
	Order         int    `json:"order"`
	Name          string `json:"name"`
	URL           string `json:"url"`
	Kind          string `json:"kind"`
	Status        int    `json:"status,omitempty"`
	Attempts      int    `json:"attempts"`
	Message       string `json:"message"`
}

// IneligibleEntry records a property that was never scraped because it is too small.
type IneligibleEntry struct {
	PropertyIndex int    `json:"property_index"`
	Order         int    `json:"order"`
	Name          string `json:"name"`
	Capacity      int    `json:"capacity"`
}

// ScrapeReport summarizes one run.
type ScrapeReport struct {
	RunID       string            `json:"run_id"`
	Request     models.Request    `json:"request"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Properties  int               `json:"properties"`
	Launched    int               `json:"launched"`
	Succeeded   int               `json:"succeeded"`
	IgnoredDays int               `json:"ignored_days"`
	Ineligible  []IneligibleEntry `json:"ineligible"`
	Failures    []FailureEntry    `json:"failures"`
}

// FailuresByKind counts failures per kind.
func (r *ScrapeReport) FailuresByKind() map[string]int {
	counts := make(map[string]int)
	for _, f := range r.Failures {
		counts[f.Kind]++
	}
	return counts
}

// Orchestrator fans out one fetch task per eligible property and merges the
// outcomes back into the table.
type Orchestrator struct {
	fetcher PropertyFetcher
	config  *config.Config
	metrics *obs.Metrics
	logger  *logrus.Logger
}

// NewOrchestrator creates a new orchestrator instance
func NewOrchestrator(fetcher PropertyFetcher, config *config.Config, metrics *obs.Metrics, logger *logrus.Logger) *Orchestrator {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Orchestrator{
		fetcher: fetcher,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// Run scrapes every eligible property of the table and merges the results
// into it. Only an invalid request is returned as an error; property
// failures are collected in the report.
func (o *Orchestrator) Run(ctx context.Context, table *catalog.Table) (*ScrapeReport, error) {
	req := table.Request
	if err := req.Validate(); err != nil {
		return nil, err
	}

	report := &ScrapeReport{
		RunID:      uuid.NewString(),
		Request:    req,
		StartedAt:  time.Now(),
		Properties: len(table.Properties),
	}
	log := o.logger.WithField("run_id", report.RunID)

	eligible := make([]*models.Property, 0, len(table.Properties))
	for _, p := range table.Properties {
		if !p.Eligible(req.Adults) {
			log.WithFields(logrus.Fields{
				"property": p.Index,
				"name":     p.Name,
				"capacity": p.Capacity(),
				"adults":   req.Adults,
			}).Warn("Requested adults exceed property capacity, skipping")
			report.Ineligible = append(report.Ineligible, IneligibleEntry{
				PropertyIndex: p.Index,
				Order:         p.Order,
				Name:          p.Name,
				Capacity:      p.Capacity(),
			})
			o.metrics.IncSkipped()
			continue
		}
		eligible = append(eligible, p)
	}

	// the queue consumer is the only writer of the table rows and the failure log
	outcomes := queue.NewOutcomeQueue(len(eligible)+1, o.logger)
	outcomes.Subscribe(func(out models.ScrapeOutcome) error {
		return o.merge(table, report, out)
	})
	outcomes.Start()

	var sem *semaphore.Weighted
	if limit := o.config.Scraping.MaxConcurrency; limit > 0 {
		sem = semaphore.NewWeighted(int64(limit))
	}

	log.WithFields(logrus.Fields{
		"eligible":        len(eligible),
		"ineligible":      len(report.Ineligible),
		"max_concurrency": o.config.Scraping.MaxConcurrency,
		"dates":           table.Dates,
	}).Info("Starting scrape run")

	var wg sync.WaitGroup
	for _, p := range eligible {
		if err := acquire(ctx, sem); err != nil {
			o.push(outcomes, models.ScrapeOutcome{
				PropertyIndex: p.Index,
				URL:           p.URL,
				Failure:       &models.Failure{Kind: models.FailureTimeout, Err: err},
			})
			continue
		}

		report.Launched++
		wg.Add(1)
		go func(index int, url string) {
			defer wg.Done()
			defer release(sem)
			o.push(outcomes, o.fetcher.Fetch(ctx, index, url, req))
		}(p.Index, p.URL)
	}

	wg.Wait()
	outcomes.Close()

	report.FinishedAt = time.Now()
	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].PropertyIndex < report.Failures[j].PropertyIndex
	})
	o.metrics.SetLastRun(float64(report.FinishedAt.Unix()))

	log.WithFields(logrus.Fields{
		"launched":  report.Launched,
		"succeeded": report.Succeeded,
		"failed":    len(report.Failures),
		"by_kind":   report.FailuresByKind(),
		"duration":  report.FinishedAt.Sub(report.StartedAt).String(),
	}).Info("Scrape run completed")

	return report, nil
}

func (o *Orchestrator) push(q *queue.OutcomeQueue, out models.ScrapeOutcome) {
	if err := q.Push(out); err != nil {
		o.logger.WithError(err).WithField("property", out.PropertyIndex).Error("Failed to queue outcome")
	}
}

// merge runs on the queue goroutine only.
func (o *Orchestrator) merge(table *catalog.Table, report *ScrapeReport, out models.ScrapeOutcome) error {
	p, err := table.Property(out.PropertyIndex)
	if err != nil {
		return err
	}

	if out.Failure != nil {
		report.Failures = append(report.Failures, FailureEntry{
			PropertyIndex: p.Index,
			Order:         p.Order,
			Name:          p.Name,
			URL:           p.URL,
			Kind:          out.Failure.Kind.String(),
			Status:        out.Failure.Status,
			Attempts:      out.Attempts,
			Message:       out.Failure.Error(),
		})
		return nil
	}

	_, ignored, err := table.Apply(out)
	if err != nil {
		return err
	}
	report.Succeeded++
	report.IgnoredDays += ignored
	if ignored > 0 {
		o.logger.WithFields(logrus.Fields{
			"property": p.Index,
			"ignored":  ignored,
		}).Warn("Upstream returned dates outside the requested range")
	}
	return nil
}

func acquire(ctx context.Context, sem *semaphore.Weighted) error {
	if err := ctx.Err(); err != nil || sem == nil {
		return err
	}
	return sem.Acquire(ctx, 1)
}

func release(sem *semaphore.Weighted) {
	if sem != nil {
		sem.Release(1)
	}
}
