package scheduler

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is one scrape run.
type Job func(ctx context.Context) error

// Scheduler runs a job at startup and then on a fixed interval. Runs never
// overlap: ticks that arrive while a run is in progress are dropped.
type Scheduler struct {
	job      Job
	interval time.Duration
	logger   *logrus.Logger
	stopChan chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	once     sync.Once
}

// NewScheduler creates a new scheduler
func NewScheduler(job Job, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		job:      job,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the scheduled runs. Cancelling ctx or calling Stop ends them.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.runScheduler(ctx)
}

func (s *Scheduler) runScheduler(ctx context.Context) {
	defer s.wg.Done()

	s.logger.Info("Running startup scrape")
	s.execute(ctx, "startup")

	if s.interval <= 0 {
		s.logger.Info("No scrape interval configured, scheduler idle")
		select {
		case <-s.stopChan:
		case <-ctx.Done():
		}
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			s.logger.WithField("tick", t.Format(time.RFC3339)).Debug("Scheduled scrape due")
			s.execute(ctx, "scheduled")
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	log := s.logger.WithField("trigger", trigger)
	if err := s.job(ctx); err != nil {
		log.WithError(err).Error("Scrape job failed")
		return
	}
	log.WithField("duration", time.Since(start).String()).Info("Scrape job completed")
}

// Stop cancels a run in progress and waits for the scheduler to exit.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.stopChan)
		if s.cancel != nil {
			s.cancel()
		}
	})
	s.wg.Wait()
}
