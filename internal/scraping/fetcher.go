package scraping

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/krspack/scrap-booking-for-Brno/config"
	"github.com/krspack/scrap-booking-for-Brno/internal/models"
	"github.com/krspack/scrap-booking-for-Brno/internal/obs"
)

var ErrTokensNotFound = errors.New("session tokens not found on page")

const snippetLimit = 512

// Fetcher performs the page fetch and availability query for one property,
// pacing every attempt with a random pause and retrying transport failures.
type Fetcher struct {
	client     *resty.Client
	limiter    *rate.Limiter
	metrics    *obs.Metrics
	logger     *logrus.Logger
	graphqlURL string
	origin     string
	sleepLimit time.Duration
	retryDelay time.Duration
	maxRetries int

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(limit time.Duration) time.Duration
}

// NewFetcher creates a fetcher on top of a shared client.
func NewFetcher(client *resty.Client, cfg *config.Config, metrics *obs.Metrics, logger *logrus.Logger) *Fetcher {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	var limiter *rate.Limiter
	if cfg.Scraping.RateLimit > 0 {
		burst := cfg.Scraping.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Scraping.RateLimit), burst)
	}

	maxRetries := cfg.Scraping.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &Fetcher{
		client:     client,
		limiter:    limiter,
		metrics:    metrics,
		logger:     logger,
		graphqlURL: cfg.Scraping.GraphQLURL,
		origin:     cfg.Scraping.Origin,
		sleepLimit: cfg.Scraping.SleepLimit,
		retryDelay: cfg.Scraping.RetryDelay,
		maxRetries: maxRetries,
		sleep:      sleepContext,
		jitter:     randomJitter,
	}
}

type pageResult struct {
	tokens SessionTokens
	title  string
	days   []models.DateResult
}

// Fetch runs the task for one property. It never returns an error: every
// failure ends up in the outcome.
func (f *Fetcher) Fetch(ctx context.Context, index int, url string, req models.Request) models.ScrapeOutcome {
	outcome := models.ScrapeOutcome{PropertyIndex: index, URL: url}
	log := f.logger.WithFields(logrus.Fields{
		"property": index,
		"url":      url,
	})

	var lastErr error
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if err := f.sleep(ctx, f.jitter(f.sleepLimit)); err != nil {
			return f.finish(log, outcome, &models.Failure{Kind: models.FailureTimeout, Err: err})
		}

		outcome.Attempts = attempt
		f.metrics.IncAttempts()

		result, err := f.attempt(ctx, url, req)
		if err == nil {
			outcome.PageName = result.tokens.PageName
			outcome.PageTitle = result.title
			outcome.Days = result.days
			return f.finish(log, outcome, nil)
		}

		var failure *models.Failure
		if errors.As(err, &failure) {
			return f.finish(log, outcome, failure)
		}

		lastErr = err
		log.WithError(err).WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": f.maxRetries,
		}).Warn("Attempt failed")

		if attempt < f.maxRetries {
			if err := f.sleep(ctx, f.retryDelay); err != nil {
				return f.finish(log, outcome, &models.Failure{Kind: models.FailureTimeout, Err: err})
			}
		}
	}

	return f.finish(log, outcome, &models.Failure{Kind: models.FailureExhausted, Err: lastErr})
}

// attempt returns a *models.Failure for terminal conditions and a plain
// error for transport failures that may be retried.
func (f *Fetcher) attempt(ctx context.Context, url string, req models.Request) (*pageResult, error) {
	// in-flight exchanges are bounded by the request timeout, not by the run
	netCtx := context.WithoutCancel(ctx)

	if err := f.wait(ctx); err != nil {
		return nil, &models.Failure{Kind: models.FailureTimeout, Err: err}
	}
	start := time.Now()
	page, err := f.client.R().
		SetContext(netCtx).
		Get(url)
	f.metrics.ObserveRequest("page", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if page.IsError() {
		return nil, &models.Failure{Kind: models.FailureHTTPError, Status: page.StatusCode()}
	}

	html := page.String()
	tokens, ok := ExtractTokens(html)
	if !ok {
		return nil, &models.Failure{Kind: models.FailureNotFound, Err: ErrTokensNotFound}
	}

	if err := f.wait(ctx); err != nil {
		return nil, &models.Failure{Kind: models.FailureTimeout, Err: err}
	}
	start = time.Now()
	res, err := f.client.R().
		SetContext(netCtx).
		SetHeader("content-type", "application/json").
		SetHeader("x-booking-csrf-token", tokens.CSRFToken).
		SetHeader("origin", f.origin).
		SetBody(BuildAvailabilityQuery(tokens, req)).
		Post(f.graphqlURL)
	f.metrics.ObserveRequest("query", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, &models.Failure{Kind: models.FailureHTTPError, Status: res.StatusCode()}
	}

	days, err := ParseAvailability(res.Body())
	if err != nil {
		f.logger.WithFields(logrus.Fields{
			"url":  url,
			"body": snippet(res.Body()),
		}).Error("Unexpected availability response")
		return nil, &models.Failure{Kind: models.FailureBadResponse, Err: err}
	}

	return &pageResult{
		tokens: tokens,
		title:  PageTitle(html),
		days:   days,
	}, nil
}

func (f *Fetcher) finish(log *logrus.Entry, outcome models.ScrapeOutcome, failure *models.Failure) models.ScrapeOutcome {
	outcome.Failure = failure
	if failure == nil {
		f.metrics.IncOutcome("success")
		log.WithFields(logrus.Fields{
			"attempts": outcome.Attempts,
			"days":     len(outcome.Days),
		}).Info("Property scraped")
		return outcome
	}

	f.metrics.IncOutcome(failure.Kind.String())
	entry := log.WithFields(logrus.Fields{
		"attempts": outcome.Attempts,
		"kind":     failure.Kind.String(),
	})
	if failure.Kind == models.FailureHTTPError {
		entry = entry.WithField("status", failure.Status)
	}
	entry.WithError(failure).Error("Property scrape failed")
	return outcome
}

func (f *Fetcher) wait(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	return f.limiter.Wait(ctx)
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

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return rand.N(limit)
}

func snippet(body []byte) string {
	if len(body) > snippetLimit {
		return string(body[:snippetLimit])
	}
	return string(body)
}
