package queue

import (
	"errors"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/krspack/scrap-booking-for-Brno/internal/models"
)

var (
	ErrQueueClosed = errors.New("queue is closed")
	ErrNotStarted  = errors.New("queue is not started")
)

// OutcomeQueue collects property outcomes from concurrent tasks and hands
// them, one at a time, to its subscribers on a single goroutine.
type OutcomeQueue struct {
	items    chan models.ScrapeOutcome
	done     chan struct{}
	maxSize  int
	closed   bool
	started  bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func(models.ScrapeOutcome) error
}

// NewOutcomeQueue creates a new outcome queue with the specified buffer size
func NewOutcomeQueue(bufferSize int, logger *logrus.Logger) *OutcomeQueue {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &OutcomeQueue{
		items:    make(chan models.ScrapeOutcome, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func(models.ScrapeOutcome) error, 0),
	}
}

// Push adds an outcome to the queue, blocking while the buffer is full.
func (q *OutcomeQueue) Push(outcome models.ScrapeOutcome) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	if !q.started {
		return ErrNotStarted
	}

	q.items <- outcome
	q.logger.WithField("property", outcome.PropertyIndex).Debug("Pushed outcome to queue")
	return nil
}

// Subscribe adds a handler function that will be called for each outcome.
// Handlers must be registered before Start.
func (q *OutcomeQueue) Subscribe(handler func(models.ScrapeOutcome) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing items in the queue
func (q *OutcomeQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true
	handlers := append([]func(models.ScrapeOutcome) error(nil), q.handlers...)
	go q.process(handlers)
}

// process drains the queue until it is closed
func (q *OutcomeQueue) process(handlers []func(models.ScrapeOutcome) error) {
	defer close(q.done)
	for outcome := range q.items {
		for _, handler := range handlers {
			if err := handler(outcome); err != nil {
				q.logger.WithError(err).WithField("property", outcome.PropertyIndex).Error("Handler failed to process outcome")
			}
		}
	}
}

// Close stops accepting outcomes and waits until every queued outcome has
// been handled.
func (q *OutcomeQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return nil
	}
	q.closed = true
	close(q.items)
	started := q.started
	q.mu.Unlock()

	if !started {
		close(q.done)
		return nil
	}
	<-q.done
	return nil
}

// Len returns the current number of outcomes waiting in the queue
func (q *OutcomeQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *OutcomeQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
