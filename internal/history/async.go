package history

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Async hands records to a background worker so callers never wait on a
// store. Records are delivered in submission order; when the queue is full
// new records are dropped and logged.
type Async struct {
	next    Recorder
	timeout time.Duration
	log     logrus.FieldLogger

	queue chan func(context.Context) error

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewAsync starts a worker in front of next. Each store call is bounded by
// timeout.
func NewAsync(next Recorder, queueSize int, timeout time.Duration, logger logrus.FieldLogger) *Async {
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	a := &Async{
		next:    next,
		timeout: timeout,
		log:     logger,
		queue:   make(chan func(context.Context) error, queueSize),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for job := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := job(ctx); err != nil {
			a.log.WithError(err).Error("Failed recording session history")
		}
		cancel()
	}
}

func (a *Async) enqueue(kind string, job func(context.Context) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	select {
	case a.queue <- job:
	default:
		a.log.WithField("kind", kind).Warn("History queue full, dropping record")
	}
	return nil
}

// RecordAction queues rec. It never blocks and never fails.
func (a *Async) RecordAction(_ context.Context, rec ActionRecord) error {
	return a.enqueue("action", func(ctx context.Context) error {
		return a.next.RecordAction(ctx, rec)
	})
}

// RecordOutcome queues res. It never blocks and never fails.
func (a *Async) RecordOutcome(_ context.Context, res Result) error {
	return a.enqueue("outcome", func(ctx context.Context) error {
		return a.next.RecordOutcome(ctx, res)
	})
}

// Close drains the queue, then closes the wrapped recorder.
func (a *Async) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
	return a.next.Close()
}
