// Package worker provides an asynchronous worker pool for persisting sheet
// records through a registry.Driver.
//
// The pool decouples storage writes from the message-handling hot path: a
// reply is reconciled and visible immediately while its snapshot lands in the
// background.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/tabulahq/tabula/pkg/registry"
	"github.com/tabulahq/tabula/pkg/sheet"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Conversation string
	Records      []sheet.Record
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for persisting records.
	Driver registry.Driver

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided slog logger.
	Logger *slog.Logger
}

// Pool processes storage jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool creates a new pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full and the job dropped.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"conversation", job.Conversation,
			"records", len(job.Records),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"conversation", job.Conversation,
			"records", len(job.Records),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the queue.
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("storage worker stopped", "worker_id", id)
}

// processJob persists every record in the job, logging and continuing past
// individual failures so one bad record cannot block the rest.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	for _, rec := range job.Records {
		if err := p.config.Driver.PutSheet(ctx, job.Conversation, rec); err != nil {
			p.logger.Error("async sheet persistence failed",
				"conversation", job.Conversation,
				"uid", rec.UID,
				"error", err,
			)
			continue
		}
		p.logger.Debug("sheet record stored",
			"conversation", job.Conversation,
			"uid", rec.UID,
		)
	}
}
