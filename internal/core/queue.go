package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EventJobStarted   = "job_started"
	EventJobCompleted = "job_completed"
	EventJobFailed    = "job_failed"
)

const (
	OutcomeCompleted      = "completed"
	OutcomeInvalidPrinter = "invalid_printer"
	OutcomeDeviceError    = "device_error"
	OutcomeRenderError    = "render_error"
	OutcomeError          = "error"
)

type JobEvent struct {
	Type        string
	JobID       string
	PrinterName string
	Outcome     string
	Error       string
	Duration    time.Duration
	Timestamp   time.Time
}

type JobExecutor interface {
	Execute(ctx context.Context, job *PrintJob) error
}

type EventSender interface {
	SendJobEvent(event JobEvent)
}

type PrintCounter interface {
	IncrementPrintCount(ctx context.Context, printerName string, count int) error
}

type QueueMetrics interface {
	JobEnqueued()
	JobFinished(outcome string, duration time.Duration)
	SetQueueState(pending int, draining bool)
}

type QueueOption func(*Queue)

func WithEventSender(s EventSender) QueueOption {
	return func(q *Queue) { q.events = s }
}

func WithPrintCounter(c PrintCounter) QueueOption {
	return func(q *Queue) { q.counter = c }
}

func WithMetrics(m QueueMetrics) QueueOption {
	return func(q *Queue) { q.metrics = m }
}

// WithJobTimeout bounds each job's device session. Zero means no bound.
func WithJobTimeout(d time.Duration) QueueOption {
	return func(q *Queue) { q.jobTimeout = d }
}

// Queue runs print jobs one at a time in submission order. A single worker
// goroutine owns execution; Enqueue only appends and wakes it.
type Queue struct {
	executor   JobExecutor
	logger     zerolog.Logger
	events     EventSender
	counter    PrintCounter
	metrics    QueueMetrics
	jobTimeout time.Duration

	mu       sync.Mutex
	pending  []*PrintJob
	draining bool
	current  string
	running  bool

	wakeCh   chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

func NewQueue(executor JobExecutor, logger zerolog.Logger, opts ...QueueOption) *Queue {
	q := &Queue{
		executor: executor,
		logger:   logger,
		wakeCh:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the drain worker. Calling it more than once is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	go q.worker(ctx)
}

// Stop waits for the in-flight job to return and stops the worker.
// Jobs still pending are dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	running := q.running
	q.mu.Unlock()

	q.stopOnce.Do(func() { close(q.stopCh) })
	if running {
		<-q.doneCh
	}
}

// Enqueue appends a job and returns its id without waiting for execution.
func (q *Queue) Enqueue(printerName, text string, settings *FormatSettings) string {
	job := NewPrintJob(printerName, text, settings)

	q.mu.Lock()
	q.pending = append(q.pending, job)
	pending, draining := len(q.pending), q.draining
	q.mu.Unlock()

	q.logger.Info().
		Str("job_id", job.ID).
		Str("printer", printerName).
		Int("pending", pending).
		Msg("print job enqueued")

	if q.metrics != nil {
		q.metrics.JobEnqueued()
		q.metrics.SetQueueState(pending, draining)
	}

	select {
	case q.wakeCh <- struct{}{}:
	default:
	}

	return job.ID
}

func (q *Queue) Status() QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	status := QueueStatus{
		PendingJobs:  len(q.pending),
		IsProcessing: q.draining,
	}
	if q.current != "" {
		id := q.current
		status.CurrentJobID = &id
	}
	return status
}

func (q *Queue) worker(ctx context.Context) {
	defer close(q.doneCh)

	for {
		select {
		case <-ctx.Done():
			q.idle()
			return
		case <-q.stopCh:
			q.idle()
			return
		case <-q.wakeCh:
			q.drain(ctx)
		}
	}
}

func (q *Queue) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopCh:
			return
		default:
		}

		job := q.next()
		if job == nil {
			return
		}
		q.run(ctx, job)
	}
}

// next pops the oldest job and marks it current, or clears the draining
// state when nothing is left.
func (q *Queue) next() *PrintJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		q.draining = false
		q.current = ""
		q.reportState()
		return nil
	}

	job := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	q.draining = true
	q.current = job.ID
	q.reportState()
	return job
}

func (q *Queue) idle() {
	q.mu.Lock()
	q.draining = false
	q.current = ""
	q.reportState()
	q.mu.Unlock()
}

// reportState must be called with q.mu held.
func (q *Queue) reportState() {
	if q.metrics != nil {
		q.metrics.SetQueueState(len(q.pending), q.draining)
	}
}

func (q *Queue) run(ctx context.Context, job *PrintJob) {
	jobCtx := ctx
	if q.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, q.jobTimeout)
		defer cancel()
	}

	q.emit(JobEvent{Type: EventJobStarted, JobID: job.ID, PrinterName: job.PrinterName})

	start := time.Now()
	err := q.execute(jobCtx, job)
	duration := time.Since(start)
	outcome := Outcome(err)

	if q.metrics != nil {
		q.metrics.JobFinished(outcome, duration)
	}

	if err != nil {
		q.logger.Error().
			Err(err).
			Str("job_id", job.ID).
			Str("printer", job.PrinterName).
			Str("outcome", outcome).
			Msg("print job failed, dropping")
		q.emit(JobEvent{
			Type:        EventJobFailed,
			JobID:       job.ID,
			PrinterName: job.PrinterName,
			Outcome:     outcome,
			Error:       err.Error(),
			Duration:    duration,
		})
		return
	}

	q.emit(JobEvent{
		Type:        EventJobCompleted,
		JobID:       job.ID,
		PrinterName: job.PrinterName,
		Outcome:     outcome,
		Duration:    duration,
	})

	if q.counter != nil {
		if err := q.counter.IncrementPrintCount(ctx, job.PrinterName, 1); err != nil {
			q.logger.Warn().Err(err).Str("printer", job.PrinterName).Msg("failed to update print counter")
		}
	}
}

// execute shields the worker from panics in the executor.
func (q *Queue) execute(ctx context.Context, job *PrintJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while executing job: %v", r)
		}
	}()
	return q.executor.Execute(ctx, job)
}

func (q *Queue) emit(event JobEvent) {
	if q.events == nil {
		return
	}
	event.Timestamp = time.Now()
	q.events.SendJobEvent(event)
}

// Outcome classifies an Execute error for logs, events and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeCompleted
	case errors.Is(err, ErrInvalidPrinter):
		return OutcomeInvalidPrinter
	case errors.Is(err, ErrRenderFailure):
		return OutcomeRenderError
	case errors.Is(err, ErrDeviceSession):
		return OutcomeDeviceError
	default:
		return OutcomeError
	}
}
