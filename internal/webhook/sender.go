// Package webhook notifies external endpoints about print job progress.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/orrn/printqueue/internal/config"
	"github.com/orrn/printqueue/internal/core"
)

const (
	SignatureHeader = "X-Webhook-Signature"
	EventHeader     = "X-Webhook-Event"
)

var errShutdown = errors.New("shutdown requested")

type Payload struct {
	Event     string       `json:"event"`
	Timestamp time.Time    `json:"timestamp"`
	Data      JobEventData `json:"data"`
}

type JobEventData struct {
	JobID       string `json:"jobId"`
	PrinterName string `json:"printerName"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	DurationMs  int64  `json:"durationMs,omitempty"`
}

type statusError struct {
	code int
}

func (e *statusError) Error() string { return fmt.Sprintf("http error: %d", e.code) }

func (e *statusError) clientError() bool { return e.code >= 400 && e.code < 500 }

type task struct {
	endpoint config.WebhookEndpoint
	body     []byte
	event    string
}

// Sender delivers job events to the configured endpoints from a fixed pool
// of workers. Events are dropped when the buffer is full; delivery never
// blocks the caller.
type Sender struct {
	endpoints  []config.WebhookEndpoint
	httpClient *http.Client
	retryCount int
	retryDelay time.Duration
	workers    int
	queue      chan *task
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	logger     zerolog.Logger
}

func NewSender(cfg config.WebhooksConfig, logger zerolog.Logger) *Sender {
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}

	return &Sender{
		endpoints: cfg.Endpoints,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retryCount: cfg.RetryCount,
		retryDelay: cfg.RetryDelay,
		workers:    cfg.WorkerCount,
		queue:      make(chan *task, cfg.QueueSize),
		stopCh:     make(chan struct{}),
		logger:     logger,
	}
}

func (s *Sender) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// Stop abandons undelivered events and waits for in-flight requests.
func (s *Sender) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// SendJobEvent queues event for every endpoint subscribed to its type.
func (s *Sender) SendJobEvent(event core.JobEvent) {
	status := event.Outcome
	if status == "" {
		status = "started"
	}
	payload := Payload{
		Event:     event.Type,
		Timestamp: event.Timestamp,
		Data: JobEventData{
			JobID:       event.JobID,
			PrinterName: event.PrinterName,
			Status:      status,
			Error:       event.Error,
			DurationMs:  event.Duration.Milliseconds(),
		},
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event", event.Type).Msg("failed to marshal webhook payload")
		return
	}

	for _, ep := range s.endpoints {
		if !subscribed(ep, event.Type) {
			continue
		}
		select {
		case s.queue <- &task{endpoint: ep, body: body, event: event.Type}:
		default:
			s.logger.Warn().Str("url", ep.URL).Str("event", event.Type).Msg("webhook queue full, dropping event")
		}
	}
}

func subscribed(ep config.WebhookEndpoint, event string) bool {
	if len(ep.Events) == 0 {
		return true
	}
	for _, e := range ep.Events {
		if e == event {
			return true
		}
	}
	return false
}

func (s *Sender) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case t := <-s.queue:
			if err := s.sendWithRetry(t); err != nil {
				s.logger.Error().Err(err).
					Int("worker", id).
					Str("url", t.endpoint.URL).
					Str("event", t.event).
					Msg("webhook delivery failed")
			}
		}
	}
}

func (s *Sender) sendWithRetry(t *task) error {
	var lastErr error
	for attempt := 1; attempt <= s.retryCount; attempt++ {
		err := s.sendRequest(t)
		if err == nil {
			return nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && se.clientError() {
			return err
		}

		if attempt < s.retryCount {
			delay := s.retryDelay * time.Duration(attempt)
			s.logger.Debug().Err(err).
				Int("attempt", attempt).
				Dur("delay", delay).
				Str("url", t.endpoint.URL).
				Msg("retrying webhook")

			select {
			case <-s.stopCh:
				return errShutdown
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (s *Sender) sendRequest(t *task) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint.URL, bytes.NewReader(t.body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, t.event)
	if t.endpoint.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(t.body, t.endpoint.Secret))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body keyed by secret.
func Sign(body []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
