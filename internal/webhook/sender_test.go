package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/printqueue/internal/config"
	"github.com/orrn/printqueue/internal/core"
)

type delivery struct {
	header http.Header
	body   []byte
}

func newSender(t *testing.T, endpoints ...config.WebhookEndpoint) *Sender {
	t.Helper()
	s := NewSender(config.WebhooksConfig{
		Endpoints:   endpoints,
		RetryCount:  3,
		RetryDelay:  10 * time.Millisecond,
		Timeout:     time.Second,
		WorkerCount: 1,
		QueueSize:   10,
	}, zerolog.Nop())
	s.Start()
	t.Cleanup(s.Stop)
	return s
}

func TestSender_DeliversSignedPayload(t *testing.T) {
	got := make(chan delivery, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- delivery{header: r.Header.Clone(), body: body}
	}))
	defer srv.Close()

	s := newSender(t, config.WebhookEndpoint{URL: srv.URL, Secret: "s3cret"})
	s.SendJobEvent(core.JobEvent{
		Type:        core.EventJobFailed,
		JobID:       "job-1",
		PrinterName: "office",
		Outcome:     core.OutcomeInvalidPrinter,
		Error:       "invalid printer",
		Duration:    1500 * time.Millisecond,
		Timestamp:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})

	select {
	case d := <-got:
		assert.Equal(t, Sign(d.body, "s3cret"), d.header.Get(SignatureHeader))
		assert.Equal(t, core.EventJobFailed, d.header.Get(EventHeader))

		var p Payload
		require.NoError(t, json.Unmarshal(d.body, &p))
		assert.Equal(t, core.EventJobFailed, p.Event)
		assert.Equal(t, "job-1", p.Data.JobID)
		assert.Equal(t, "office", p.Data.PrinterName)
		assert.Equal(t, core.OutcomeInvalidPrinter, p.Data.Status)
		assert.Equal(t, int64(1500), p.Data.DurationMs)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook not delivered")
	}
}

func TestSender_FiltersByEvent(t *testing.T) {
	got := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get(EventHeader)
		assert.Empty(t, r.Header.Get(SignatureHeader))
	}))
	defer srv.Close()

	s := newSender(t, config.WebhookEndpoint{URL: srv.URL, Events: []string{core.EventJobCompleted}})
	s.SendJobEvent(core.JobEvent{Type: core.EventJobStarted, JobID: "a"})
	s.SendJobEvent(core.JobEvent{Type: core.EventJobCompleted, JobID: "a", Outcome: core.OutcomeCompleted})

	select {
	case e := <-got:
		assert.Equal(t, core.EventJobCompleted, e)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook not delivered")
	}
	select {
	case e := <-got:
		t.Fatalf("unexpected delivery %s", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSender_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		close(done)
	}))
	defer srv.Close()

	s := newSender(t, config.WebhookEndpoint{URL: srv.URL})
	s.SendJobEvent(core.JobEvent{Type: core.EventJobStarted, JobID: "a"})

	select {
	case <-done:
		assert.Equal(t, int32(3), calls.Load())
	case <-time.After(2 * time.Second):
		t.Fatal("webhook never succeeded")
	}
}

func TestSender_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := newSender(t, config.WebhookEndpoint{URL: srv.URL})
	s.SendJobEvent(core.JobEvent{Type: core.EventJobStarted, JobID: "a"})

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSender_DropsWhenQueueFull(t *testing.T) {
	s := NewSender(config.WebhooksConfig{
		Endpoints: []config.WebhookEndpoint{{URL: "http://127.0.0.1:1"}},
		QueueSize: 1,
	}, zerolog.Nop())

	s.SendJobEvent(core.JobEvent{Type: core.EventJobStarted})
	s.SendJobEvent(core.JobEvent{Type: core.EventJobStarted})
	assert.Len(t, s.queue, 1)
}
