package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/printqueue/internal/config"
	"github.com/orrn/printqueue/internal/core"
	"github.com/orrn/printqueue/internal/db"
	"github.com/orrn/printqueue/internal/device"
	"github.com/orrn/printqueue/internal/metrics"
	"github.com/orrn/printqueue/internal/printer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type enqueued struct {
	printer  string
	text     string
	settings *core.FormatSettings
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []enqueued
}

func (q *fakeQueue) Enqueue(printerName, text string, settings *core.FormatSettings) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, enqueued{printerName, text, settings})
	return "job-id"
}

func (q *fakeQueue) Status() core.QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return core.QueueStatus{PendingJobs: len(q.jobs)}
}

type fakeCounters struct{}

func (fakeCounters) GetCounters(_ context.Context, name string, days int) ([]*db.PrintCounter, error) {
	return []*db.PrintCounter{{PrinterName: name, Date: "2024-01-02", Count: int64(days)}}, nil
}

func (fakeCounters) GetTotal(context.Context, string) (int64, error) { return 42, nil }

type testServer struct {
	router *gin.Engine
	queue  *fakeQueue
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	cfg := config.Defaults()
	cfg.Server.RequestLogging = false
	if mutate != nil {
		mutate(cfg)
	}

	dir := t.TempDir()
	printers := printer.NewDirectory([]config.PrinterDevice{
		{Name: "office", Kind: config.PrinterKindFile, Path: dir, DPI: 100, Default: true},
		{Name: "label", Kind: config.PrinterKindFile, Path: filepath.Join(dir, "missing"), DPI: 203},
	}, time.Second, zerolog.Nop())

	q := &fakeQueue{}
	r := NewRouter(*cfg, Dependencies{
		Queue:    q,
		Printers: printers,
		Counters: fakeCounters{},
		Metrics:  metrics.NewRecorder().Handler(),
		Version:  "test",
		Logger:   zerolog.Nop(),
	})
	return &testServer{router: r, queue: q}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(w.Body.Bytes()), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	code, body := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestListPrinters(t *testing.T) {
	s := newTestServer(t, nil)

	code, body := s.do(t, http.MethodGet, "/printers", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, []any{"office", "label"}, body["printers"])

	code, body = s.do(t, http.MethodGet, "/printers/detailed", nil)
	assert.Equal(t, http.StatusOK, code)
	printers := body["printers"].([]any)
	require.Len(t, printers, 2)
	first := printers[0].(map[string]any)
	assert.Equal(t, "office", first["name"])
	assert.Equal(t, true, first["isValid"])
	second := printers[1].(map[string]any)
	assert.Equal(t, "Offline", second["status"])
}

func TestGetPrinterInfo(t *testing.T) {
	s := newTestServer(t, nil)

	code, body := s.do(t, http.MethodGet, "/printers/office/info", nil)
	assert.Equal(t, http.StatusOK, code)
	info := body["printer"].(map[string]any)
	assert.Equal(t, "office", info["name"])
	assert.Equal(t, true, info["isDefault"])

	code, body = s.do(t, http.MethodGet, "/printers/nobody/info", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])
}

func TestGetCounters(t *testing.T) {
	s := newTestServer(t, nil)

	code, body := s.do(t, http.MethodGet, "/printers/office/counters?days=7", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(42), body["total"])
	assert.Equal(t, float64(7), body["days"])
	byDate := body["byDate"].([]any)
	require.Len(t, byDate, 1)
	assert.Equal(t, float64(7), byDate[0].(map[string]any)["count"])

	code, _ = s.do(t, http.MethodGet, "/printers/office/counters?days=0", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/printers/nobody/counters", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSubmitPrintJob(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{"/print", "/print/advanced"} {
		code, body := s.do(t, http.MethodPost, path, map[string]any{
			"printerName": "label",
			"text":        "hello",
			"settings":    map[string]any{"fontSize": 20, "paperSize": "Thermal80mm"},
		})
		assert.Equal(t, http.StatusOK, code, path)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "job-id", body["jobId"])
		assert.Equal(t, "label", body["printerName"])
		assert.NotNil(t, body["queueStatus"])
	}

	require.Len(t, s.queue.jobs, 2)
	job := s.queue.jobs[0]
	assert.Equal(t, "label", job.printer)
	require.NotNil(t, job.settings)
	assert.Equal(t, 20.0, job.settings.FontSize)
	assert.Equal(t, core.PaperThermal80mm, job.settings.PaperSize)
	assert.True(t, job.settings.FitToPage)
}

func TestSubmitPrintJob_Validation(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body any
	}{
		{"blank printer", map[string]any{"printerName": "  ", "text": "x"}},
		{"blank text", map[string]any{"printerName": "office", "text": ""}},
		{"unknown printer", map[string]any{"printerName": "nobody", "text": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(t, http.MethodPost, "/print", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, false, body["success"])
		})
	}

	_, body := s.do(t, http.MethodPost, "/print", map[string]any{"printerName": "nobody", "text": "x"})
	assert.Equal(t, []any{"office", "label"}, body["availablePrinters"])
	assert.Empty(t, s.queue.jobs)
}

func TestQueueStatus(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodPost, "/print", map[string]any{"printerName": "office", "text": "x"})

	code, body := s.do(t, http.MethodGet, "/queue/status", nil)
	assert.Equal(t, http.StatusOK, code)
	status := body["status"].(map[string]any)
	assert.Equal(t, float64(1), status["pendingJobs"])
	assert.Equal(t, false, status["isProcessing"])
	assert.Nil(t, status["currentJobId"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "printqueue_queue_pending")

	s = newTestServer(t, func(c *config.Config) { c.Metrics.Enabled = false })
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Server.RateLimit = 1
		c.Server.RateBurst = 1
	})

	code, _ := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestPrintEndToEnd(t *testing.T) {
	logger := zerolog.Nop()
	spool := t.TempDir()
	printers := printer.NewDirectory([]config.PrinterDevice{
		{Name: "office", Kind: config.PrinterKindFile, Path: spool, DPI: 100},
	}, time.Second, logger)

	executor := core.NewExecutor(printers, device.NewSpooler(printers, time.Second, logger), core.NewRenderer(logger), logger)
	queue := core.NewQueue(executor, logger)
	queue.Start(context.Background())
	defer queue.Stop()

	cfg := config.Defaults()
	cfg.Server.RequestLogging = false
	s := &testServer{router: NewRouter(*cfg, Dependencies{Queue: queue, Printers: printers, Logger: logger})}

	code, body := s.do(t, http.MethodPost, "/print", map[string]any{
		"printerName": "office",
		"text":        "Hello from the print queue",
		"settings":    map[string]any{"alignment": "center", "orientation": "landscape"},
	})
	require.Equal(t, http.StatusOK, code)
	jobID := body["jobId"].(string)

	target := filepath.Join(spool, jobID+".png")
	assert.Eventually(t, func() bool {
		_, err := os.Stat(target)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		st := queue.Status()
		return !st.IsProcessing && st.PendingJobs == 0
	}, 5*time.Second, 10*time.Millisecond)

	code, _ = s.do(t, http.MethodGet, "/printers/office/counters", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
