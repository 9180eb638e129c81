// Package metrics exposes queue and job metrics for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "printqueue"

// Recorder collects queue metrics on a private registry.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Recorder struct {
	registry *prometheus.Registry

	jobsEnqueued prometheus.Counter
	jobsFinished *prometheus.CounterVec
	pending      prometheus.Gauge
	draining     prometheus.Gauge
	jobDuration  *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		jobsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_enqueued_total",
			Help:      "Total number of print jobs accepted into the queue.",
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Total number of print jobs processed, by outcome.",
		}, []string{"outcome"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_pending",
			Help:      "Number of jobs waiting in the queue.",
		}),
		draining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_draining",
			Help:      "1 while the worker is draining the queue.",
		}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time spent executing a print job.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}

	r.registry.MustRegister(r.jobsEnqueued, r.jobsFinished, r.pending, r.draining, r.jobDuration)
	return r
}

func (r *Recorder) JobEnqueued() {
	r.jobsEnqueued.Inc()
}

func (r *Recorder) JobFinished(outcome string, duration time.Duration) {
	r.jobsFinished.WithLabelValues(outcome).Inc()
	r.jobDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (r *Recorder) SetQueueState(pending int, draining bool) {
	r.pending.Set(float64(pending))
	if draining {
		r.draining.Set(1)
	} else {
		r.draining.Set(0)
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
