// Package metrics counts pipeline outcomes and dumps them in the Prometheus
// text exposition format for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tunguska/internal/fileutil"
)

const namespace = "tunguska"

// Recorder holds the pipeline counters on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	accepted      *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	events        *prometheus.CounterVec
	eventDuration prometheus.Histogram
	lastRun       prometheus.Gauge
}

// New registers the pipeline metrics on a fresh registry.
func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}
	r.accepted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "traces_accepted_total",
		Help:      "Traces accepted into a dataset, by channel",
	}, []string{"channel"})
	r.rejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "traces_rejected_total",
		Help:      "Traces rejected by the pipeline, by reason",
	}, []string{"reason"})
	r.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Events processed, by final status",
	}, []string{"status"})
	r.eventDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "event_duration_seconds",
		Help:      "Wall time spent preparing one event",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})
	r.lastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the last finished run",
	})
	r.registry.MustRegister(r.accepted, r.rejected, r.events, r.eventDuration, r.lastRun)
	return r
}

// Registry exposes the underlying gatherer.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Accepted adds n accepted traces for channel.
func (r *Recorder) Accepted(channel string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.accepted.WithLabelValues(channel).Add(float64(n))
}

// Rejected counts one rejected trace.
func (r *Recorder) Rejected(reason string) {
	if r == nil {
		return
	}
	r.rejected.WithLabelValues(reason).Inc()
}

// EventFinished records an event's final status and duration.
func (r *Recorder) EventFinished(status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.events.WithLabelValues(status).Inc()
	r.eventDuration.Observe(elapsed.Seconds())
}

// RunFinished stamps the completion time of a run.
func (r *Recorder) RunFinished(at time.Time) {
	if r == nil {
		return
	}
	r.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := fileutil.EnsureParent(path); err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
