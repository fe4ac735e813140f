package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs       *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	rows       *prometheus.CounterVec
	invariants prometheus.Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker with one of the outcome labels and returns err
// untouched.
func (t *Tracker) End(outcome string, err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	if outcome == "" {
		outcome = "success"
		if err != nil {
			outcome = "failure"
		}
	}
	if err != nil {
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, outcome).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// AddRows counts rows emitted for a report format.
func (m *Metrics) AddRows(format string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.rows.WithLabelValues(format).Add(float64(count))
}

// InvariantViolated records a grand-total identity drift.
func (m *Metrics) InvariantViolated() {
	if m == nil {
		return
	}
	m.invariants.Inc()
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "glengine_jobs_total",
		Help: "Total job executions partitioned by job name and outcome.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "glengine_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "glengine_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 900},
	}, []string{"job"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "glengine_trial_balance_rows_total",
		Help: "Trial balance rows rendered, by output format.",
	}, []string{"format"})
	invariants := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "glengine_trial_balance_invariant_warnings_total",
		Help: "Reports whose grand totals broke beginning + debit - credit = ending.",
	})
	registerer.MustRegister(runs, failures, duration, rows, invariants)
	return &Metrics{runs: runs, failures: failures, duration: duration, rows: rows, invariants: invariants}
}
