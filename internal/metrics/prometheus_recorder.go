package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tigerroll/weatherpipe/internal/support/logger"
)

// PrometheusRecorder is a Prometheus implementation of the MetricRecorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	phaseDurationSeconds *prometheus.HistogramVec
	phaseStatusCounter   *prometheus.CounterVec
	phaseRowsCounter     *prometheus.CounterVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		phaseDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weatherpipe_phase_duration_seconds",
			Help:    "Duration of pipeline phase executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase", "status"}),
		phaseStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weatherpipe_phase_status_total",
			Help: "Total number of pipeline phase executions by status.",
		}, []string{"phase", "status"}),
		phaseRowsCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weatherpipe_phase_rows_total",
			Help: "Total rows handled by phase and kind.",
		}, []string{"phase", "kind"}),
	}

	registry.MustRegister(r.phaseDurationSeconds)
	registry.MustRegister(r.phaseStatusCounter)
	registry.MustRegister(r.phaseRowsCounter)

	return r
}

// GetRegistry returns the Prometheus registry for exposition.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordPhaseStart records the start of a phase execution.
func (r *PrometheusRecorder) RecordPhaseStart(ctx context.Context, batchID, phase string) {
	r.phaseStatusCounter.WithLabelValues(phase, "STARTED").Inc()
	logger.Debugf("Metrics: phase '%s' started for batch '%s'.", phase, batchID)
}

// RecordPhaseEnd records the end of a phase execution.
func (r *PrometheusRecorder) RecordPhaseEnd(ctx context.Context, batchID, phase, status string, duration time.Duration) {
	r.phaseStatusCounter.WithLabelValues(phase, status).Inc()
	r.phaseDurationSeconds.WithLabelValues(phase, status).Observe(duration.Seconds())
	logger.Debugf("Metrics: phase '%s' ended for batch '%s'. Duration: %.3fs", phase, batchID, duration.Seconds())
}

// RecordRows adds to the per-phase row counter for the given kind.
func (r *PrometheusRecorder) RecordRows(ctx context.Context, phase, kind string, count int64) {
	if count <= 0 {
		return
	}
	r.phaseRowsCounter.WithLabelValues(phase, kind).Add(float64(count))
}

var _ MetricRecorder = (*PrometheusRecorder)(nil)
