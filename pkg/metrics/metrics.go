// Package metrics defines the Prometheus collectors of the scoring service.
//
//	timer := metrics.NewTimer()
//	preds, err := chain.Predict(batch)
//	metrics.PredictionDuration.WithLabelValues(metrics.Status(err)).Observe(timer.Stop().Seconds())
//
// Collectors are registered with the default registry at package init, so
// promhttp.Handler() exposes them without further wiring.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vehicleinsurance"

// Status label values.
const (
	StatusSuccess = "success"
	StatusInvalid = "invalid"
	StatusError   = "error"
)

var (
	// PredictionRequests counts prediction calls by outcome.
	PredictionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_requests_total",
			Help:      "Prediction calls by status (success, invalid, error)",
		},
		[]string{"status"},
	)

	// PredictionRecords counts records scored.
	PredictionRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_records_total",
			Help:      "Records that received a prediction",
		},
	)

	// PredictionDuration observes end-to-end prediction latency.
	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Prediction latency including validation",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"status"},
	)

	// ValidationErrors counts field errors by field.
	ValidationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_errors_total",
			Help:      "Input field errors by field name",
		},
		[]string{"field"},
	)

	// TrainingRuns counts training runs by outcome.
	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_runs_total",
			Help:      "Training runs by status",
		},
		[]string{"status"},
	)

	// ModelScore holds the last evaluation scores by metric name.
	ModelScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_score",
			Help:      "Holdout score of the last trained chain",
		},
		[]string{"metric"},
	)

	// ArtifactOperations counts artifact store operations.
	ArtifactOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_operations_total",
			Help:      "Artifact store operations by operation, backend and status",
		},
		[]string{"operation", "backend", "status"},
	)

	// ArtifactBytes observes artifact sizes on save and load.
	ArtifactBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "artifact_size_bytes",
			Help:      "Stored artifact size",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		},
		[]string{"operation"},
	)
)

// Status maps an error to the status label.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// Timer measures elapsed time.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
