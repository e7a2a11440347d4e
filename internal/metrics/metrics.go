package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "glclone"

// Recorder holds the metrics of one run in its own registry. A nil Recorder
// records nothing.
//
// Available metrics are...
//   - glclone_projects_listed_total
//   - glclone_transfers_total - (tags: outcome,stage)
//   - glclone_transfer_duration_seconds - (tags: outcome)
//   - glclone_last_run_timestamp_seconds
type Recorder struct {
	Registry *prometheus.Registry

	projectsListed   prometheus.Counter
	transfers        *prometheus.CounterVec
	transferDuration *prometheus.HistogramVec
	lastRun          prometheus.Gauge
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		Registry: registry,
		projectsListed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projects_listed_total",
			Help:      "Number of projects returned by the source instance",
		}),
		transfers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Number of project transfers by outcome and the stage the outcome was decided in",
		}, []string{"outcome", "stage"}),
		transferDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_duration_seconds",
			Help:      "Duration of project transfers",
			Buckets:   []float64{0.5, 1, 5, 10, 20, 30, 60, 90, 120, 300, 600},
		}, []string{"outcome"}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix timestamp of the end of the last run",
		}),
	}
}

func (r *Recorder) ProjectsListed(n int) {
	if r == nil {
		return
	}
	r.projectsListed.Add(float64(n))
}

func (r *Recorder) ObserveTransfer(outcome, stage string, duration time.Duration) {
	if r == nil {
		return
	}
	r.transfers.WithLabelValues(outcome, stage).Inc()
	r.transferDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (r *Recorder) RunFinished(at time.Time) {
	if r == nil {
		return
	}
	r.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile writes all metrics to path in the text exposition format, for
// the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.Registry)
}
