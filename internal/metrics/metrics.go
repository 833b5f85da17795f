// Package metrics records sync and remote-operation outcomes as Prometheus
// metrics on a private registry. The CLI writes the registry to a textfile
// for node_exporter's textfile collector after each command.
package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mesh-intelligence/almanac/internal/manager"
	"github.com/mesh-intelligence/almanac/pkg/types"
)

const namespace = "almanac"

// Outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeRejected    = "rejected"
	OutcomeError       = "error"
)

// Recorder implements manager.Observer.
type Recorder struct {
	registry *prometheus.Registry

	syncs         *prometheus.CounterVec
	syncDuration  *prometheus.HistogramVec
	records       *prometheus.GaugeVec
	pushed        *prometheus.CounterVec
	pushFailures  *prometheus.CounterVec
	remoteOps     *prometheus.CounterVec
	remoteLatency *prometheus.HistogramVec
}

var _ manager.Observer = (*Recorder)(nil)

// NewRecorder registers the almanac metrics on a new registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "syncs_total",
			Help:      "Sync runs by kind and outcome.",
		}, []string{"kind", "outcome"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Wall time of sync runs.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"kind"}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Records in the collection after the last successful merge.",
		}, []string{"kind"}),
		pushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pushed_total",
			Help:      "Records saved to the remote during sync.",
		}, []string{"kind"}),
		pushFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_failures_total",
			Help:      "Records that failed to save during sync.",
		}, []string{"kind"}),
		remoteOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_operations_total",
			Help:      "Remote saves and deletes by kind, operation and outcome.",
		}, []string{"kind", "op", "outcome"}),
		remoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_operation_duration_seconds",
			Help:      "Latency of remote saves and deletes.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "op"}),
	}
	r.registry.MustRegister(
		r.syncs,
		r.syncDuration,
		r.records,
		r.pushed,
		r.pushFailures,
		r.remoteOps,
		r.remoteLatency,
	)
	return r
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveRemote implements manager.Observer.
func (r *Recorder) ObserveRemote(kind, op string, elapsed time.Duration, err error) {
	r.remoteOps.WithLabelValues(kind, op, Outcome(err)).Inc()
	r.remoteLatency.WithLabelValues(kind, op).Observe(elapsed.Seconds())
}

// ObserveSync implements manager.Observer.
func (r *Recorder) ObserveSync(kind string, res manager.SyncResult, elapsed time.Duration, err error) {
	r.syncs.WithLabelValues(kind, Outcome(err)).Inc()
	r.syncDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	r.pushed.WithLabelValues(kind).Add(float64(res.Pushed))
	r.pushFailures.WithLabelValues(kind).Add(float64(res.Failed))
	if res.Merged > 0 || err == nil {
		r.records.WithLabelValues(kind).Set(float64(res.Merged))
	}
}

// WriteToTextfile writes the registry in the text exposition format,
// creating the parent directory if needed.
func (r *Recorder) WriteToTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

// Outcome maps an error onto the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, types.ErrRemoteUnavailable):
		return OutcomeUnavailable
	case errors.Is(err, types.ErrSaveRejected), errors.Is(err, types.ErrDeleteRejected):
		return OutcomeRejected
	}
	return OutcomeError
}
