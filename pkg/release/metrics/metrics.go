package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	namespace = "release"
	subsystem = "cli"

	labelResult      = "result"
	labelKind        = "kind"
	labelStage       = "stage"
	labelAction      = "action"
	labelEnvironment = "environment"

	ResultRejected = "rejected"

	// Name of the push job the metrics are grouped under in the Pushgateway.
	PushJob = "release"
)

var (
	Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "runs",
		Help:      "number of release runs by terminal result",
		Namespace: namespace,
		Subsystem: subsystem,
	}, []string{labelResult})

	Entries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "entries",
		Help:      "number of manifest entries processed, by the stage they ended in",
		Namespace: namespace,
		Subsystem: subsystem,
	}, []string{labelStage, labelResult})

	KubernetesResources = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "kubernetes_resources",
		Help:      "number of Kubernetes resources submitted to the cluster",
		Namespace: namespace,
		Subsystem: subsystem,
	}, []string{labelKind, labelResult})

	Rollbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "rollbacks",
		Help:      "number of rollback actions by type",
		Namespace: namespace,
		Subsystem: subsystem,
	}, []string{labelAction})

	FieldValidationWarnings = prometheus.NewCounter(prometheus.CounterOpts{
		Name:      "field_validation_warnings",
		Help:      "number of unknown field warnings returned by the API server",
		Namespace: namespace,
		Subsystem: subsystem,
	})

	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "stage_duration_seconds",
		Help:      "time spent in each stage of a manifest entry",
		Namespace: namespace,
		Subsystem: subsystem,
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{labelStage})
)

func init() {
	prometheus.MustRegister(Runs)
	prometheus.MustRegister(Entries)
	prometheus.MustRegister(KubernetesResources)
	prometheus.MustRegister(Rollbacks)
	prometheus.MustRegister(FieldValidationWarnings)
	prometheus.MustRegister(StageDuration)
}

// ObserveStage records the time elapsed since start for a stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Push sends every registered metric to a Pushgateway, replacing any metrics
// previously pushed for the same job and environment.
// The environment is only a grouping key; no collector may carry it as a label.
func Push(ctx context.Context, url, environment string) error {
	return push.New(url, PushJob).
		Gatherer(prometheus.DefaultGatherer).
		Grouping(labelEnvironment, environment).
		PushContext(ctx)
}
