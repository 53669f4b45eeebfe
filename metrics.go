package opts

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors updated by managers. A nil *Metrics
// records nothing.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	CompactedWrites   *prometheus.CounterVec
	InitCleanups      *prometheus.CounterVec
}

// NewMetrics registers the manager collectors with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sysopts_operations_total",
				Help: "Option manager operations by scope, operation and result",
			},
			[]string{"scope", "op", "result"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sysopts_operation_duration_seconds",
				Help:    "Option manager operation latency in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"scope", "op"},
		),
		CompactedWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sysopts_compacted_writes_total",
				Help: "Writes skipped because the value equals the default and no override exists",
			},
			[]string{"scope"},
		),
		InitCleanups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sysopts_init_cleanups_total",
				Help: "Store entries removed or renamed during Init",
			},
			[]string{"scope", "action"},
		),
	}
}

func (m *Metrics) observe(scope Scope, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Operations.WithLabelValues(scope.String(), op, result).Inc()
	m.OperationDuration.WithLabelValues(scope.String(), op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) compacted(scope Scope) {
	if m == nil {
		return
	}
	m.CompactedWrites.WithLabelValues(scope.String()).Inc()
}

func (m *Metrics) cleanup(scope Scope, action string) {
	if m == nil {
		return
	}
	m.InitCleanups.WithLabelValues(scope.String(), action).Inc()
}
