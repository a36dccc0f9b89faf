package retry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vvka-141/clusterha/pkg/clusterha"
)

const metricsNamespace = "clusterha"

// Reconnect outcomes.
const (
	reconnectAlreadyConnected = "already_connected"
	reconnectSkipped          = "skipped"
	reconnectRecovered        = "reconnected"
	reconnectGaveUp           = "gave_up"
)

// Metrics holds the Prometheus collectors of the retry layer.
// A nil *Metrics records nothing.
type Metrics struct {
	retries           *prometheus.CounterVec
	failures          *prometheus.CounterVec
	recoveries        *prometheus.CounterVec
	reconnectAttempts *prometheus.CounterVec
	reconnects        *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "retries_total",
				Help:      "Total number of operation retries",
			},
			[]string{"policy", "kind"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "operation_failures_total",
				Help:      "Total number of operations that returned a failure to the caller",
			},
			[]string{"policy", "kind"},
		),
		recoveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "operation_recoveries_total",
				Help:      "Total number of operations that succeeded after at least one retry",
			},
			[]string{"policy"},
		),
		reconnectAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "reconnect_attempts_total",
				Help:      "Total number of raw reconnect attempts",
			},
			[]string{"result"},
		),
		reconnects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "reconnects_total",
				Help:      "Total number of reconnect calls by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) recordRetry(policy string, kind clusterha.Classification) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(policy, kind.String()).Inc()
}

func (m *Metrics) recordFailure(policy string, kind clusterha.Classification) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(policy, kind.String()).Inc()
}

func (m *Metrics) recordRecovery(policy string) {
	if m == nil {
		return
	}
	m.recoveries.WithLabelValues(policy).Inc()
}

func (m *Metrics) recordReconnectAttempt(success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.reconnectAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) recordReconnect(outcome string) {
	if m == nil {
		return
	}
	m.reconnects.WithLabelValues(outcome).Inc()
}
