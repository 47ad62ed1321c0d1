package http

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the account operation counters.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gophauth",
			Name:      "account_operations_total",
			Help:      "Account operations by outcome.",
		}, []string{"operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gophauth",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.operations, m.duration)
	return m
}

// observe counts one operation; result is "ok" or the status code.
func (m *Metrics) observe(operation string, status int) {
	if m == nil {
		return
	}
	result := "ok"
	if status >= 400 {
		result = strconv.Itoa(status)
	}
	m.operations.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) observeRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(seconds)
}
