package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peergrove/groupd/pkg/errs"
)

// Metrics instruments the engine's command/query operations.
type Metrics struct {
	registry *prometheus.Registry

	CommandsTotal  *prometheus.CounterVec
	CommandSeconds *prometheus.HistogramVec
}

// New creates a Metrics with its own registry, pre-registered with the
// standard Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groupd",
			Name:      "commands_total",
			Help:      "Engine operations by operation name and outcome.",
		}, []string{"operation", "status"}),
		CommandSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "groupd",
			Name:      "command_duration_seconds",
			Help:      "Engine operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(m.CommandsTotal, m.CommandSeconds)
	return m
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe records one finished operation. The status label is "ok" for
// success, otherwise the error kind.
func (m *Metrics) Observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = string(errs.KindOf(err))
	}
	m.CommandsTotal.WithLabelValues(operation, status).Inc()
	m.CommandSeconds.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
