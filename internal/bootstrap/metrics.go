package bootstrap

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/assignpro/assignpro-web/config"
	"github.com/assignpro/assignpro-web/internal/observability/metrics"
)

// Metrics is the sink the session store and guards report to, and the handler for /metrics.
// Handler is nil when metrics are disabled.
type Metrics struct {
	Sink    metrics.Sink
	Handler http.Handler
}

// BuildMetrics registers the session collectors on a private registry.
func BuildMetrics(cfg config.ObservabilityMetricsConfig) (Metrics, error) {
	if !cfg.IsEnabled() {
		return Metrics{Sink: metrics.Nop{}}, nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	sink, err := metrics.NewPrometheus(reg)
	if err != nil {
		return Metrics{}, fmt.Errorf("register session metrics: %w", err)
	}
	return Metrics{
		Sink:    sink,
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}, nil
}
