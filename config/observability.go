package config

// ObservabilityConfig groups configuration that controls metrics exposure.
type ObservabilityConfig struct {
	Metrics ObservabilityMetricsConfig
}

// ObservabilityMetricsConfig controls the Prometheus endpoint.
type ObservabilityMetricsConfig struct {
	// Enabled mounts /metrics and records session and guard metrics.
	Enabled bool `env:"OBSERVABILITY_METRICS_ENABLED" envDefault:"true"`
}

// IsEnabled returns true when metrics are exposed.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled
}
