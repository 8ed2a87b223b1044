package config

import (
	"strings"
	"time"
)

// ObservabilityConfig groups metrics and notification configuration.
type ObservabilityConfig struct {
	Metrics ObservabilityMetricsConfig
	Webhook WebhookConfig
}

// ObservabilityMetricsConfig configures the StatsD metrics sink.
type ObservabilityMetricsConfig struct {
	// Enabled turns metric emission on. Requires StatsdAddress.
	Enabled bool `env:"METRICS_ENABLED" envDefault:"false"`

	// StatsdAddress is the UDP host:port of a StatsD-compatible sink.
	StatsdAddress string `env:"METRICS_STATSD_ADDRESS"`
}

// IsEnabled reports whether metrics should be emitted.
func (m ObservabilityMetricsConfig) IsEnabled() bool {
	return m.Enabled && strings.TrimSpace(m.StatsdAddress) != ""
}

// WebhookConfig configures the terminal-state notification webhook.
// Notification is disabled when URL is empty.
type WebhookConfig struct {
	URL string `env:"WEBHOOK_URL"`

	// LabelExpr is an optional JMESPath expression evaluated against the
	// job parameters map to derive a human-readable label for the payload
	// (e.g. "metadata.project_name").
	LabelExpr string `env:"WEBHOOK_LABEL_EXPR"`

	Timeout    time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	RetryLimit int           `env:"WEBHOOK_RETRY_LIMIT" envDefault:"2"`
}

// Sanitize applies guardrails to observability configuration values.
func (o *ObservabilityConfig) Sanitize() {
	if o.Webhook.Timeout <= 0 {
		o.Webhook.Timeout = 5 * time.Second
	}
	if o.Webhook.RetryLimit < 0 {
		o.Webhook.RetryLimit = 0
	}
}
