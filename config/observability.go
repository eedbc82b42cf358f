package config

import (
	"maps"
	"slices"
	"strings"
	"time"
)

const defaultObservabilityName = "nmma-analysis"

// Failure stages operators can be paged for. They match the stages the
// orchestrator reports.
var notificationStages = []string{"analysis", "delivery", "panic"}

// ObservabilityConfig covers statsd metrics and operator failure alerts.
type ObservabilityConfig struct {
	Metrics       ObservabilityMetricsConfig
	Notifications ObservabilityNotificationsConfig
}

// Sanitize applies guardrails to both halves.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Notifications.Sanitize()
}

// ObservabilityMetricsConfig controls the statsd sink. Tags are attached to
// every metric, e.g. OBSERVABILITY_METRICS_TAGS=env:prod,site:caltech.
type ObservabilityMetricsConfig struct {
	Enabled       bool              `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string            `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	Prefix        string            `env:"OBSERVABILITY_METRICS_PREFIX"         envDefault:"nmma"`
	Tags          map[string]string `env:"OBSERVABILITY_METRICS_TAGS"`
}

// Sanitize disables metrics without an address and drops blank tag keys.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	c.Prefix = strings.Trim(strings.TrimSpace(c.Prefix), ".")
	if c.StatsdAddress == "" {
		c.Enabled = false
	}

	tags := make(map[string]string, len(c.Tags))
	for k, v := range c.Tags {
		if k = strings.TrimSpace(k); k != "" {
			tags[k] = strings.TrimSpace(v)
		}
	}
	c.Tags = nil
	if len(tags) > 0 {
		c.Tags = tags
	}
}

// IsEnabled reports whether a statsd client should be built.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}

// GlobalTags returns a copy of Tags.
func (c *ObservabilityMetricsConfig) GlobalTags() map[string]string {
	return maps.Clone(c.Tags)
}

// ObservabilityNotificationsConfig controls Slack and PagerDuty alerts for
// failed analysis jobs. Stages limits which failures page anyone.
type ObservabilityNotificationsConfig struct {
	Enabled    bool                        `env:"OBSERVABILITY_NOTIFICATIONS_ENABLED"     envDefault:"false"`
	Timeout    time.Duration               `env:"OBSERVABILITY_NOTIFICATIONS_TIMEOUT"     envDefault:"5s"`
	RetryLimit int                         `env:"OBSERVABILITY_NOTIFICATIONS_RETRY_LIMIT" envDefault:"3"`
	Stages     []string                    `env:"OBSERVABILITY_NOTIFICATIONS_STAGES"      envDefault:"analysis,delivery,panic"`
	Slack      SlackNotificationConfig     `envPrefix:"OBSERVABILITY_NOTIFICATIONS_SLACK_"`
	PagerDuty  PagerDutyNotificationConfig `envPrefix:"OBSERVABILITY_NOTIFICATIONS_PAGERDUTY_"`
}

// Sanitize clamps timings, filters stages and disables sinks that cannot send.
func (c *ObservabilityNotificationsConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	c.RetryLimit = max(c.RetryLimit, 0)
	c.Stages = sanitizeStages(c.Stages)

	c.Slack.sanitize()
	c.PagerDuty.sanitize()

	switch {
	case !c.Enabled:
		c.Slack.Enabled = false
		c.PagerDuty.Enabled = false
	default:
		c.Slack.Enabled = c.Slack.Enabled && c.Slack.WebhookURL != ""
		c.PagerDuty.Enabled = c.PagerDuty.Enabled && c.PagerDuty.RoutingKey != ""
	}
}

// sanitizeStages lowercases and dedups stages, dropping unknown ones. An
// empty result selects every stage.
func sanitizeStages(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if slices.Contains(notificationStages, s) && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return slices.Clone(notificationStages)
	}
	return out
}

// SlackNotificationConfig configures the Slack incoming webhook. When
// ObjectURLPrefix is set, alerts link to <prefix><object_id>.
type SlackNotificationConfig struct {
	Enabled         bool   `env:"ENABLED"           envDefault:"false"`
	WebhookURL      string `env:"WEBHOOK_URL"`
	Channel         string `env:"CHANNEL"`
	Username        string `env:"USERNAME"          envDefault:"nmma-analysis"`
	ObjectURLPrefix string `env:"OBJECT_URL_PREFIX"`
}

func (c *SlackNotificationConfig) sanitize() {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	c.Channel = strings.TrimSpace(c.Channel)
	c.ObjectURLPrefix = strings.TrimSpace(c.ObjectURLPrefix)
	c.Username = orDefault(c.Username, defaultObservabilityName)
}

// PagerDutyNotificationConfig configures Events API v2 alerts.
type PagerDutyNotificationConfig struct {
	Enabled    bool   `env:"ENABLED"     envDefault:"false"`
	RoutingKey string `env:"ROUTING_KEY"`
	Source     string `env:"SOURCE"      envDefault:"nmma-analysis"`
	Component  string `env:"COMPONENT"   envDefault:"analysis"`
}

func (c *PagerDutyNotificationConfig) sanitize() {
	c.RoutingKey = strings.TrimSpace(c.RoutingKey)
	c.Source = orDefault(c.Source, defaultObservabilityName)
	c.Component = orDefault(c.Component, "analysis")
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
