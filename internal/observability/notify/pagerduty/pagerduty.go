// Package pagerduty raises analysis failures as PagerDuty Events API v2 triggers.
package pagerduty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/skyportal/nmma-analysis/internal/observability/notify"
)

// APIEndpoint is the PagerDuty Events API v2 ingest URL.
const APIEndpoint = "https://events.pagerduty.com/v2/enqueue"

// Config captures runtime configuration for the PagerDuty sink.
type Config struct {
	RoutingKey string
	Source     string
	Component  string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	Endpoint   string // defaults to APIEndpoint
}

// Client publishes events via PagerDuty's Events API v2.
type Client struct {
	routingKey string
	source     string
	component  string
	endpoint   string
	retryLimit int
	client     *http.Client
}

// NewClient constructs a PagerDuty events client. A routing key is required.
func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.RoutingKey)
	if key == "" {
		return nil, errors.New("pagerduty routing key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		routingKey: key,
		source:     notify.Fallback(strings.TrimSpace(cfg.Source), "nmma-analysis"),
		component:  notify.Fallback(strings.TrimSpace(cfg.Component), "analysis"),
		endpoint:   notify.Fallback(strings.TrimSpace(cfg.Endpoint), APIEndpoint),
		retryLimit: max(cfg.RetryLimit, 0),
		client:     hc,
	}, nil
}

// SendAnalysisFailure submits a trigger event.
func (c *Client) SendAnalysisFailure(ctx context.Context, payload notify.AnalysisFailurePayload) error {
	body, err := json.Marshal(c.buildEvent(payload))
	if err != nil {
		return fmt.Errorf("encode pagerduty payload: %w", err)
	}
	return notify.WithRetry(ctx, c.retryLimit, func(ctx context.Context) error {
		return notify.PostJSON(ctx, c.client, c.endpoint, body, "pagerduty api")
	})
}

func (c *Client) buildEvent(payload notify.AnalysisFailurePayload) map[string]any {
	severity := notify.Fallback(strings.ToLower(payload.Severity), notify.SeverityCritical)

	occurredAt := payload.OccurredAt.UTC()
	if payload.OccurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	custom := map[string]any{
		"job_id":       payload.JobID,
		"object_id":    payload.ObjectID,
		"model":        payload.Model,
		"callback_url": payload.CallbackURL,
		"stage":        payload.Stage,
		"error":        payload.Error,
		"error_class":  payload.ErrorClass,
	}
	for k, v := range payload.Metadata {
		if _, exists := custom[k]; !exists {
			custom[k] = v
		}
	}

	// One incident per job; repeated notifications for a job collapse.
	dedupKey := strings.Trim(fmt.Sprintf("nmma:%s", payload.JobID), ":")

	return map[string]any{
		"routing_key":  c.routingKey,
		"event_action": "trigger",
		"dedup_key":    dedupKey,
		"payload": map[string]any{
			"summary": fmt.Sprintf(
				"NMMA analysis %s of %s failed at %s",
				notify.Fallback(payload.Model, "unknown"),
				notify.Fallback(payload.ObjectID, "unknown"),
				notify.Fallback(payload.Stage, "unknown stage"),
			),
			"severity":       severity,
			"source":         c.source,
			"component":      c.component,
			"timestamp":      occurredAt.Format(time.RFC3339),
			"custom_details": custom,
		},
	}
}
