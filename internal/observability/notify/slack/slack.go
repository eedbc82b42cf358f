// Package slack posts analysis failure alerts to a Slack incoming webhook.
package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/skyportal/nmma-analysis/internal/observability/notify"
)

// Config captures the subset of Slack webhook behaviour we need.
// ObjectURLPrefix turns object IDs into links, e.g. a SkyPortal source page.
type Config struct {
	WebhookURL      string
	Channel         string
	Username        string
	Timeout         time.Duration
	RetryLimit      int
	Client          *http.Client
	ObjectURLPrefix string
}

// Client delivers failure notifications to a Slack webhook.
type Client struct {
	webhookURL      string
	channel         string
	username        string
	retryLimit      int
	objectURLPrefix string
	client          *http.Client
}

// NewClient builds a Slack webhook client.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
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
		webhookURL:      webhookURL,
		channel:         strings.TrimSpace(cfg.Channel),
		username:        notify.Fallback(strings.TrimSpace(cfg.Username), "nmma-analysis"),
		retryLimit:      max(cfg.RetryLimit, 0),
		objectURLPrefix: strings.TrimSpace(cfg.ObjectURLPrefix),
		client:          hc,
	}, nil
}

// SendAnalysisFailure posts a formatted message to Slack.
func (c *Client) SendAnalysisFailure(ctx context.Context, payload notify.AnalysisFailurePayload) error {
	body, err := json.Marshal(c.formatMessage(payload))
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}
	return notify.WithRetry(ctx, c.retryLimit, func(ctx context.Context) error {
		return notify.PostJSON(ctx, c.client, c.webhookURL, body, "slack webhook")
	})
}

func (c *Client) formatMessage(payload notify.AnalysisFailurePayload) map[string]any {
	timestamp := payload.OccurredAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var text strings.Builder
	text.WriteString("*Analysis failure*")
	if payload.JobID != "" {
		fmt.Fprintf(&text, " `%s`", payload.JobID)
	}
	if payload.Model != "" {
		fmt.Fprintf(&text, " (%s)", escape(payload.Model))
	}
	text.WriteByte('\n')

	fields := []struct{ label, value string }{
		{"Severity", notify.Fallback(payload.Severity, notify.SeverityCritical)},
		{"Object", c.formatObject(payload.ObjectID)},
		{"Stage", payload.Stage},
		{"Callback", escape(payload.CallbackURL)},
		{"Error class", payload.ErrorClass},
		{"Error", escape(payload.Error)},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			continue
		}
		fmt.Fprintf(&text, "• %s: %s\n", f.label, f.value)
	}

	if len(payload.Metadata) > 0 {
		text.WriteString("• Metadata:\n")
		keys := make([]string, 0, len(payload.Metadata))
		for k := range payload.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&text, "    • %s: %s\n", k, escape(payload.Metadata[k]))
		}
	}
	text.WriteString("• Timestamp: ")
	text.WriteString(timestamp.UTC().Format(time.RFC3339))

	msg := map[string]any{
		"text":     text.String(),
		"username": c.username,
	}
	if c.channel != "" {
		msg["channel"] = c.channel
	}
	return msg
}

// formatObject renders the object ID, linked when a prefix is configured.
func (c *Client) formatObject(objectID string) string {
	raw := strings.TrimSpace(objectID)
	if raw == "" {
		return ""
	}
	if link := c.objectLink(raw); link != "" {
		return fmt.Sprintf("<%s|%s>", link, escape(raw))
	}
	return escape(raw)
}

func (c *Client) objectLink(objectID string) string {
	if c.objectURLPrefix == "" {
		return ""
	}
	u, err := url.Parse(c.objectURLPrefix)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	link, err := url.JoinPath(u.String(), objectID)
	if err != nil {
		return ""
	}
	return link
}

var slackEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(value string) string {
	return slackEscaper.Replace(value)
}
