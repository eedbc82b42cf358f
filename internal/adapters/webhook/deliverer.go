// Package webhook posts finished analysis results to caller callbacks.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/skyportal/nmma-analysis/internal/domain/model"
	apperrors "github.com/skyportal/nmma-analysis/internal/errors"
	"github.com/skyportal/nmma-analysis/internal/observability/metrics"
	"github.com/skyportal/nmma-analysis/internal/observability/statsd"
)

// DefaultTimeout bounds one callback attempt when none is configured.
const DefaultTimeout = 60 * time.Second

// maxResponseBodyBytes caps how much of a rejecting callback's body is kept
// for the error message.
const maxResponseBodyBytes = 512

// Options configures a Deliverer.
type Options struct {
	Client  *http.Client
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Deliverer sends each result exactly once. It never retries.
type Deliverer struct {
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
	metrics statsd.Sink
	now     func() time.Time
}

// NewDeliverer builds a Deliverer with defaults applied.
func NewDeliverer(opts Options) *Deliverer {
	hc := opts.Client
	if hc == nil {
		hc = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Deliverer{
		http:    hc,
		timeout: timeout,
		logger:  logger.With("component", "webhook"),
		metrics: opts.Metrics,
		now:     time.Now,
	}
}

// Deliver posts result to target.URL when target.Method is exactly POST.
// Other methods are skipped and logged. A timed out attempt returns an error
// with code timeout; any other failure, including a non-2xx reply, returns an
// error with code delivery.
func (d *Deliverer) Deliver(ctx context.Context, target model.CallbackTarget, result model.AnalysisResult) error {
	logger := d.logger.With("callback_url", target.URL, "status", result.Status)
	if target.Method != http.MethodPost {
		logger.WarnContext(ctx, "callback method not supported, skipping delivery", "callback_method", target.Method)
		metrics.EmitDelivery(d.metrics, metrics.DeliveryMetric{Result: metrics.ResultSkipped})
		return nil
	}

	start := d.now()
	code, err := d.post(ctx, target.URL, result)
	elapsed := d.now().Sub(start)

	outcome := metrics.ResultSuccess
	if err != nil {
		outcome = metrics.ResultError
	}
	metrics.EmitDelivery(d.metrics, metrics.DeliveryMetric{
		Result:     outcome,
		StatusCode: code,
		Duration:   elapsed,
		Err:        err,
	})

	switch {
	case err == nil:
		logger.InfoContext(ctx, "result delivered", "status_code", code, "duration", elapsed)
	case apperrors.IsTimeout(err):
		logger.WarnContext(ctx, "callback timed out, result dropped", "timeout", d.timeout, "error", err)
	default:
		logger.ErrorContext(ctx, "result delivery failed", "status_code", code, "error", err)
	}
	return err
}

func (d *Deliverer) post(ctx context.Context, url string, result model.AnalysisResult) (int, error) {
	body, err := json.Marshal(result)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeDelivery, "encode result")
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeDelivery, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return 0, apperrors.Wrapf(err, apperrors.ErrCodeTimeout, "callback did not answer within %s", d.timeout)
		}
		return 0, apperrors.Wrap(err, apperrors.ErrCodeDelivery, "send request")
	}

	snippet, readErr := readResponseBody(resp.Body)
	closeErr := resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("callback rejected result with status %d", resp.StatusCode)
		if snippet != "" {
			msg += ": " + snippet
		}
		return resp.StatusCode, apperrors.New(apperrors.ErrCodeDelivery, msg)
	}
	if err := errors.Join(readErr, closeErr); err != nil {
		d.logger.DebugContext(ctx, "drain callback response", "error", err)
	}
	return resp.StatusCode, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// readResponseBody returns up to maxResponseBodyBytes of body and discards
// the rest so the connection can be reused.
func readResponseBody(body io.Reader) (string, error) {
	if body == nil {
		return "", nil
	}
	data, err := io.ReadAll(io.LimitReader(body, maxResponseBodyBytes))
	if _, drainErr := io.Copy(io.Discard, body); drainErr != nil && err == nil {
		err = drainErr
	}
	return strings.TrimSpace(string(data)), err
}
