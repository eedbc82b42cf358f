package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// retryStep is the linear backoff increment between sink attempts.
const retryStep = 200 * time.Millisecond

// PostJSON sends body to url and treats any non-2xx status as an error that
// includes the response text. label prefixes every error ("slack", ...).
func PostJSON(ctx context.Context, hc *http.Client, url string, body []byte, label string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", label, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", label, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		closeErr := resp.Body.Close()
		if readErr != nil {
			return errors.Join(fmt.Errorf("read %s error response: %w", label, readErr), closeErr)
		}
		return fmt.Errorf("%s %s: %s", label, resp.Status, strings.TrimSpace(string(respBody)))
	}

	_, drainErr := io.Copy(io.Discard, resp.Body)
	closeErr := resp.Body.Close()
	if drainErr != nil {
		return errors.Join(fmt.Errorf("drain %s response body: %w", label, drainErr), closeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close response body: %w", closeErr)
	}
	return nil
}

// WithRetry runs fn up to retries+1 times with a linear backoff, stopping
// early when ctx is done. It returns the last error.
func WithRetry(ctx context.Context, retries int, fn func(context.Context) error) error {
	attempts := max(retries, 0) + 1
	var lastErr error
	for attempt := range attempts {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * retryStep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

// Fallback returns value unless it is blank.
func Fallback(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
