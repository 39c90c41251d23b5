package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	batchIngestPath = "/v1/ingest/batch"
	verifyPath      = "/v1/verify"
	apiKeyHeader    = "X-Vex-Key"

	// maxAttempts is the total number of delivery attempts per request.
	maxAttempts = 3
	// backoffBase is the delay before the second attempt; it doubles per
	// attempt (100ms, 200ms).
	backoffBase = 100 * time.Millisecond
)

// Config holds the HTTP settings shared by both transports.
type Config struct {
	APIURL string
	APIKey string
	// HTTPClient overrides the default client. Per-attempt timeouts are
	// applied via context deadlines, not the client's Timeout field.
	HTTPClient *http.Client
}

func (c Config) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{}
}

// httpStatusError marks a received non-2xx response, distinguishing a
// reached-but-rejecting backend from a transport failure for retry purposes.
type httpStatusError struct {
	status int
	body   string
}

// Error implements the error interface.
func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.status, e.body)
}

// postJSON issues one POST attempt bounded by its own timeout. A non-2xx
// response yields *httpStatusError; any other failure (including the
// deadline firing) is returned as-is and indistinguishable from a network
// failure.
func postJSON(ctx context.Context, client *http.Client, url, apiKey string, timeout time.Duration, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpStatusError{status: resp.StatusCode, body: string(respBody)}
	}
	return respBody, nil
}

// newRetryBackoff builds the shared retry policy: maxAttempts total tries
// with deterministic exponential delays between them, aborted early when the
// context is cancelled.
func newRetryBackoff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = backoffBase
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = time.Second
	bo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(bo, maxAttempts-1), ctx)
}
