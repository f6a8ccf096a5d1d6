package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 60 * time.Second

// HTTPRunner performs actions through a runner service's HTTP API.
type HTTPRunner struct {
	name       string
	endpoint   string
	httpClient *http.Client
}

// NewHTTPRunner creates a runner client for an HTTP endpoint.
// A non-positive timeout falls back to 60s; browser actions are slow.
func NewHTTPRunner(name, endpoint string, timeout time.Duration) *HTTPRunner {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPRunner{
		name:     name,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Name identifies the runner.
func (r *HTTPRunner) Name() string {
	return r.name
}

// Perform posts the request to the runner and interprets the response.
func (r *HTTPRunner) Perform(ctx context.Context, req *Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("runner call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("runner rate limited (429), retry after: %s", resp.Header.Get("Retry-After"))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("runner returned http %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	return nil
}
