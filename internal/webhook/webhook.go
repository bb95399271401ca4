// Package webhook forwards completed submissions to an external collector
// endpoint as JSON.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/lxndrtsh/ofa-calculator-embed/internal/submit"
)

// Client POSTs submissions to a single collector URL. It is a recorder like
// the sqlite store: failures are reported to the caller, which logs and
// moves on.
type Client struct {
	url  string
	http *http.Client
}

// New returns a Client posting to url.
func New(url string) *Client {
	return &Client{url: url, http: &http.Client{Timeout: 10 * time.Second}}
}

// Record posts one submission. The collector's response body is ignored;
// only a non-2xx status is a failure.
func (c *Client) Record(ctx context.Context, sub submit.Submission) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post submission: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector returned %d", resp.StatusCode)
	}
	return nil
}
