package queryapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"moviemate/app/config"

	"github.com/samber/do"
)

const maxBodySize = 8 << 20

type Client struct {
	baseURL         string
	subscriptionKey string
	httpClient      *http.Client
	now             func() time.Time
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return New(cfg.Backend), nil
}

func New(cfg config.Backend) *Client {
	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		subscriptionKey: cfg.SubscriptionKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		now: time.Now,
	}
}

// Dispatch sends query to the query endpoint. Every failure, including
// cancellation of ctx, is returned as a *Failure.
func (c *Client) Dispatch(ctx context.Context, query string) (*RawResponse, error) {
	body, err := json.Marshal(queryRequest{
		Query:          query,
		LocalTimeStamp: c.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fail(0, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fail(0, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if c.subscriptionKey != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fail(0, fmt.Errorf("http: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fail(resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fail(resp.StatusCode, fmt.Errorf("unexpected status: %s", truncate(string(respBody), 200)))
	}

	var result RawResponse
	if err = json.Unmarshal(respBody, &result); err != nil {
		return nil, fail(resp.StatusCode, fmt.Errorf("failed to unmarshal response: %w", err))
	}

	return &result, nil
}

func fail(status int, err error) *Failure {
	return &Failure{
		Message:    FallbackMessage,
		StatusCode: status,
		Err:        err,
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
