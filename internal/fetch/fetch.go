package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dgnsrekt/salesboard/internal/chart"
)

// Payload is a decoded top-level JSON object keyed by field name.
type Payload map[string]json.RawMessage

// Client issues parameterized GET requests against the backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for baseURL. A nil httpClient uses a client
// without a timeout; a hung request only blocks its own cycle.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	c := httpClient
	if c == nil {
		c = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: c}
}

// BuildURL joins base and endpoint and appends only the params with a
// non-empty value so the backend applies its own defaults for the rest.
func BuildURL(base, endpoint string, params map[string]string) string {
	u := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/")
	q := url.Values{}
	for k, v := range params {
		if k == "" || v == "" {
			continue
		}
		q.Set(k, v)
	}
	if len(q) == 0 {
		return u
	}
	return u + "?" + q.Encode()
}

// Fetch performs a single GET and decodes the body as a JSON object.
// There are no retries.
func (c *Client) Fetch(ctx context.Context, endpoint string, params map[string]string) (Payload, error) {
	reqURL := BuildURL(c.baseURL, endpoint, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, chart.NewError(chart.CodeUnreachable, "build request "+reqURL, err)
	}
	req.Header.Set("Accept", "application/json")

	slog.Debug("fetch request", "endpoint", endpoint, "url", reqURL)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, chart.NewError(chart.CodeUnreachable, "GET "+reqURL, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("fetch body close failed", "endpoint", endpoint, "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, chart.NewError(chart.CodeUnreachable, fmt.Sprintf("GET %s: status=%d", reqURL, resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, chart.NewError(chart.CodeUnreachable, "read body "+reqURL, err)
	}

	var p Payload
	if err := json.Unmarshal(bytes.TrimSpace(body), &p); err != nil {
		return nil, chart.NewError(chart.CodeMalformed, "decode body "+reqURL, err)
	}
	if p == nil {
		return nil, chart.NewError(chart.CodeMalformed, "decode body "+reqURL+": not a JSON object", nil)
	}
	slog.Debug("fetch response", "endpoint", endpoint, "status", resp.StatusCode, "bytes", len(body), "fields", len(p))
	return p, nil
}
