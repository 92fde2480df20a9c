package voicegate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kailas-cloud/voicegate/internal/version"
)

const (
	maxResponseBody = 1 << 20
	// maxErrorBody bounds a non-envelope error body copied into APIError.Detail.
	maxErrorBody = 64 << 10
)

// Client is a voicegate API client.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
	obs       *observer
}

// New creates a client for the server at baseURL (for example "http://localhost:3000").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("voicegate: invalid base URL %q", baseURL)
	}

	cfg := &clientConfig{
		timeout:   defaultTimeout,
		userAgent: version.UserAgent("voicegate-go-sdk"),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      hc,
		userAgent: cfg.userAgent,
		obs:       obs,
	}, nil
}

// CreateSession mints an ephemeral realtime session.
func (c *Client) CreateSession(ctx context.Context) (_ *Session, err error) {
	start := time.Now()
	defer func() { c.obs.observe("session.create", start, err) }()

	raw, err := c.doRaw(ctx, http.MethodPost, "/token", nil)
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("voicegate: decode session: %w", err)
	}
	s.Raw = raw
	return &s, nil
}

// Search ranks knowledge base documents for query. topK <= 0 uses the server default.
func (c *Client) Search(ctx context.Context, query string, topK int) (_ *SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("kb.search", start, err) }()

	req := map[string]any{"query": query}
	if topK > 0 {
		req["top_k"] = topK
	}
	var out SearchResult
	if err := c.do(ctx, http.MethodPost, "/rag/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats returns the search counter and recent query list.
func (c *Client) Stats(ctx context.Context) (_ *QueryStats, err error) {
	start := time.Now()
	defer func() { c.obs.observe("kb.stats", start, err) }()

	var out QueryStats
	if err := c.do(ctx, http.MethodGet, "/rag/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetStats clears the search statistics.
func (c *Client) ResetStats(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("kb.reset_stats", start, err) }()

	return c.do(ctx, http.MethodPost, "/rag/stats/reset", nil, nil)
}

// AnalyzeEmotion runs the emotion heuristic over in.
func (c *Client) AnalyzeEmotion(ctx context.Context, in EmotionInput) (_ *Emotion, err error) {
	start := time.Now()
	defer func() { c.obs.observe("emotion.analyze", start, err) }()

	var out Emotion
	if err := c.do(ctx, http.MethodPost, "/emotion/analyze", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Liveness calls /healthz.
func (c *Client) Liveness(ctx context.Context) (_ *Liveness, err error) {
	start := time.Now()
	defer func() { c.obs.observe("liveness", start, err) }()

	var out Liveness
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns the component health report. A degraded server answers
// 503 with the same body, which is returned without error.
func (c *Client) Health(ctx context.Context) (_ *HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	var out HealthStatus
	err = c.do(ctx, http.MethodGet, "/health", nil, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable && out.Status != "" {
		return &out, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends body as JSON and decodes the response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	raw, err := c.doRaw(ctx, method, path, body)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable && out != nil {
		_ = json.Unmarshal(apiErr.raw, out)
		return err
	}
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("voicegate: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("voicegate: encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("voicegate: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voicegate: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("voicegate: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, raw)
	}
	return raw, nil
}

func newAPIError(status int, raw []byte) *APIError {
	e := &APIError{StatusCode: status, raw: raw}
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Error == "" {
		e.Message = http.StatusText(status)
		if len(raw) > 0 && len(raw) <= maxErrorBody {
			e.Detail = strings.TrimSpace(string(raw))
		}
		return e
	}
	e.Message = env.Error
	e.Detail = env.Detail
	if e.Detail == "" {
		e.Detail = env.Body
	}
	e.UpstreamStatus = env.UpStatus
	return e
}
