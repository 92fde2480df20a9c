package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/voicegate/internal/domain"
	"github.com/kailas-cloud/voicegate/internal/domain/session"
	"github.com/kailas-cloud/voicegate/internal/metrics"
)

const (
	// DefaultBaseURL is the public OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout bounds a single session creation call.
	DefaultTimeout = 15 * time.Second

	sessionsPath   = "/realtime/sessions"
	betaHeader     = "OpenAI-Beta"
	betaValue      = "realtime=v1"
	maxSessionBody = 1 << 20
)

// Client creates realtime sessions on the OpenAI API.
type Client struct {
	api        *openai.Client
	httpClient *http.Client
	apiKey     string
	baseURL    string
	timeout    time.Duration
	logger     *zap.Logger
}

// Config holds the upstream API settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewClient creates a realtime session client.
func NewClient(cfg *Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = baseURL
	clientCfg.HTTPClient = httpClient

	return &Client{
		api:        openai.NewClientWithConfig(clientCfg),
		httpClient: httpClient,
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		timeout:    timeout,
		logger:     logger,
	}
}

// CreateSession posts the session config upstream and returns the raw JSON
// response body unchanged. Single attempt, bounded by the client timeout.
func (c *Client) CreateSession(ctx context.Context, cfg session.Config) (json.RawMessage, error) {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal session config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sessionsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(betaHeader, betaValue)

	start := time.Now()
	body, status, err := c.do(req)
	metrics.SessionRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if isTimeout(ctx, err) {
			metrics.SessionRequestsTotal.WithLabelValues("timeout").Inc()
			return nil, fmt.Errorf("%w: %s", domain.ErrUpstreamTimeout, err.Error())
		}
		metrics.SessionRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("session request: %w", err)
	}

	if status < 200 || status > 299 {
		metrics.SessionRequestsTotal.WithLabelValues("upstream_error").Inc()
		c.logger.Warn("realtime session rejected", zap.Int("status", status))
		return nil, domain.NewUpstreamStatusError(status, body)
	}

	if len(body) > maxSessionBody {
		metrics.SessionRequestsTotal.WithLabelValues("too_large").Inc()
		return nil, fmt.Errorf("%w: %d bytes", errSessionTooLarge, maxSessionBody)
	}

	if !json.Valid(body) {
		metrics.SessionRequestsTotal.WithLabelValues("non_json").Inc()
		return nil, domain.NewUpstreamNonJSONError(status, body)
	}

	metrics.SessionRequestsTotal.WithLabelValues("ok").Inc()
	return json.RawMessage(body), nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err //nolint:wrapcheck // classified by caller
	}
	defer func() { _ = resp.Body.Close() }()

	// One extra byte tells an oversized body apart from one that fits exactly.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSessionBody+1))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read session response: %w", err)
	}
	return body, resp.StatusCode, nil
}

var errSessionTooLarge = errors.New("session response exceeds limit")

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", parseAPIError(err))
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("api error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, domain.ErrUpstream)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("api error %d: %s: %w",
			reqErr.HTTPStatusCode, domain.Truncate(string(reqErr.Body), domain.MaxUpstreamBody), domain.ErrUpstream)
	}

	return err
}
