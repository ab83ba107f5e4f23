// Package origin provides the HTTP client for the upstream photo API.
// It owns retries and response validation; callers get either a valid JSON
// body or an *Error.
package origin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for origin requests.
var (
	originRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photocache_origin_requests_total",
		Help: "Total origin requests by endpoint and status",
	}, []string{"endpoint", "status"})

	originRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "photocache_origin_request_duration_seconds",
		Help:    "Origin request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})
)

const (
	// DefaultBaseURL is the public jsonplaceholder API.
	DefaultBaseURL = "https://jsonplaceholder.typicode.com"

	// MaxBodyBytes caps the size of a single origin response.
	MaxBodyBytes = 32 << 20

	endpointPhotos = "/photos"
	endpointPhoto  = "/photos/{id}"
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the origin API, without trailing slash.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout per HTTP attempt.
	Timeout time.Duration

	// Retry policy for server and network errors.
	Retry RetryConfig
}

// DefaultConfig returns a default configuration for the public origin.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// Client fetches photo resources from the origin.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// New creates a new origin client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("retry max_attempts must be >= 1 (got %d)", cfg.Retry.MaxAttempts)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		config:  cfg,
		logger:  log.With().Str("component", "origin").Logger(),
	}, nil
}

// ListPhotos fetches the photo collection filtered by query (e.g. albumId).
func (c *Client) ListPhotos(ctx context.Context, query url.Values) ([]byte, error) {
	return c.get(ctx, endpointPhotos, endpointPhotos, "", query)
}

// GetPhoto fetches a single photo by id. The id is sent as one escaped path
// segment, so "a/b" goes out as /photos/a%2Fb.
func (c *Client) GetPhoto(ctx context.Context, id string) ([]byte, error) {
	return c.get(ctx, endpointPhoto, "/photos/"+id, "/photos/"+url.PathEscape(id), nil)
}

// Get fetches an arbitrary path below the base URL.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.get(ctx, path, path, "", query)
}

// get requests path below the base URL. A non-empty rawPath is its encoded form.
func (c *Client) get(ctx context.Context, endpoint, path, rawPath string, query url.Values) ([]byte, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawPath = ""
	if rawPath != "" {
		u.RawPath = c.baseURL.EscapedPath() + rawPath
	}
	u.RawQuery = query.Encode()
	target := u.String()

	startTime := time.Now()
	defer func() {
		originRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var body []byte
	err := retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		var err error
		body, err = c.do(ctx, endpoint, target)
		return err
	}, classify)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("endpoint", endpoint).
			Str("url", target).
			Msg("Origin request failed")
		return nil, err
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("bytes", len(body)).
		Dur("duration", time.Since(startTime)).
		Msg("Origin request succeeded")

	return body, nil
}

// do performs a single attempt and validates the response.
func (c *Client) do(ctx context.Context, endpoint, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{ErrorClass: ErrorClassClient, Message: "create request", Err: err}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		originRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &Error{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	originRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, ErrorClass: ErrorClassNetwork, Message: "read body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		class := ErrorClassClient
		if resp.StatusCode >= 500 {
			class = ErrorClassServer
		}
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Origin request error")
		return nil, &Error{StatusCode: resp.StatusCode, ErrorClass: class, Message: resp.Status}
	}

	if !json.Valid(body) {
		return nil, &Error{StatusCode: resp.StatusCode, ErrorClass: ErrorClassDecode, Message: "response body is not valid JSON"}
	}

	return body, nil
}

// classify extracts the error class for retry decisions.
func classify(err error) ErrorClass {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.ErrorClass
	}
	return ErrorClassNetwork
}
