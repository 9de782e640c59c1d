package tiktok

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ttscraper/pkg/errors"
	"ttscraper/pkg/logger"
	"ttscraper/pkg/ratelimit"
	"ttscraper/pkg/signer"
)

// Options configures a Client
type Options struct {
	BaseURL   string
	UserAgent string
	Cookie    string
	Timeout   time.Duration
	Proxy     string

	// Signer defaults to the x-tt-params signer
	Signer signer.Signer
	// Limiter defaults to no limiting
	Limiter ratelimit.Limiter
	Logger  logger.Logger
	// HTTPClient overrides Timeout and Proxy when set
	HTTPClient *http.Client
}

// Client talks to the TikTok web endpoints. It keeps no per-crawl state and
// is safe to share between concurrent crawls.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	signer     signer.Signer
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// NewClient creates a new TikTok client
func NewClient(opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		transport, err := NewTransport(opts.Proxy)
		if err != nil {
			return nil, err
		}
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout, Transport: transport}
	}

	sign := opts.Signer
	if sign == nil {
		xtt, err := signer.NewXTTSigner()
		if err != nil {
			return nil, fmt.Errorf("failed to create signer: %w", err)
		}
		sign = xtt
	}

	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = BaseURL
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	headers := map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         strings.TrimRight(baseURL, "/") + "/",
	}
	if opts.Cookie != "" {
		headers["Cookie"] = opts.Cookie
	}

	return &Client{
		httpClient: httpClient,
		headers:    headers,
		baseURL:    baseURL,
		signer:     sign,
		limiter:    limiter,
		logger:     log,
	}, nil
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// response is a fully read HTTP response
type response struct {
	status int
	body   []byte
}

// get performs one rate-limited GET and reads the whole body.
// Transport failures come back as network errors wrapping the cause.
func (c *Client) get(ctx context.Context, rawURL string, extra map[string]string) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNetwork, err, "rate limiter wait aborted")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeUnknown, err, "failed to create request")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	for key, value := range extra {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).DebugWithFields("HTTP request failed", map[string]interface{}{
			"url":      rawURL,
			"duration": time.Since(start),
		})
		return nil, errors.Wrap(errors.ErrorTypeNetwork, err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	logger.LogRequest(c.logger, req.Method, rawURL, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNetwork, err, "failed to read response body")
	}

	return &response{status: resp.StatusCode, body: body}, nil
}

// statusError maps a non-2xx HTTP status to a typed error, or nil for 2xx
func statusError(status int) *errors.Error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusBadRequest:
		return errors.New(errors.ErrorTypeNotFound, status, "resource not found")
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.New(errors.ErrorTypeAuth, status, "access denied")
	case status == http.StatusNotFound || status == http.StatusGone:
		return errors.New(errors.ErrorTypeResourceExhausted, status, "resource gone")
	case status == http.StatusTooManyRequests:
		return errors.New(errors.ErrorTypeRateLimit, status, "rate limit exceeded")
	case status >= 500:
		return errors.New(errors.ErrorTypeServerError, status, "server error")
	default:
		return errors.New(errors.ErrorTypeUnknown, status, fmt.Sprintf("unexpected status code: %d", status))
	}
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
