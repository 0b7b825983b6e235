package fetch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ovailles/tvharbor/internal/circuitbreaker"
	apperrors "github.com/ovailles/tvharbor/internal/errors"
	"github.com/ovailles/tvharbor/internal/logger"
	"github.com/ovailles/tvharbor/internal/retry"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultAttempts = 3
	userAgent       = "tvharbor/1.0"
)

// Client is the single point of outbound HTTP access. Every source
// parser fetches through it, so retry, backoff, response-code
// validation and caching behave the same for all of them.
type Client struct {
	httpClient *http.Client
	retryCfg   retry.Config
	breakers   *circuitbreaker.Registry
	cache      *Cache
	logger     *logger.Logger
}

// Options holds fetch client configuration
type Options struct {
	Timeout       time.Duration
	RetryAttempts int
	Cache         *Cache
	Logger        *logger.Logger
}

// NewClient creates a fetch client
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = defaultAttempts
	}
	if opts.Logger == nil {
		opts.Logger = logger.AppLogger()
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = opts.RetryAttempts

	// Only unreachable-host failures trip a circuit; a provider
	// answering with an error status is alive.
	breakerCfg := circuitbreaker.DefaultConfig()
	breakerCfg.TripsOn = apperrors.IsRetryable

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		retryCfg:   retryCfg,
		breakers:   circuitbreaker.NewRegistry(breakerCfg),
		cache:      opts.Cache,
		logger:     opts.Logger,
	}
}

// Fetch performs a GET and returns the raw response body. Transport
// failures are retried with exponential backoff up to the configured
// budget; non-2xx responses and malformed URLs are terminal.
func (c *Client) Fetch(ctx context.Context, rawURL string, policy CachePolicy) ([]byte, error) {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return nil, apperrors.InvalidURL(rawURL, err)
	}

	if policy == CacheDefault {
		if body, ok := c.cache.Get(rawURL); ok {
			return body, nil
		}
	}

	body, err := retry.DoWithResult(ctx, c.retryCfg, func() ([]byte, error) {
		return c.fetchOnce(ctx, rawURL, u.Host)
	}, apperrors.IsRetryable)
	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"url":   rawURL,
			"error": err.Error(),
		}).Warn("fetch failed")
		return nil, err
	}

	c.cache.Set(rawURL, body)
	return body, nil
}

// fetchOnce performs a single attempt through the host's circuit
func (c *Client) fetchOnce(ctx context.Context, rawURL, host string) ([]byte, error) {
	var body []byte

	err := c.breakers.Execute(host, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return apperrors.InvalidURL(rawURL, err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "*/*")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Connection lost, host unreachable, timeout: retryable
			return apperrors.TransportError("request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return apperrors.ServerError(resp.StatusCode, rawURL)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return apperrors.TransportError("reading response body", err)
		}
		body = data
		return nil
	})
	if err != nil {
		if err == circuitbreaker.ErrOpenState || err == circuitbreaker.ErrProbeLimit {
			return nil, apperrors.TransportError("upstream circuit open", err)
		}
		return nil, err
	}
	return body, nil
}

// DecodeJSON fetches a URL and deserializes the payload into T,
// wrapping schema failures in a decode error.
func DecodeJSON[T any](ctx context.Context, c *Client, rawURL string, policy CachePolicy) (T, error) {
	var result T

	body, err := c.Fetch(ctx, rawURL, policy)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return result, apperrors.DecodeError("unexpected response schema", err).
			WithContext("url", rawURL)
	}
	return result, nil
}
