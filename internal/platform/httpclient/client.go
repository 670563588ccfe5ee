// Package httpclient is the outbound HTTP client used to reach the factor
// backend: rate limited, retried with exponential backoff and guarded by a
// circuit breaker.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// maxErrorBody caps how much of a failed response is kept in StatusError.
const maxErrorBody = 512

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	Name            string
	Timeout         time.Duration
	RequestsPerSec  float64
	MaxRetryElapsed time.Duration
	InitialInterval time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	ProxyURL        string
	Logger          zerolog.Logger
}

// Client wraps http.Client with rate limiting, retries and a circuit breaker.
type Client struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter

	breaker    *gobreaker.CircuitBreaker
	maxElapsed time.Duration
	initial    time.Duration
	log        zerolog.Logger
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.Name == "" {
		opts.Name = "backend"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 5
	}
	if opts.MaxRetryElapsed == 0 {
		opts.MaxRetryElapsed = 30 * time.Second
	}
	if opts.InitialInterval == 0 {
		opts.InitialInterval = backoff.DefaultInitialInterval
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerTimeout == 0 {
		opts.BreakerTimeout = 60 * time.Second
	}

	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if opts.ProxyURL != "" {
		if u, err := url.Parse(opts.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}

	burst := int(opts.RequestsPerSec)
	if burst < 1 {
		burst = 1
	}

	log := opts.Logger.With().Str("component", "httpclient").Str("upstream", opts.Name).Logger()
	failures := opts.BreakerFailures

	return &Client{
		HTTPClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		Limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), burst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    opts.Name,
			Timeout: opts.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				// A rejected request means the upstream is answering.
				return err == nil || isClientError(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			},
		}),
		maxElapsed: opts.MaxRetryElapsed,
		initial:    opts.InitialInterval,
		log:        log,
	}
}

// Get fetches endpoint and returns the response body of a 200 reply.
// Network errors, 429 and 5xx replies are retried; other statuses fail
// immediately with a *StatusError.
func (c *Client) Get(ctx context.Context, endpoint string, header http.Header) ([]byte, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		return c.getWithRetry(ctx, endpoint, header)
	})
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

// State reports the circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) getWithRetry(ctx context.Context, endpoint string, header http.Header) ([]byte, error) {
	var body []byte
	attempt := 0
	operation := func() error {
		attempt++
		if err := c.Limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			c.log.Debug().Err(err).Int("attempt", attempt).Msg("request failed")
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
			c.log.Debug().Int("status", resp.StatusCode).Int("attempt", attempt).Msg("unexpected status")
			if !statusErr.Retryable() {
				return backoff.Permanent(statusErr)
			}
			return statusErr
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = c.initial
	strategy.MaxElapsedTime = c.maxElapsed

	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

// StatusError represents a non-200 reply from the upstream.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d, body: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func isClientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && !se.Retryable()
}
