package api

import (
	"context"
	"net/url"
	"pappaliiga-stats/internal/config"
	"pappaliiga-stats/internal/constants"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// ErrRequestFailed is in the chain of every error from a request that exhausted its attempts.
var ErrRequestFailed = errors.New("faceit: request failed")

var errThrottled = errors.New("throttled (429)")

type httpDoer interface {
	DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error
}

// RateLimitedClient issues GET requests paced by an AdaptiveLimiter with
// retries. 403 and 404 are soft failures reported as "not found".
type RateLimitedClient struct {
	http        httpDoer
	limiter     *AdaptiveLimiter
	logger      zerolog.Logger
	timeout     time.Duration
	maxAttempts int
	backoffBase time.Duration
	sleep       SleepFunc
}

type ClientOptions struct {
	Timeout     time.Duration
	MaxAttempts int
	BackoffBase time.Duration
}

func NewRateLimitedClient(cfg *config.Config, limiter *AdaptiveLimiter, logger zerolog.Logger) *RateLimitedClient {
	httpClient := &fasthttp.Client{
		Name:                constants.UserAgent,
		MaxConnsPerHost:     16,
		ReadTimeout:         cfg.HTTPTimeout,
		WriteTimeout:        cfg.HTTPTimeout,
		MaxIdleConnDuration: 1 * time.Minute,
	}
	return NewRateLimitedClientWith(httpClient, limiter, logger, ClientOptions{
		Timeout:     cfg.HTTPTimeout,
		MaxAttempts: cfg.HTTPAttempts,
		BackoffBase: cfg.HTTPBackoff,
	})
}

func NewRateLimitedClientWith(doer httpDoer, limiter *AdaptiveLimiter, logger zerolog.Logger, opts ClientOptions) *RateLimitedClient {
	if opts.Timeout <= 0 {
		opts.Timeout = constants.ExternalAPITimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = constants.HTTPMaxAttempts
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = constants.HTTPBackoffBase
	}
	return &RateLimitedClient{
		http:        doer,
		limiter:     limiter,
		logger:      logger,
		timeout:     opts.Timeout,
		maxAttempts: opts.MaxAttempts,
		backoffBase: opts.BackoffBase,
		sleep:       sleepContext,
	}
}

// WithSleep replaces the sleep used for backoff and Retry-After.
func (c *RateLimitedClient) WithSleep(fn SleepFunc) *RateLimitedClient {
	c.sleep = fn
	return c
}

func (c *RateLimitedClient) Limiter() *AdaptiveLimiter { return c.limiter }

type response struct {
	status     int
	retryAfter string
	body       []byte
}

// GetJSON decodes the response into out. found is false for soft failures.
func (c *RateLimitedClient) GetJSON(ctx context.Context, rawURL string, params url.Values, auth string, out any) (bool, error) {
	var (
		lastErr     error
		triedNoAuth bool
	)

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, err
		}

		resp, err := c.do(rawURL, params, auth)
		if err != nil {
			lastErr = err
			c.logger.Warn().Err(err).Str("url", rawURL).Int("attempt", attempt+1).Msg("request error")
			c.limiter.OnError()
			if err := c.backoff(ctx, attempt); err != nil {
				return false, err
			}
			continue
		}

		switch {
		case resp.status == fasthttp.StatusTooManyRequests:
			lastErr = errThrottled
			if ra := parseRetryAfter(resp.retryAfter); ra > 0 {
				c.logger.Debug().Str("url", rawURL).Dur("retry_after", ra).Msg("throttled, honoring Retry-After")
				if err := c.sleep(ctx, min(ra, constants.MaxRetryAfter)); err != nil {
					return false, err
				}
			} else {
				c.limiter.OnThrottle()
				c.logger.Debug().Str("url", rawURL).Dur("delay", c.limiter.Delay()).Msg("throttled")
			}
			continue

		case resp.status == fasthttp.StatusForbidden || resp.status == fasthttp.StatusNotFound:
			c.logger.Warn().
				Str("url", rawURL).
				Int("status", resp.status).
				Str("body", snippet(resp.body)).
				Msg("no data")

			if resp.status == fasthttp.StatusForbidden && auth != "" && !triedNoAuth {
				triedNoAuth = true
				return c.retryWithoutAuth(rawURL, params, out)
			}
			return false, nil

		case resp.status >= 200 && resp.status < 300:
			if err := sonic.Unmarshal(resp.body, out); err != nil {
				lastErr = errors.Wrap(err, "decode response")
				c.logger.Warn().Err(err).Str("url", rawURL).Msg("malformed response body")
				c.limiter.OnError()
				if err := c.backoff(ctx, attempt); err != nil {
					return false, err
				}
				continue
			}
			c.limiter.OnSuccess()
			return true, nil

		default:
			lastErr = errors.Newf("unexpected status %d", resp.status)
			c.logger.Warn().Str("url", rawURL).Int("status", resp.status).Int("attempt", attempt+1).Msg("request failed")
			c.limiter.OnError()
			if err := c.backoff(ctx, attempt); err != nil {
				return false, err
			}
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no attempts made")
	}
	failed := errors.Wrapf(ErrRequestFailed, "GET %s failed after %d attempts: %v", rawURL, c.maxAttempts, lastErr)
	return false, errors.WithSecondaryError(failed, lastErr)
}

// retryWithoutAuth is the single anonymous fallback after a 403.
func (c *RateLimitedClient) retryWithoutAuth(rawURL string, params url.Values, out any) (bool, error) {
	resp, err := c.do(rawURL, params, "")
	if err != nil || resp.status < 200 || resp.status >= 300 {
		ev := c.logger.Warn().Str("url", rawURL)
		if err != nil {
			ev = ev.Err(err)
		} else {
			ev = ev.Int("status", resp.status)
		}
		ev.Msg("anonymous fallback failed")
		return false, nil
	}
	if err := sonic.Unmarshal(resp.body, out); err != nil {
		c.logger.Warn().Err(err).Str("url", rawURL).Msg("malformed anonymous response body")
		return false, nil
	}
	c.limiter.OnSuccess()
	return true, nil
}

func (c *RateLimitedClient) do(rawURL string, params url.Values, auth string) (response, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rawURL)
	if len(params) > 0 {
		req.URI().SetQueryString(params.Encode())
	}
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	req.Header.SetUserAgent(constants.UserAgent)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	if err := c.http.DoTimeout(req, resp, c.timeout); err != nil {
		return response{}, err
	}

	return response{
		status:     resp.StatusCode(),
		retryAfter: string(resp.Header.Peek("Retry-After")),
		body:       append([]byte(nil), resp.Body()...),
	}, nil
}

func (c *RateLimitedClient) backoff(ctx context.Context, attempt int) error {
	if attempt >= c.maxAttempts-1 {
		return nil
	}
	return c.sleep(ctx, c.backoffBase*time.Duration(1<<attempt))
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

func snippet(body []byte) string {
	s := string(body)
	if len(s) > constants.ErrorBodySnippet {
		s = s[:constants.ErrorBodySnippet]
	}
	return strings.ReplaceAll(s, "\n", " ")
}

// getJSON is the typed form of GetJSON. A nil result with a nil error means no data.
func getJSON[T any](ctx context.Context, c *RateLimitedClient, rawURL string, params url.Values, auth string) (*T, error) {
	var result T
	found, err := c.GetJSON(ctx, rawURL, params, auth, &result)
	if err != nil || !found {
		return nil, err
	}
	return &result, nil
}
