package hiro

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"stacks-dao-reader/internal/pkg/apperrors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Request is one HTTP call to the chain API.
type Request struct {
	Method string
	URL    string
	Body   []byte
}

// Response holds a fully read response. Body is owned by the caller.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport performs a single HTTP attempt.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// FastHTTPTransport implements Transport on a fasthttp client.
type FastHTTPTransport struct {
	client  *fasthttp.Client
	timeout time.Duration
}

// NewFastHTTPTransport creates a transport whose attempts time out after timeout
// or at the context deadline, whichever comes first.
func NewFastHTTPTransport(timeout time.Duration) *FastHTTPTransport {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FastHTTPTransport{
		client:  &fasthttp.Client{Name: "stacks-dao-reader"},
		timeout: timeout,
	}
}

type attemptResult struct {
	resp *Response
	err  error
}

// Do runs the request on a separate goroutine so a cancelled context returns at once.
func (t *FastHTTPTransport) Do(ctx context.Context, r *Request) (*Response, error) {
	timeout := t.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until > 0 && until < timeout {
			timeout = until
		}
	}

	done := make(chan attemptResult, 1)
	go func() {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(r.URL)
		req.Header.SetMethod(r.Method)
		req.Header.SetContentType("application/json")
		req.Header.Set(fasthttp.HeaderAccept, "application/json")
		req.Header.Set(fasthttp.HeaderAcceptEncoding, "gzip")
		if len(r.Body) > 0 {
			req.SetBody(r.Body)
		}

		if err := t.client.DoTimeout(req, resp, timeout); err != nil {
			done <- attemptResult{err: err}
			return
		}

		var body []byte
		if bytes.EqualFold(resp.Header.Peek(fasthttp.HeaderContentEncoding), []byte("gzip")) {
			unzipped, err := resp.BodyGunzip()
			if err != nil {
				done <- attemptResult{err: fmt.Errorf("failed to decompress response: %w", err)}
				return
			}
			body = unzipped
		} else {
			body = append([]byte(nil), resp.Body()...)
		}
		done <- attemptResult{resp: &Response{StatusCode: resp.StatusCode(), Body: body}}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.resp, res.err
	}
}

// RetryPolicy configures retries of transient failures.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy retries up to 3 times, waiting 1s, 2s and 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Client sends requests with retry on 429, 5xx and transport errors.
type Client struct {
	transport Transport
	policy    RetryPolicy
	sleep     Sleeper
	logger    *zap.Logger

	rps      rate.Limit
	burst    int
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Option customizes a Client.
type Option func(*Client)

// WithRateLimit paces requests per API host. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.rps = rate.Limit(rps)
		c.burst = burst
	}
}

// WithSleeper replaces the backoff wait, for tests.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		c.sleep = s
	}
}

// NewClient creates a retrying client over transport.
func NewClient(transport Transport, policy RetryPolicy, logger *zap.Logger, opts ...Option) *Client {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	c := &Client{
		transport: transport,
		policy:    policy,
		sleep:     sleepContext,
		logger:    logger.Named("HiroClient"),
		limiters:  make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send performs req, retrying transient failures with exponential backoff.
// When retries run out it returns the last 429/5xx response, or the last transport error.
// Other non-2xx responses are returned immediately for the caller to interpret.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	remaining := c.policy.MaxRetries
	for {
		if err := c.waitLimiter(ctx, req.URL); err != nil {
			return nil, contextError(ctx, err)
		}

		resp, err := c.transport.Do(ctx, req)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, contextError(ctx, ctxErr)
		}
		if err != nil {
			err = fmt.Errorf("%w: %s %s: %w", apperrors.ErrExternalServiceFailure, req.Method, req.URL, err)
		}

		if !shouldRetry(resp, err) || remaining <= 0 {
			if err != nil && c.policy.MaxRetries > 0 {
				c.logger.Warn("Request failed after retries", zap.String("url", req.URL), zap.Error(err))
			}
			return resp, err
		}

		delay := c.policy.BaseDelay * time.Duration(1<<(c.policy.MaxRetries-remaining))
		fields := []zap.Field{
			zap.String("method", req.Method),
			zap.String("url", req.URL),
			zap.Int("retriesLeft", remaining),
			zap.Duration("delay", delay),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		} else {
			fields = append(fields, zap.Int("statusCode", resp.StatusCode))
		}
		c.logger.Debug("Retrying request", fields...)

		if err := c.sleep(ctx, delay); err != nil {
			return nil, contextError(ctx, err)
		}
		remaining--
	}
}

func shouldRetry(resp *Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode == fasthttp.StatusTooManyRequests || resp.StatusCode >= 500
}

func (c *Client) waitLimiter(ctx context.Context, rawURL string) error {
	if c.rps <= 0 {
		return nil
	}
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}

	c.mu.Lock()
	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(c.rps, c.burst)
		c.limiters[host] = l
	}
	c.mu.Unlock()

	return l.Wait(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func contextError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", apperrors.ErrTimeout, err)
	}
	return err
}
