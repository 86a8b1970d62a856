package httpx

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "math/rand"
    "net/http"
    "strconv"
    "time"

    "golang.org/x/time/rate"
)

// Defaults applied by FetchJSON when the corresponding option is zero.
const (
    DefaultTimeout    = 10 * time.Second
    DefaultMaxRetries = 3
    DefaultRetryBase  = 300 * time.Millisecond
)

// FetchOptions tune one FetchJSON call.
type FetchOptions struct {
    Method  string
    Headers map[string]string
    Body    []byte

    // Timeout bounds each individual attempt; a timed-out attempt counts as
    // transient and may be retried.
    Timeout time.Duration
    // MaxRetries is the total attempt budget, not the number of re-tries.
    MaxRetries int
    RetryBase  time.Duration

    // Limiter, when set, gates every attempt (shared token-bucket pacing).
    Limiter *rate.Limiter
    // Pace, when set, is called before every attempt. The bidding-marketplace
    // adapter threads its serialized min-gap gate through here.
    Pace func(context.Context) error
}

// StatusError is a non-2xx response.
type StatusError struct {
    Code       int
    Body       string
    RetryAfter time.Duration
}

func (e *StatusError) Error() string {
    return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
    switch e.Code {
    case http.StatusTooManyRequests,
        http.StatusInternalServerError,
        http.StatusBadGateway,
        http.StatusServiceUnavailable,
        http.StatusGatewayTimeout:
        return true
    }
    return false
}

// IsTransient classifies an attempt failure. Timeouts and transport errors are
// transient; non-2xx statuses follow StatusError.Transient.
func IsTransient(err error) bool {
    var se *StatusError
    if errors.As(err, &se) {
        return se.Transient()
    }
    var pe *PermanentError
    if errors.As(err, &pe) {
        return false
    }
    if errors.Is(err, context.Canceled) {
        return false
    }
    // Timeouts and connection-level failures.
    return true
}

// FetchJSON issues one logical HTTP call, retrying transient failures with
// exponential backoff plus jitter. A server-supplied Retry-After header acts
// as a floor on the wait. Permanent failures (other 4xx, malformed request)
// fail immediately.
func (c *Client) FetchJSON(ctx context.Context, url string, opts FetchOptions) (json.RawMessage, error) {
    if opts.Method == "" {
        opts.Method = http.MethodGet
    }
    if opts.Timeout <= 0 {
        opts.Timeout = DefaultTimeout
    }
    if opts.MaxRetries <= 0 {
        opts.MaxRetries = DefaultMaxRetries
    }
    if opts.RetryBase <= 0 {
        opts.RetryBase = DefaultRetryBase
    }

    var lastErr error
    for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
        if opts.Limiter != nil {
            if err := opts.Limiter.Wait(ctx); err != nil {
                return nil, err
            }
        }
        if opts.Pace != nil {
            if err := opts.Pace(ctx); err != nil {
                return nil, err
            }
        }

        body, err := c.attempt(ctx, url, opts)
        if err == nil {
            return body, nil
        }
        if ctx.Err() != nil {
            return nil, ctx.Err()
        }
        if !IsTransient(err) {
            return nil, err
        }
        lastErr = err
        if attempt == opts.MaxRetries {
            break
        }

        delay := backoffDelay(opts.RetryBase, attempt, retryAfterOf(err))
        timer := time.NewTimer(delay)
        select {
        case <-ctx.Done():
            timer.Stop()
            return nil, ctx.Err()
        case <-timer.C:
        }
    }
    return nil, fmt.Errorf("%s %s: giving up after %d attempts: %w", opts.Method, url, opts.MaxRetries, lastErr)
}

func (c *Client) attempt(ctx context.Context, url string, opts FetchOptions) (json.RawMessage, error) {
    attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
    defer cancel()

    var rdr io.Reader
    if len(opts.Body) > 0 {
        rdr = bytes.NewReader(opts.Body)
    }
    req, err := http.NewRequestWithContext(attemptCtx, opts.Method, url, rdr)
    if err != nil {
        return nil, &PermanentError{Err: err}
    }
    if len(opts.Body) > 0 {
        req.Header.Set("Content-Type", "application/json")
    }
    req.Header.Set("Accept", "application/json")
    for k, v := range opts.Headers {
        req.Header.Set(k, v)
    }

    resp, err := c.do(req)
    if err != nil {
        if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
            return nil, fmt.Errorf("request timed out after %s: %w", opts.Timeout, err)
        }
        return nil, err
    }
    defer resp.Body.Close()

    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
        return nil, &StatusError{
            Code:       resp.StatusCode,
            Body:       string(b),
            RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
        }
    }
    b, err := io.ReadAll(resp.Body)
    if err != nil {
        return nil, fmt.Errorf("read body: %w", err)
    }
    return json.RawMessage(b), nil
}

// PermanentError marks a failure that must not be retried.
type PermanentError struct{ Err error }

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// backoffDelay is base*2^(attempt-1) plus up to base of jitter, floored by any
// server-supplied Retry-After.
func backoffDelay(base time.Duration, attempt int, retryAfter time.Duration) time.Duration {
    d := base<<(attempt-1) + time.Duration(rand.Int63n(int64(base)))
    if retryAfter > d {
        return retryAfter
    }
    return d
}

func retryAfterOf(err error) time.Duration {
    var se *StatusError
    if errors.As(err, &se) {
        return se.RetryAfter
    }
    return 0
}

func parseRetryAfter(v string) time.Duration {
    if v == "" {
        return 0
    }
    if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
        return time.Duration(secs) * time.Second
    }
    return 0
}
