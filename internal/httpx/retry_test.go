package httpx_test

import (
    "bytes"
    "errors"
    "io"
    "net/http"
    "net/http/httptest"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/require"
    "go.uber.org/mock/gomock"

    "pricecompare/internal/httpx"
)

func TestFetchJSON_RetryAfterIsFloorOnBackoff(t *testing.T) {
    t.Parallel()

    var calls atomic.Int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if calls.Add(1) == 1 {
            w.Header().Set("Retry-After", "1")
            w.WriteHeader(http.StatusTooManyRequests)
            return
        }
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte(`{"ok":true}`))
    }))
    defer srv.Close()

    c := httpx.New(5 * time.Second)
    start := time.Now()
    body, err := c.FetchJSON(t.Context(), srv.URL, httpx.FetchOptions{
        MaxRetries: 3,
        RetryBase:  10 * time.Millisecond, // exponential part is tiny; the header must dominate
    })
    elapsed := time.Since(start)

    require.NoError(t, err)
    require.JSONEq(t, `{"ok":true}`, string(body))
    require.EqualValues(t, 2, calls.Load())
    require.GreaterOrEqual(t, elapsed, time.Second)
}

func TestFetchJSON_PermanentStatusDoesNotRetry(t *testing.T) {
    t.Parallel()

    var calls atomic.Int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        calls.Add(1)
        http.Error(w, "not found", http.StatusNotFound)
    }))
    defer srv.Close()

    c := httpx.New(5 * time.Second)
    _, err := c.FetchJSON(t.Context(), srv.URL, httpx.FetchOptions{MaxRetries: 3, RetryBase: time.Millisecond})

    require.Error(t, err)
    var se *httpx.StatusError
    require.ErrorAs(t, err, &se)
    require.Equal(t, http.StatusNotFound, se.Code)
    require.EqualValues(t, 1, calls.Load())
}

func TestFetchJSON_TimeoutIsTransient(t *testing.T) {
    t.Parallel()

    var calls atomic.Int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if calls.Add(1) == 1 {
            time.Sleep(200 * time.Millisecond)
        }
        _, _ = w.Write([]byte(`{"ok":true}`))
    }))
    defer srv.Close()

    c := httpx.New(5 * time.Second)
    body, err := c.FetchJSON(t.Context(), srv.URL, httpx.FetchOptions{
        Timeout:    50 * time.Millisecond,
        MaxRetries: 2,
        RetryBase:  time.Millisecond,
    })

    require.NoError(t, err)
    require.JSONEq(t, `{"ok":true}`, string(body))
    require.EqualValues(t, 2, calls.Load())
}

func TestFetchJSON_ExhaustsTransientBudget(t *testing.T) {
    t.Parallel()

    // Arrange: a transport that always answers 503.
    ctrl := gomock.NewController(t)
    doer := NewMockDoer(ctrl)
    doer.EXPECT().
        Do(gomock.Any()).
        DoAndReturn(func(req *http.Request) (*http.Response, error) {
            return &http.Response{
                StatusCode: http.StatusServiceUnavailable,
                Body:       io.NopCloser(bytes.NewReader(nil)),
                Header:     http.Header{},
            }, nil
        }).
        Times(3)

    c := &httpx.Client{HTTP: doer}
    _, err := c.FetchJSON(t.Context(), "http://upstream.invalid/prices", httpx.FetchOptions{
        MaxRetries: 3,
        RetryBase:  time.Millisecond,
    })

    require.Error(t, err)
    var se *httpx.StatusError
    require.ErrorAs(t, err, &se)
    require.Equal(t, http.StatusServiceUnavailable, se.Code)
}

func TestFetchJSON_SendsHeadersAndBody(t *testing.T) {
    t.Parallel()

    ctrl := gomock.NewController(t)
    doer := NewMockDoer(ctrl)
    doer.EXPECT().
        Do(gomock.Any()).
        DoAndReturn(func(req *http.Request) (*http.Response, error) {
            require.Equal(t, http.MethodPost, req.Method)
            require.Equal(t, "Bearer k", req.Header.Get("Authorization"))
            require.Equal(t, "application/json", req.Header.Get("Content-Type"))
            b, _ := io.ReadAll(req.Body)
            require.JSONEq(t, `{"q":"x"}`, string(b))
            return &http.Response{
                StatusCode: http.StatusOK,
                Body:       io.NopCloser(bytes.NewReader([]byte(`{}`))),
                Header:     http.Header{},
            }, nil
        }).
        Times(1)

    c := &httpx.Client{HTTP: doer}
    _, err := c.FetchJSON(t.Context(), "http://upstream.invalid/search", httpx.FetchOptions{
        Method:  http.MethodPost,
        Headers: map[string]string{"Authorization": "Bearer k"},
        Body:    []byte(`{"q":"x"}`),
    })
    require.NoError(t, err)
}

func TestIsTransient(t *testing.T) {
    t.Parallel()

    require.True(t, httpx.IsTransient(&httpx.StatusError{Code: 429}))
    require.True(t, httpx.IsTransient(&httpx.StatusError{Code: 502}))
    require.False(t, httpx.IsTransient(&httpx.StatusError{Code: 403}))
    require.False(t, httpx.IsTransient(&httpx.PermanentError{Err: errors.New("bad url")}))
    require.True(t, httpx.IsTransient(errors.New("connection reset")))
}
