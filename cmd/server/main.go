package main

import (
    "compress/gzip"
    "context"
    "encoding/json"
    "errors"
    "io"
    "log/slog"
    "net/http"
    "os"
    "os/signal"
    "strings"
    "sync"
    "syscall"
    "time"

    "github.com/joho/godotenv"

    "pricecompare/internal/app"
    "pricecompare/internal/compare"
    "pricecompare/internal/config"
    "pricecompare/internal/currency"
    "pricecompare/internal/logging"
)

// comparer is the slice of the engine the HTTP layer needs.
type comparer interface {
    CompareItems(ctx context.Context, items []compare.Item, opts compare.Options) (*compare.Result, error)
}

func main() {
    _ = godotenv.Load()

    cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
    if err != nil {
        slog.Error("config", "error", err)
        os.Exit(1)
    }
    log := logging.Init(cfg.Server.LogLevel)

    if cfg.Bitskins.Enabled && cfg.Bitskins.APIKey == "" {
        log.Warn("bitskins enabled but BITSKINS_API_KEY not set; its items will be unavailable")
    }

    engine, closeAll, err := app.Build(cfg, log)
    if err != nil {
        log.Error("build engine", "error", err)
        os.Exit(1)
    }
    defer closeAll()

    mux := http.NewServeMux()
    mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    mux.HandleFunc("/api/compare", func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodPost {
            http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
            return
        }
        handleCompare(w, r, engine, cfg)
    })

    srv := &http.Server{
        Addr:              ":" + cfg.Server.Port,
        Handler:           withJSONHeaders(withGzip(recoverPanic(limitBody(mux)))),
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       15 * time.Second,
        WriteTimeout:      60 * time.Second,
        IdleTimeout:       60 * time.Second,
    }

    go func() {
        log.Info("server listening", "port", cfg.Server.Port)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Error("server", "error", err)
            os.Exit(1)
        }
    }()

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()
    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = srv.Shutdown(shutdownCtx)
}

type compareRequest struct {
    Items          []compare.Item `json:"items"`
    Currency       string         `json:"currency"`
    Mode           string         `json:"mode"`
    AllowLiveFetch *bool          `json:"allow_live_fetch"`
    ForceRefresh   bool           `json:"force_refresh"`
    TTLMinutes     int            `json:"ttl_minutes"`
}

func handleCompare(w http.ResponseWriter, r *http.Request, c comparer, cfg config.Config) {
    var req compareRequest
    dec := json.NewDecoder(r.Body)
    dec.DisallowUnknownFields()
    if err := dec.Decode(&req); err != nil {
        http.Error(w, "invalid JSON body", http.StatusBadRequest)
        return
    }
    if len(req.Items) > 500 {
        http.Error(w, "too many items (max 500)", http.StatusBadRequest)
        return
    }

    allowLive := true
    if req.AllowLiveFetch != nil {
        allowLive = *req.AllowLiveFetch
    }
    ttl := time.Duration(req.TTLMinutes) * time.Minute
    if req.TTLMinutes <= 0 {
        ttl = time.Duration(cfg.Cache.TTLMinutes) * time.Minute
    }
    cur := req.Currency
    if cur == "" {
        cur = cfg.Currency.Display
    }

    result, err := c.CompareItems(r.Context(), req.Items, compare.Options{
        Currency:       cur,
        Mode:           compare.ParseMode(req.Mode),
        AllowLiveFetch: allowLive,
        ForceRefresh:   req.ForceRefresh,
        TTL:            ttl,
    })
    if err != nil {
        switch {
        case errors.Is(err, compare.ErrNoItems), errors.Is(err, currency.ErrUnsupported):
            http.Error(w, err.Error(), http.StatusBadRequest)
        default:
            http.Error(w, "comparison failed", http.StatusBadGateway)
        }
        return
    }

    w.WriteHeader(http.StatusOK)
    enc := json.NewEncoder(w)
    enc.SetEscapeHTML(false)
    _ = enc.Encode(result)
}

func withJSONHeaders(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "application/json; charset=utf-8")
        // Basic CORS for browser usage; adjust as needed.
        w.Header().Set("Access-Control-Allow-Origin", "*")
        w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
        w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
        if r.Method == http.MethodOptions {
            w.WriteHeader(http.StatusNoContent)
            return
        }
        next.ServeHTTP(w, r)
    })
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
    var gzPool = sync.Pool{New: func() any {
        // Prefer best speed to reduce CPU usage since payloads are JSON
        w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
        return w
    }}
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
            next.ServeHTTP(w, r)
            return
        }
        gz := gzPool.Get().(*gzip.Writer)
        gz.Reset(w)
        defer func() {
            _ = gz.Close()
            gz.Reset(io.Discard)
            gzPool.Put(gz)
        }()
        w.Header().Set("Content-Encoding", "gzip")
        w.Header().Add("Vary", "Accept-Encoding")
        gw := gzipResponseWriter{ResponseWriter: w, Writer: gz}
        next.ServeHTTP(gw, r)
    })
}

type gzipResponseWriter struct {
    http.ResponseWriter
    Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
    return g.Writer.Write(b)
}

// limitBody caps request body size to avoid memory abuse.
func limitBody(next http.Handler) http.Handler {
    const maxBody = 1 << 20 // 1MB
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.Method == http.MethodPost && r.Body != nil {
            r.Body = http.MaxBytesReader(w, r.Body, maxBody)
        }
        next.ServeHTTP(w, r)
    })
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if rec := recover(); rec != nil {
                http.Error(w, "internal server error", http.StatusInternalServerError)
            }
        }()
        next.ServeHTTP(w, r)
    })
}
