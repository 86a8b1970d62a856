// Package steam prices items through the Steam community market's
// priceoverview endpoint. Steam is the reference source: the comparison
// engine's "steam-equivalent" pricing mode and the caller-supplied fallback
// price both anchor on it.
package steam

import (
    "context"
    "encoding/json"
    "fmt"
    "net/url"
    "time"

    "golang.org/x/time/rate"

    "pricecompare/internal/fanout"
    "pricecompare/internal/httpx"
    "pricecompare/internal/market"
)

type Config struct {
    BaseURL  string // default https://steamcommunity.com/market
    AppID    int    // default 730
    Currency string // preferred quote currency; unknown codes fall back to USD

    Timeout     time.Duration
    MaxRetries  int
    RetryBase   time.Duration
    Concurrency int // default 2; priceoverview is rate sensitive

    // MaxRequestsPerMinute adds shared token-bucket pacing when > 0.
    MaxRequestsPerMinute int
    Burst                int
}

type Adapter struct {
    cfg     Config
    client  *httpx.Client
    limiter *rate.Limiter
}

func New(cfg Config, hc *httpx.Client) *Adapter {
    if cfg.BaseURL == "" {
        cfg.BaseURL = "https://steamcommunity.com/market"
    }
    if cfg.AppID == 0 {
        cfg.AppID = 730
    }
    if cfg.Currency == "" {
        cfg.Currency = "USD"
    }
    if cfg.Concurrency <= 0 {
        cfg.Concurrency = 2
    }
    a := &Adapter{cfg: cfg, client: hc}
    if cfg.MaxRequestsPerMinute > 0 {
        burst := cfg.Burst
        if burst <= 0 {
            burst = 1
        }
        a.limiter = rate.NewLimiter(rate.Limit(float64(cfg.MaxRequestsPerMinute)/60.0), burst)
    }
    return a
}

func (a *Adapter) Source() market.Source { return market.SourceSteam }

// Ready always succeeds; priceoverview needs no credential.
func (a *Adapter) Ready() error { return nil }

// currencyIDs maps ISO codes to Steam wallet currency ids. Steam quotes in the
// requested wallet currency, so no post-fetch conversion is needed for these.
var currencyIDs = map[string]int{
    "USD": 1,
    "GBP": 2,
    "EUR": 3,
    "BRL": 7,
    "CNY": 23,
    "CAD": 20,
    "AUD": 21,
    "PLN": 6,
}

func (a *Adapter) quoteCurrency(preferred string) (string, int) {
    if id, ok := currencyIDs[preferred]; ok {
        return preferred, id
    }
    if id, ok := currencyIDs[a.cfg.Currency]; ok {
        return a.cfg.Currency, id
    }
    return "USD", 1
}

func (a *Adapter) SearchItemPrice(ctx context.Context, itemKey string, opts market.QueryOptions) (*market.Record, error) {
    return a.search(ctx, itemKey, a.cfg.Currency, opts.Timeout, opts.MaxRetries)
}

func (a *Adapter) search(ctx context.Context, itemKey, currency string, timeout time.Duration, maxRetries int) (*market.Record, error) {
    cur, curID := a.quoteCurrency(currency)
    u := fmt.Sprintf("%s/priceoverview/?appid=%d&currency=%d&market_hash_name=%s",
        a.cfg.BaseURL, a.cfg.AppID, curID, url.QueryEscape(itemKey))

    raw, err := a.client.FetchJSON(ctx, u, httpx.FetchOptions{
        Timeout:    pick(timeout, a.cfg.Timeout),
        MaxRetries: pickInt(maxRetries, a.cfg.MaxRetries),
        RetryBase:  a.cfg.RetryBase,
        Limiter:    a.limiter,
    })
    if err != nil {
        return nil, fmt.Errorf("steam priceoverview %q: %w", itemKey, err)
    }

    var payload map[string]any
    if err := json.Unmarshal(raw, &payload); err != nil {
        return nil, fmt.Errorf("steam decode %q: %w", itemKey, err)
    }
    if ok, _ := payload["success"].(bool); !ok {
        return nil, nil
    }
    // Price strings arrive localized ("$18.50", "18,50€"); the extractor
    // routes them through ParsePrice.
    gross, ok := market.ExtractPrice(payload, cur, false, "lowest_price", "median_price")
    if !ok {
        return nil, nil
    }
    listURL := fmt.Sprintf("https://steamcommunity.com/market/listings/%d/%s", a.cfg.AppID, url.PathEscape(itemKey))
    rec := market.NewRecord(market.SourceSteam, itemKey, gross, cur, listURL, time.Now().UTC(), market.ConfidenceHigh, raw)
    return &rec, nil
}

func (a *Adapter) BatchGetPrices(ctx context.Context, itemKeys []string, opts market.BatchOptions) (map[string]market.Record, error) {
    keys := market.DedupeKeys(itemKeys)
    conc := opts.Concurrency
    if conc <= 0 {
        conc = a.cfg.Concurrency
    }
    recs, err := fanout.Map(ctx, keys, conc, func(ctx context.Context, key string) (*market.Record, error) {
        rec, err := a.search(ctx, key, opts.Currency, opts.Timeout, opts.MaxRetries)
        if err != nil {
            // One bad item must not poison the batch.
            return nil, nil
        }
        return rec, nil
    })
    if err != nil {
        return nil, err
    }
    out := make(map[string]market.Record, len(keys))
    for _, r := range recs {
        if r != nil {
            out[r.ItemKey] = *r
        }
    }
    return out, nil
}

func pick(v, def time.Duration) time.Duration {
    if v > 0 {
        return v
    }
    return def
}

func pickInt(v, def int) int {
    if v > 0 {
        return v
    }
    return def
}
