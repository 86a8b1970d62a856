// Package skinport prices items through the Skinport public items feed.
// The API settles only in USD and EUR; other display currencies are converted
// after fetch by the engine. One call returns the whole catalog, so the
// adapter caches the feed per settlement currency and coalesces concurrent
// refreshes.
package skinport

import (
    "context"
    "encoding/json"
    "fmt"
    "sync"
    "time"

    "golang.org/x/sync/singleflight"

    "pricecompare/internal/httpx"
    "pricecompare/internal/market"
)

type Config struct {
    BaseURL string // default https://api.skinport.com
    AppID   int    // default 730

    Timeout    time.Duration
    MaxRetries int
    RetryBase  time.Duration

    // FeedTTL caches the full items payload for this long. Defaults to 30s;
    // this protects Skinport's aggressive endpoint rate limit and is distinct
    // from the engine's row-level TTL.
    FeedTTL time.Duration
}

type feedEntry struct {
    items map[string]map[string]any
    until time.Time
}

type Adapter struct {
    cfg    Config
    client *httpx.Client

    mu    sync.RWMutex
    feeds map[string]feedEntry // key: settlement currency

    sf singleflight.Group
}

func New(cfg Config, hc *httpx.Client) *Adapter {
    if cfg.BaseURL == "" {
        cfg.BaseURL = "https://api.skinport.com"
    }
    if cfg.AppID == 0 {
        cfg.AppID = 730
    }
    if cfg.FeedTTL <= 0 {
        cfg.FeedTTL = 30 * time.Second
    }
    return &Adapter{cfg: cfg, client: hc, feeds: make(map[string]feedEntry, 2)}
}

func (a *Adapter) Source() market.Source { return market.SourceSkinport }

// Ready always succeeds; the items feed is public.
func (a *Adapter) Ready() error { return nil }

// settleCurrency maps a display currency onto one of the two currencies the
// API can settle in.
func settleCurrency(display string) string {
    if display == "EUR" {
        return "EUR"
    }
    return "USD"
}

func (a *Adapter) SearchItemPrice(ctx context.Context, itemKey string, opts market.QueryOptions) (*market.Record, error) {
    recs, err := a.lookup(ctx, []string{itemKey}, "", opts.Timeout, opts.MaxRetries)
    if err != nil {
        return nil, err
    }
    if rec, ok := recs[itemKey]; ok {
        return &rec, nil
    }
    return nil, nil
}

func (a *Adapter) BatchGetPrices(ctx context.Context, itemKeys []string, opts market.BatchOptions) (map[string]market.Record, error) {
    return a.lookup(ctx, market.DedupeKeys(itemKeys), opts.Currency, opts.Timeout, opts.MaxRetries)
}

func (a *Adapter) lookup(ctx context.Context, keys []string, displayCurrency string, timeout time.Duration, maxRetries int) (map[string]market.Record, error) {
    cur := settleCurrency(displayCurrency)
    items, err := a.feed(ctx, cur, timeout, maxRetries)
    if err != nil {
        return nil, err
    }

    now := time.Now().UTC()
    out := make(map[string]market.Record, len(keys))
    for _, key := range keys {
        it, ok := items[key]
        if !ok {
            continue
        }
        gross, ok := market.ExtractPrice(it, cur, false, "min_price", "suggested_price", "median_price")
        if !ok {
            continue
        }
        pageURL, _ := it["item_page"].(string)
        raw, _ := json.Marshal(it)
        out[key] = market.NewRecord(market.SourceSkinport, key, gross, cur, pageURL, now, market.ConfidenceHigh, raw)
    }
    return out, nil
}

// feed returns the cached catalog for a settlement currency, refreshing it at
// most once per TTL window across concurrent callers.
func (a *Adapter) feed(ctx context.Context, currency string, timeout time.Duration, maxRetries int) (map[string]map[string]any, error) {
    now := time.Now()
    a.mu.RLock()
    fe, ok := a.feeds[currency]
    a.mu.RUnlock()
    if ok && now.Before(fe.until) {
        return fe.items, nil
    }

    v, err, _ := a.sf.Do(currency, func() (any, error) {
        items, err := a.fetchFeed(ctx, currency, timeout, maxRetries)
        if err != nil {
            return nil, err
        }
        entry := feedEntry{items: items, until: time.Now().Add(a.cfg.FeedTTL)}
        a.mu.Lock()
        a.feeds[currency] = entry
        a.mu.Unlock()
        return items, nil
    })
    if err != nil {
        // A stale feed beats no feed.
        if ok {
            return fe.items, nil
        }
        return nil, err
    }
    return v.(map[string]map[string]any), nil
}

func (a *Adapter) fetchFeed(ctx context.Context, currency string, timeout time.Duration, maxRetries int) (map[string]map[string]any, error) {
    u := fmt.Sprintf("%s/v1/items?app_id=%d&currency=%s", a.cfg.BaseURL, a.cfg.AppID, currency)
    to := timeout
    if to <= 0 {
        to = a.cfg.Timeout
    }
    mr := maxRetries
    if mr <= 0 {
        mr = a.cfg.MaxRetries
    }
    raw, err := a.client.FetchJSON(ctx, u, httpx.FetchOptions{
        Timeout:    to,
        MaxRetries: mr,
        RetryBase:  a.cfg.RetryBase,
    })
    if err != nil {
        return nil, fmt.Errorf("skinport items feed: %w", err)
    }
    var list []map[string]any
    if err := json.Unmarshal(raw, &list); err != nil {
        return nil, fmt.Errorf("skinport decode feed: %w", err)
    }
    items := make(map[string]map[string]any, len(list))
    for _, it := range list {
        name, _ := it["market_hash_name"].(string)
        if name == "" {
            continue
        }
        items[name] = it
    }
    return items, nil
}
