// Package csfloat prices items through the CSFloat listings search endpoint.
// Listing prices are quoted in integer USD cents.
package csfloat

import (
    "context"
    "encoding/json"
    "fmt"
    "net/url"
    "time"

    "pricecompare/internal/fanout"
    "pricecompare/internal/httpx"
    "pricecompare/internal/market"
)

type Config struct {
    BaseURL string // default https://csfloat.com/api
    APIKey  string // optional; raises the unauthenticated rate limit

    Timeout     time.Duration
    MaxRetries  int
    RetryBase   time.Duration
    Concurrency int // default 3
}

type Adapter struct {
    cfg    Config
    client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Adapter {
    if cfg.BaseURL == "" {
        cfg.BaseURL = "https://csfloat.com/api"
    }
    if cfg.Concurrency <= 0 {
        cfg.Concurrency = 3
    }
    return &Adapter{cfg: cfg, client: hc}
}

func (a *Adapter) Source() market.Source { return market.SourceCSFloat }

func (a *Adapter) Ready() error { return nil }

func (a *Adapter) SearchItemPrice(ctx context.Context, itemKey string, opts market.QueryOptions) (*market.Record, error) {
    u := fmt.Sprintf("%s/v1/listings?market_hash_name=%s&sort_by=lowest_price&limit=5",
        a.cfg.BaseURL, url.QueryEscape(itemKey))

    headers := map[string]string{}
    if a.cfg.APIKey != "" {
        headers["Authorization"] = a.cfg.APIKey
    }
    to := opts.Timeout
    if to <= 0 {
        to = a.cfg.Timeout
    }
    mr := opts.MaxRetries
    if mr <= 0 {
        mr = a.cfg.MaxRetries
    }
    raw, err := a.client.FetchJSON(ctx, u, httpx.FetchOptions{
        Headers:    headers,
        Timeout:    to,
        MaxRetries: mr,
        RetryBase:  a.cfg.RetryBase,
    })
    if err != nil {
        return nil, fmt.Errorf("csfloat listings %q: %w", itemKey, err)
    }

    listings, err := decodeListings(raw)
    if err != nil {
        return nil, fmt.Errorf("csfloat decode %q: %w", itemKey, err)
    }
    now := time.Now().UTC()
    for _, l := range listings {
        // Prices are integer cents under varying keys depending on listing type.
        gross, ok := market.ExtractPrice(l, "USD", true, "price", "min_offer_price", "suggested_price")
        if !ok {
            continue
        }
        listURL := ""
        if id, _ := l["id"].(string); id != "" {
            listURL = "https://csfloat.com/item/" + id
        }
        lraw, _ := json.Marshal(l)
        rec := market.NewRecord(market.SourceCSFloat, itemKey, gross, "USD", listURL, now, market.ConfidenceHigh, lraw)
        return &rec, nil
    }
    return nil, nil
}

// decodeListings tolerates both the bare-array and {"data": [...]} response shapes.
func decodeListings(raw json.RawMessage) ([]map[string]any, error) {
    var list []map[string]any
    if err := json.Unmarshal(raw, &list); err == nil {
        return list, nil
    }
    var wrapped struct {
        Data []map[string]any `json:"data"`
    }
    if err := json.Unmarshal(raw, &wrapped); err != nil {
        return nil, err
    }
    return wrapped.Data, nil
}

func (a *Adapter) BatchGetPrices(ctx context.Context, itemKeys []string, opts market.BatchOptions) (map[string]market.Record, error) {
    keys := market.DedupeKeys(itemKeys)
    conc := opts.Concurrency
    if conc <= 0 {
        conc = a.cfg.Concurrency
    }
    recs, err := fanout.Map(ctx, keys, conc, func(ctx context.Context, key string) (*market.Record, error) {
        rec, err := a.SearchItemPrice(ctx, key, market.QueryOptions{Timeout: opts.Timeout, MaxRetries: opts.MaxRetries})
        if err != nil {
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
