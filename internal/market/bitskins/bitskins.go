// Package bitskins prices items through the BitSkins market search endpoint.
//
// BitSkins needs an API key and is fussy about how it is presented: several
// header variants are in the wild, so each request is tried across them until
// one is accepted. The platform rate limit is global, not per call, so every
// outbound request is serialized through a single min-gap pacer gate shared by
// all callers of this adapter.
package bitskins

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "time"

    "pricecompare/internal/fanout"
    "pricecompare/internal/httpx"
    "pricecompare/internal/market"
    "pricecompare/internal/pacer"
)

type Config struct {
    BaseURL string // default https://api.bitskins.com
    APIKey  string // required
    AppID   int    // default 730

    Timeout     time.Duration
    MaxRetries  int
    RetryBase   time.Duration
    Concurrency int // default 2; the pacer serializes the actual wire calls

    // MinGap is the platform-wide minimum spacing between requests.
    // Defaults to 500ms.
    MinGap time.Duration
}

type Adapter struct {
    cfg    Config
    client *httpx.Client
    gate   *pacer.Gate
}

func New(cfg Config, hc *httpx.Client) *Adapter {
    if cfg.BaseURL == "" {
        cfg.BaseURL = "https://api.bitskins.com"
    }
    if cfg.AppID == 0 {
        cfg.AppID = 730
    }
    if cfg.Concurrency <= 0 {
        cfg.Concurrency = 2
    }
    if cfg.MinGap <= 0 {
        cfg.MinGap = 500 * time.Millisecond
    }
    return &Adapter{cfg: cfg, client: hc, gate: pacer.New(cfg.MinGap)}
}

// Close releases the pacer gate.
func (a *Adapter) Close() { a.gate.Close() }

func (a *Adapter) Source() market.Source { return market.SourceBitskins }

func (a *Adapter) Ready() error {
    if a.cfg.APIKey == "" {
        return market.ErrMissingCredential
    }
    return nil
}

// authVariants are the header spellings tried in sequence: plain, Bearer, and
// the two vendor header names.
func authVariants(key string) []map[string]string {
    return []map[string]string{
        {"Authorization": key},
        {"Authorization": "Bearer " + key},
        {"x-apikey": key},
        {"X-API-KEY": key},
    }
}

func (a *Adapter) SearchItemPrice(ctx context.Context, itemKey string, opts market.QueryOptions) (*market.Record, error) {
    if err := a.Ready(); err != nil {
        return nil, err
    }
    body, _ := json.Marshal(map[string]any{
        "where": map[string]any{"skin_name": itemKey},
        "order": []map[string]string{{"field": "price", "order": "ASC"}},
        "limit": 5,
    })
    u := fmt.Sprintf("%s/market/search/%d", a.cfg.BaseURL, a.cfg.AppID)

    to := opts.Timeout
    if to <= 0 {
        to = a.cfg.Timeout
    }
    mr := opts.MaxRetries
    if mr <= 0 {
        mr = a.cfg.MaxRetries
    }

    var raw json.RawMessage
    var err error
    for _, headers := range authVariants(a.cfg.APIKey) {
        raw, err = a.client.FetchJSON(ctx, u, httpx.FetchOptions{
            Method:     http.MethodPost,
            Headers:    headers,
            Body:       body,
            Timeout:    to,
            MaxRetries: mr,
            RetryBase:  a.cfg.RetryBase,
            Pace:       a.gate.Wait,
        })
        if err == nil {
            break
        }
        if !isAuthRejection(err) {
            return nil, fmt.Errorf("bitskins search %q: %w", itemKey, err)
        }
    }
    if err != nil {
        // Every variant came back 401/403: unavailable, not an error.
        return nil, nil
    }

    listings, err := decodeListings(raw)
    if err != nil {
        return nil, fmt.Errorf("bitskins decode %q: %w", itemKey, err)
    }
    now := time.Now().UTC()
    for _, l := range listings {
        // Winning-bid style quotes in integer cents under shifting keys.
        gross, ok := market.ExtractPrice(l, "USD", true, "price", "price_min", "suggested_price")
        if !ok {
            continue
        }
        listURL := ""
        if id, _ := l["id"].(string); id != "" {
            listURL = fmt.Sprintf("https://bitskins.com/item/%d/%s", a.cfg.AppID, id)
        }
        lraw, _ := json.Marshal(l)
        rec := market.NewRecord(market.SourceBitskins, itemKey, gross, "USD", listURL, now, market.ConfidenceMedium, lraw)
        return &rec, nil
    }
    return nil, nil
}

func isAuthRejection(err error) bool {
    var se *httpx.StatusError
    if errors.As(err, &se) {
        return se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden
    }
    return false
}

func decodeListings(raw json.RawMessage) ([]map[string]any, error) {
    var wrapped struct {
        List []map[string]any `json:"list"`
    }
    if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.List != nil {
        return wrapped.List, nil
    }
    var list []map[string]any
    if err := json.Unmarshal(raw, &list); err != nil {
        return nil, err
    }
    return list, nil
}

func (a *Adapter) BatchGetPrices(ctx context.Context, itemKeys []string, opts market.BatchOptions) (map[string]market.Record, error) {
    if err := a.Ready(); err != nil {
        return nil, err
    }
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
