// Package cachestore persists the latest price row per (market, item key).
package cachestore

import (
    "context"
    "encoding/json"
    "time"
)

// Row is the persisted form of a price record. Only the most recently fetched
// row per (Market, MarketHashName) is retained.
type Row struct {
    Market         string          `json:"market"`
    MarketHashName string          `json:"market_hash_name"`
    Currency       string          `json:"currency"`
    GrossPrice     float64         `json:"gross_price"`
    NetPrice       float64         `json:"net_price"`
    URL            string          `json:"url,omitempty"`
    FetchedAt      time.Time       `json:"fetched_at"`
    Raw            json.RawMessage `json:"raw,omitempty"`
}

// Store is the cache contract the comparison engine consumes.
type Store interface {
    // GetLatestByMarketHashNames returns, per market then item key, the single
    // most recently fetched row. Missing pairs are simply absent.
    GetLatestByMarketHashNames(ctx context.Context, names []string, markets []string) (map[string]map[string]Row, error)
    // UpsertRows writes rows idempotently on (market, market_hash_name) and
    // returns the number of rows written.
    UpsertRows(ctx context.Context, rows []Row) (int, error)
}
