// Package compare merges live, cached and caller-supplied prices from all
// marketplaces into one reconciled, currency-normalized decision per item.
// It is the only component exposed to the rest of the application.
package compare

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "sync"
    "time"

    "pricecompare/internal/cachestore"
    "pricecompare/internal/currency"
    "pricecompare/internal/market"
)

// ErrNoItems is returned when the caller supplies an empty item list.
var ErrNoItems = errors.New("no items to compare")

// Engine orchestrates staleness detection, live refetch, cache merge,
// currency conversion and price-mode selection. Each call is stateless apart
// from the cache store.
type Engine struct {
    adapters map[market.Source]market.Adapter
    order    []market.Source
    store    cachestore.Store
    fx       currency.Converter
    log      *slog.Logger

    now func() time.Time

    // persistWG tracks fire-and-forget cache writes so tests can drain them.
    persistWG sync.WaitGroup
}

func New(adapters []market.Adapter, store cachestore.Store, fx currency.Converter, log *slog.Logger) *Engine {
    if log == nil {
        log = slog.Default()
    }
    bye := make(map[market.Source]market.Adapter, len(adapters))
    for _, a := range adapters {
        bye[a.Source()] = a
    }
    return &Engine{
        adapters: bye,
        order:    market.Sources(),
        store:    store,
        fx:       fx,
        log:      log,
        now:      time.Now,
    }
}

// CompareItems prices every item across all sources and selects one record
// per item under the requested pricing mode. A single source failing degrades
// that source to unavailable; only malformed caller input is an error.
func (e *Engine) CompareItems(ctx context.Context, items []Item, opts Options) (*Result, error) {
    if len(items) == 0 {
        return nil, ErrNoItems
    }
    cur, err := e.fx.Resolve(opts.Currency)
    if err != nil {
        return nil, fmt.Errorf("resolve display currency: %w", err)
    }
    mode := ParseMode(string(opts.Mode))
    ttl := opts.TTL
    if ttl <= 0 {
        ttl = DefaultTTL
    }

    deduped := dedupeItems(items)
    keys := make([]string, len(deduped))
    for i, it := range deduped {
        keys[i] = it.Key
    }

    cached := e.readCache(ctx, keys)
    live := e.fetchStale(ctx, keys, cached, cur, ttl, opts)

    now := e.now().UTC()
    result := &Result{
        Currency:    cur,
        Mode:        mode,
        Items:       make([]ItemResult, 0, len(deduped)),
        Summary:     Summary{TotalsByMode: map[Mode]float64{}},
        GeneratedAt: now,
    }
    for _, it := range deduped {
        ir := e.buildItem(it, cur, mode, live, cached)
        for _, m := range allModes() {
            result.Summary.TotalsByMode[m] = market.Round2(result.Summary.TotalsByMode[m] + ir.TotalsByMode[m])
        }
        if ir.Selected != nil {
            result.Summary.PricedItems++
        } else {
            result.Summary.UnavailableItems++
        }
        result.Items = append(result.Items, ir)
    }
    return result, nil
}

// dedupeItems collapses duplicate keys: the first occurrence keeps its
// fallback fields, quantities accumulate.
func dedupeItems(items []Item) []Item {
    idx := make(map[string]int, len(items))
    out := make([]Item, 0, len(items))
    for _, it := range items {
        if i, dup := idx[it.Key]; dup {
            out[i].Quantity += it.Quantity
            continue
        }
        idx[it.Key] = len(out)
        out = append(out, it)
    }
    return out
}

// readCache fetches cached rows for every (source, key) pair. A failing cache
// read degrades to a full miss rather than failing the comparison.
func (e *Engine) readCache(ctx context.Context, keys []string) map[string]map[string]cachestore.Row {
    markets := make([]string, len(e.order))
    for i, s := range e.order {
        markets[i] = string(s)
    }
    cached, err := e.store.GetLatestByMarketHashNames(ctx, keys, markets)
    if err != nil {
        e.log.Warn("cache read failed, treating all items as stale", "error", err)
        return map[string]map[string]cachestore.Row{}
    }
    return cached
}

// fetchStale fans live fetches out per source for the items whose cached rows
// are missing, expired or force-refreshed, then persists fresh rows
// best-effort in the background.
func (e *Engine) fetchStale(ctx context.Context, keys []string, cached map[string]map[string]cachestore.Row, cur string, ttl time.Duration, opts Options) map[market.Source]map[string]market.Record {
    live := make(map[market.Source]map[string]market.Record, len(e.order))
    if !opts.AllowLiveFetch {
        return live
    }
    now := e.now()

    var wg sync.WaitGroup
    var mu sync.Mutex
    for _, src := range e.order {
        adapter, ok := e.adapters[src]
        if !ok {
            continue
        }
        stale := staleKeys(keys, cached[string(src)], now, ttl, opts.ForceRefresh)
        if len(stale) == 0 {
            continue
        }
        if err := adapter.Ready(); err != nil {
            e.log.Debug("skipping source", "source", src, "reason", err)
            continue
        }
        wg.Add(1)
        go func(src market.Source, adapter market.Adapter, stale []string) {
            defer wg.Done()
            recs, err := adapter.BatchGetPrices(ctx, stale, market.BatchOptions{Currency: cur})
            if err != nil {
                e.log.Warn("live fetch failed", "source", src, "items", len(stale), "error", err)
                return
            }
            normalized := make(map[string]market.Record, len(recs))
            for key, rec := range recs {
                normalized[key] = e.toDisplayCurrency(rec, cur)
            }
            mu.Lock()
            live[src] = normalized
            mu.Unlock()
        }(src, adapter, stale)
    }
    wg.Wait()

    e.persistLive(live)
    return live
}

func staleKeys(keys []string, rows map[string]cachestore.Row, now time.Time, ttl time.Duration, force bool) []string {
    if force {
        return keys
    }
    stale := make([]string, 0, len(keys))
    for _, k := range keys {
        row, ok := rows[k]
        if !ok || now.Sub(row.FetchedAt) > ttl {
            stale = append(stale, k)
        }
    }
    return stale
}

// persistLive upserts freshly fetched rows in one batch, decoupled from the
// response path: cache lag is acceptable, request latency is not. Failures
// are logged, never surfaced to the caller.
func (e *Engine) persistLive(live map[market.Source]map[string]market.Record) {
    var rows []cachestore.Row
    for _, recs := range live {
        for _, rec := range recs {
            if !rec.Available {
                continue
            }
            rows = append(rows, cachestore.Row{
                Market:         string(rec.Source),
                MarketHashName: rec.ItemKey,
                Currency:       rec.Currency,
                GrossPrice:     rec.Gross(),
                NetPrice:       rec.NetPriceAfterFees,
                URL:            rec.URL,
                FetchedAt:      rec.UpdatedAt,
                Raw:            rec.Raw,
            })
        }
    }
    if len(rows) == 0 {
        return
    }
    e.persistWG.Add(1)
    go func() {
        defer e.persistWG.Done()
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        if _, err := e.store.UpsertRows(ctx, rows); err != nil {
            e.log.Warn("cache write failed", "rows", len(rows), "error", err)
        }
    }()
}

// Flush blocks until pending background cache writes finish.
func (e *Engine) Flush() { e.persistWG.Wait() }

// buildItem assembles the per-source record array through the fallback chain
// (live, then cache, then the caller fallback for the reference source only,
// then unavailable) and selects the final record for the mode.
func (e *Engine) buildItem(it Item, cur string, mode Mode, live map[market.Source]map[string]market.Record, cached map[string]map[string]cachestore.Row) ItemResult {
    perMarket := make([]market.Record, 0, len(e.order))
    for _, src := range e.order {
        perMarket = append(perMarket, e.resolveRecord(src, it, cur, live, cached))
    }

    var bestBuy, bestSellNet *market.Record
    for i := range perMarket {
        r := &perMarket[i]
        if !r.Available {
            continue
        }
        if bestBuy == nil || r.Gross() < bestBuy.Gross() {
            bestBuy = r
        }
        if bestSellNet == nil || r.NetPriceAfterFees > bestSellNet.NetPriceAfterFees {
            bestSellNet = r
        }
    }
    var reference *market.Record
    if r := &perMarket[0]; r.Source == market.SourceSteam && r.Available {
        reference = r
    }

    ir := ItemResult{
        Key:          it.Key,
        Quantity:     it.Quantity,
        PerMarket:    perMarket,
        BestBuy:      bestBuy,
        BestSellNet:  bestSellNet,
        TotalsByMode: make(map[Mode]float64, 3),
    }
    for _, m := range allModes() {
        sel := selectRecord(m, reference, bestBuy, bestSellNet)
        line := lineValue(m, sel, it.Quantity)
        ir.TotalsByMode[m] = line
        if m == mode {
            ir.Selected = sel
            if sel != nil {
                ir.SelectedUnitPrice = unitPrice(m, sel)
            }
            ir.SelectedLineValue = line
        }
    }
    return ir
}

func (e *Engine) resolveRecord(src market.Source, it Item, cur string, live map[market.Source]map[string]market.Record, cached map[string]map[string]cachestore.Row) market.Record {
    if rec, ok := live[src][it.Key]; ok {
        return rec
    }
    if row, ok := cached[string(src)][it.Key]; ok {
        rec := market.NewRecord(src, it.Key, row.GrossPrice, row.Currency, row.URL, row.FetchedAt, market.ConfidenceMedium, row.Raw)
        return e.toDisplayCurrency(rec, cur)
    }
    // The caller fallback applies to the reference source only.
    if src == market.SourceSteam && it.FallbackPrice != nil {
        updated := e.now().UTC()
        if it.FallbackRecordedAt != nil {
            updated = *it.FallbackRecordedAt
        }
        fbCur := it.FallbackCurrency
        if fbCur == "" {
            fbCur = cur
        }
        rec := market.NewRecord(src, it.Key, *it.FallbackPrice, fbCur, "", updated, market.ConfidenceLow, nil)
        return e.toDisplayCurrency(rec, cur)
    }
    adapter, ok := e.adapters[src]
    if !ok {
        return market.NewUnavailable(src, it.Key, cur, market.ReasonNotConfigured)
    }
    if err := adapter.Ready(); errors.Is(err, market.ErrMissingCredential) {
        return market.NewUnavailable(src, it.Key, cur, market.ReasonMissingCredential)
    }
    return market.NewUnavailable(src, it.Key, cur, market.ReasonNoListing)
}

// toDisplayCurrency rebuilds a record in the display currency, recomputing the
// net-of-fee price so rounding stays uniform. Conversion failures keep the
// original record; a mismatched currency beats a missing price.
func (e *Engine) toDisplayCurrency(rec market.Record, cur string) market.Record {
    if !rec.Available || rec.Currency == cur {
        return rec
    }
    converted, err := e.fx.Convert(rec.Gross(), rec.Currency, cur)
    if err != nil {
        e.log.Warn("currency conversion failed", "source", rec.Source, "item", rec.ItemKey, "from", rec.Currency, "to", cur, "error", err)
        return rec
    }
    out := market.NewRecord(rec.Source, rec.ItemKey, converted, cur, rec.URL, rec.UpdatedAt, rec.Confidence, rec.Raw)
    return out
}

// selectRecord applies the per-mode fallback order.
func selectRecord(mode Mode, reference, bestBuy, bestSellNet *market.Record) *market.Record {
    switch mode {
    case ModeSteamEquivalent:
        return firstRecord(reference, bestBuy, bestSellNet)
    case ModeBestSellNet:
        return firstRecord(bestSellNet, reference, bestBuy)
    default:
        return firstRecord(bestBuy, reference, bestSellNet)
    }
}

func firstRecord(candidates ...*market.Record) *market.Record {
    for _, c := range candidates {
        if c != nil {
            return c
        }
    }
    return nil
}

// unitPrice is net-of-fee for best_sell_net valuations (the seller's take),
// gross otherwise (the buyer's cost).
func unitPrice(mode Mode, rec *market.Record) float64 {
    if mode == ModeBestSellNet {
        return rec.NetPriceAfterFees
    }
    return rec.Gross()
}

func lineValue(mode Mode, rec *market.Record, quantity float64) float64 {
    if rec == nil {
        return 0
    }
    return market.Round2(unitPrice(mode, rec) * quantity)
}
