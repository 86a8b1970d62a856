// Package app wires configuration into a ready comparison engine. Both
// binaries use it so they assemble the same stack.
package app

import (
    "fmt"
    "log/slog"
    "time"

    "pricecompare/internal/cachestore"
    "pricecompare/internal/compare"
    "pricecompare/internal/config"
    "pricecompare/internal/currency"
    "pricecompare/internal/httpx"
    "pricecompare/internal/market"
    "pricecompare/internal/market/bitskins"
    "pricecompare/internal/market/csfloat"
    "pricecompare/internal/market/skinport"
    "pricecompare/internal/market/steam"
)

// Build assembles adapters, cache store and engine from config. The returned
// close function releases the store and adapter resources.
func Build(cfg config.Config, log *slog.Logger) (*compare.Engine, func(), error) {
    hc := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)

    var adapters []market.Adapter
    var closers []func()

    if cfg.Steam.Enabled {
        adapters = append(adapters, steam.New(steam.Config{
            BaseURL:              cfg.Steam.Endpoint,
            AppID:                cfg.Steam.AppID,
            Currency:             cfg.Steam.Currency,
            Timeout:              secs(cfg.Steam.TimeoutSec),
            MaxRetries:           cfg.Steam.MaxRetries,
            RetryBase:            millis(cfg.Steam.RetryBaseMs),
            Concurrency:          cfg.Steam.Concurrency,
            MaxRequestsPerMinute: cfg.Steam.MaxRequestsPerMinute,
            Burst:                cfg.Steam.Burst,
        }, hc))
    }
    if cfg.Skinport.Enabled {
        adapters = append(adapters, skinport.New(skinport.Config{
            BaseURL:    cfg.Skinport.Endpoint,
            AppID:      cfg.Skinport.AppID,
            Timeout:    secs(cfg.Skinport.TimeoutSec),
            MaxRetries: cfg.Skinport.MaxRetries,
            RetryBase:  millis(cfg.Skinport.RetryBaseMs),
            FeedTTL:    secs(cfg.Skinport.FeedTTLSeconds),
        }, hc))
    }
    if cfg.CSFloat.Enabled {
        adapters = append(adapters, csfloat.New(csfloat.Config{
            BaseURL:     cfg.CSFloat.Endpoint,
            APIKey:      cfg.CSFloat.APIKey,
            Timeout:     secs(cfg.CSFloat.TimeoutSec),
            MaxRetries:  cfg.CSFloat.MaxRetries,
            RetryBase:   millis(cfg.CSFloat.RetryBaseMs),
            Concurrency: cfg.CSFloat.Concurrency,
        }, hc))
    }
    if cfg.Bitskins.Enabled {
        bs := bitskins.New(bitskins.Config{
            BaseURL:     cfg.Bitskins.Endpoint,
            APIKey:      cfg.Bitskins.APIKey,
            AppID:       cfg.Bitskins.AppID,
            Timeout:     secs(cfg.Bitskins.TimeoutSec),
            MaxRetries:  cfg.Bitskins.MaxRetries,
            RetryBase:   millis(cfg.Bitskins.RetryBaseMs),
            Concurrency: cfg.Bitskins.Concurrency,
            MinGap:      millis(cfg.Bitskins.MinGapMs),
        }, hc)
        adapters = append(adapters, bs)
        closers = append(closers, bs.Close)
    }

    var store cachestore.Store
    if cfg.Cache.DBPath != "" {
        db, err := cachestore.OpenSQLite(cfg.Cache.DBPath)
        if err != nil {
            return nil, nil, fmt.Errorf("open price cache: %w", err)
        }
        closers = append(closers, func() { _ = db.Close() })
        store = db
    } else {
        store = cachestore.NewMemory()
    }

    engine := compare.New(adapters, store, currency.NewStaticRates(nil), log)
    closeAll := func() {
        engine.Flush()
        for _, c := range closers {
            c()
        }
    }
    return engine, closeAll, nil
}

func secs(n int) time.Duration   { return time.Duration(n) * time.Second }
func millis(n int) time.Duration { return time.Duration(n) * time.Millisecond }
