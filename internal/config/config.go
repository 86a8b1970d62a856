package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "strings"
)

type Server struct {
    Port              string `json:"port"`
    RequestTimeoutSec int    `json:"request_timeout_sec"`
    LogLevel          string `json:"log_level"`
}

type Cache struct {
    // DBPath is the sqlite file holding the price cache. Empty means an
    // in-memory store (nothing survives a restart).
    DBPath     string `json:"db_path"`
    TTLMinutes int    `json:"ttl_minutes"`
}

type Currency struct {
    Display string `json:"display"`
}

type Steam struct {
    Enabled              bool   `json:"enabled"`
    Endpoint             string `json:"endpoint"`
    AppID                int    `json:"app_id"`
    Currency             string `json:"currency"`
    TimeoutSec           int    `json:"timeout_sec"`
    MaxRetries           int    `json:"max_retries"`
    RetryBaseMs          int    `json:"retry_base_ms"`
    Concurrency          int    `json:"concurrency"`
    MaxRequestsPerMinute int    `json:"max_requests_per_minute"`
    Burst                int    `json:"burst"`
}

type Skinport struct {
    Enabled        bool   `json:"enabled"`
    Endpoint       string `json:"endpoint"`
    AppID          int    `json:"app_id"`
    TimeoutSec     int    `json:"timeout_sec"`
    MaxRetries     int    `json:"max_retries"`
    RetryBaseMs    int    `json:"retry_base_ms"`
    FeedTTLSeconds int    `json:"feed_ttl_sec"`
}

type CSFloat struct {
    Enabled     bool   `json:"enabled"`
    Endpoint    string `json:"endpoint"`
    APIKey      string `json:"api_key"`
    TimeoutSec  int    `json:"timeout_sec"`
    MaxRetries  int    `json:"max_retries"`
    RetryBaseMs int    `json:"retry_base_ms"`
    Concurrency int    `json:"concurrency"`
}

type Bitskins struct {
    Enabled     bool   `json:"enabled"`
    Endpoint    string `json:"endpoint"`
    APIKey      string `json:"api_key"`
    AppID       int    `json:"app_id"`
    TimeoutSec  int    `json:"timeout_sec"`
    MaxRetries  int    `json:"max_retries"`
    RetryBaseMs int    `json:"retry_base_ms"`
    Concurrency int    `json:"concurrency"`
    MinGapMs    int    `json:"min_gap_ms"`
}

type Config struct {
    Server   Server   `json:"server"`
    Cache    Cache    `json:"cache"`
    Currency Currency `json:"currency"`
    Steam    Steam    `json:"steam"`
    Skinport Skinport `json:"skinport"`
    CSFloat  CSFloat  `json:"csfloat"`
    Bitskins Bitskins `json:"bitskins"`
}

func Default() Config {
    return Config{
        Server:   Server{Port: "8080", RequestTimeoutSec: 30, LogLevel: "info"},
        Cache:    Cache{DBPath: "pricecache.db", TTLMinutes: 60},
        Currency: Currency{Display: "USD"},
        Steam: Steam{
            Enabled:     true,
            AppID:       730,
            Currency:    "USD",
            TimeoutSec:  10,
            MaxRetries:  3,
            RetryBaseMs: 300,
            Concurrency: 2,
        },
        Skinport: Skinport{
            Enabled:        true,
            AppID:          730,
            TimeoutSec:     12,
            MaxRetries:     3,
            RetryBaseMs:    350,
            FeedTTLSeconds: 30,
        },
        CSFloat: CSFloat{
            Enabled:     true,
            TimeoutSec:  10,
            MaxRetries:  3,
            RetryBaseMs: 300,
            Concurrency: 3,
        },
        Bitskins: Bitskins{
            Enabled:     true,
            AppID:       730,
            TimeoutSec:  9,
            MaxRetries:  3,
            RetryBaseMs: 300,
            Concurrency: 2,
            MinGapMs:    500,
        },
    }
}

// Load reads JSON config from path. If path is empty or file does not exist,
// it returns defaults. Environment variables override select fields for secrecy.
func Load(path string) (Config, error) {
    cfg := Default()
    if path == "" {
        if _, err := os.Stat("config.json"); err == nil {
            path = "config.json"
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := json.Unmarshal(b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    applyEnv(&cfg)
    return cfg, nil
}

func applyEnv(cfg *Config) {
    if v := os.Getenv("PORT"); v != "" {
        cfg.Server.Port = v
    }
    if v := os.Getenv("LOG_LEVEL"); v != "" {
        cfg.Server.LogLevel = v
    }
    if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
        if x := atoi(v); x > 0 {
            cfg.Server.RequestTimeoutSec = x
        }
    }
    if v := os.Getenv("CACHE_DB_PATH"); v != "" {
        cfg.Cache.DBPath = v
    }
    if v := os.Getenv("CACHE_TTL_MINUTES"); v != "" {
        if x := atoi(v); x > 0 {
            cfg.Cache.TTLMinutes = x
        }
    }
    if v := os.Getenv("DISPLAY_CURRENCY"); v != "" {
        cfg.Currency.Display = v
    }
    if v := os.Getenv("STEAM_ENABLED"); v != "" {
        cfg.Steam.Enabled = parseBool(v, cfg.Steam.Enabled)
    }
    if v := os.Getenv("SKINPORT_ENABLED"); v != "" {
        cfg.Skinport.Enabled = parseBool(v, cfg.Skinport.Enabled)
    }
    if v := os.Getenv("CSFLOAT_ENABLED"); v != "" {
        cfg.CSFloat.Enabled = parseBool(v, cfg.CSFloat.Enabled)
    }
    if v := os.Getenv("CSFLOAT_API_KEY"); v != "" {
        cfg.CSFloat.APIKey = v
    }
    if v := os.Getenv("BITSKINS_ENABLED"); v != "" {
        cfg.Bitskins.Enabled = parseBool(v, cfg.Bitskins.Enabled)
    }
    if v := os.Getenv("BITSKINS_API_KEY"); v != "" {
        cfg.Bitskins.APIKey = v
    }
    if v := os.Getenv("BITSKINS_MIN_GAP_MS"); v != "" {
        if x := atoi(v); x > 0 {
            cfg.Bitskins.MinGapMs = x
        }
    }
}

func atoi(s string) int {
    var x int
    _, _ = fmt.Sscanf(s, "%d", &x)
    return x
}

func parseBool(s string, def bool) bool {
    switch strings.ToLower(s) {
    case "1", "true", "yes", "y":
        return true
    case "0", "false", "no", "n":
        return false
    }
    return def
}
