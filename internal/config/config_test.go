package config

import (
    "os"
    "path/filepath"
    "testing"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
    cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
    if err != nil {
        t.Fatalf("Load: %v", err)
    }
    if cfg.Server.Port != "8080" {
        t.Errorf("port = %q, want 8080", cfg.Server.Port)
    }
    if cfg.Cache.TTLMinutes != 60 {
        t.Errorf("ttl = %d, want 60", cfg.Cache.TTLMinutes)
    }
    if !cfg.Steam.Enabled || !cfg.Skinport.Enabled || !cfg.CSFloat.Enabled || !cfg.Bitskins.Enabled {
        t.Error("all sources should be enabled by default")
    }
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.json")
    body := `{
        "server": {"port": "9090"},
        "cache": {"db_path": "", "ttl_minutes": 5},
        "bitskins": {"enabled": false}
    }`
    if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
        t.Fatal(err)
    }

    cfg, err := Load(path)
    if err != nil {
        t.Fatalf("Load: %v", err)
    }
    if cfg.Server.Port != "9090" {
        t.Errorf("port = %q, want 9090", cfg.Server.Port)
    }
    if cfg.Cache.DBPath != "" {
        t.Errorf("db_path = %q, want empty (in-memory)", cfg.Cache.DBPath)
    }
    if cfg.Cache.TTLMinutes != 5 {
        t.Errorf("ttl = %d, want 5", cfg.Cache.TTLMinutes)
    }
    if cfg.Bitskins.Enabled {
        t.Error("bitskins should be disabled by file")
    }
}

func TestLoad_EnvOverridesFile(t *testing.T) {
    t.Setenv("PORT", "7070")
    t.Setenv("BITSKINS_API_KEY", "from-env")
    t.Setenv("CACHE_TTL_MINUTES", "15")
    t.Setenv("CSFLOAT_ENABLED", "false")

    cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
    if err != nil {
        t.Fatalf("Load: %v", err)
    }
    if cfg.Server.Port != "7070" {
        t.Errorf("port = %q, want 7070", cfg.Server.Port)
    }
    if cfg.Bitskins.APIKey != "from-env" {
        t.Errorf("api key = %q", cfg.Bitskins.APIKey)
    }
    if cfg.Cache.TTLMinutes != 15 {
        t.Errorf("ttl = %d, want 15", cfg.Cache.TTLMinutes)
    }
    if cfg.CSFloat.Enabled {
        t.Error("csfloat should be disabled by env")
    }
}

func TestParseBool(t *testing.T) {
    cases := []struct {
        in   string
        def  bool
        want bool
    }{
        {"1", false, true},
        {"yes", false, true},
        {"FALSE", true, false},
        {"n", true, false},
        {"maybe", true, true},
        {"maybe", false, false},
    }
    for _, c := range cases {
        if got := parseBool(c.in, c.def); got != c.want {
            t.Errorf("parseBool(%q, %v) = %v, want %v", c.in, c.def, got, c.want)
        }
    }
}
