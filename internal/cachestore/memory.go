package cachestore

import (
    "context"

    gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process Store for deployments without a database path, and
// for tests. Staleness is the engine's concern, so entries never expire here;
// they are simply overwritten by fresher upserts.
type Memory struct {
    c *gocache.Cache
}

func NewMemory() *Memory {
    return &Memory{c: gocache.New(gocache.NoExpiration, 0)}
}

func memKey(market, name string) string { return market + "\x00" + name }

func (m *Memory) GetLatestByMarketHashNames(_ context.Context, names []string, markets []string) (map[string]map[string]Row, error) {
    out := make(map[string]map[string]Row, len(markets))
    for _, mk := range markets {
        for _, n := range names {
            v, ok := m.c.Get(memKey(mk, n))
            if !ok {
                continue
            }
            row := v.(Row)
            byName, ok := out[mk]
            if !ok {
                byName = make(map[string]Row)
                out[mk] = byName
            }
            byName[n] = row
        }
    }
    return out, nil
}

func (m *Memory) UpsertRows(_ context.Context, rows []Row) (int, error) {
    for _, r := range rows {
        m.c.Set(memKey(r.Market, r.MarketHashName), r, gocache.NoExpiration)
    }
    return len(rows), nil
}
