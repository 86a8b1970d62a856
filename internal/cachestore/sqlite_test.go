package cachestore

import (
    "encoding/json"
    "path/filepath"
    "testing"
    "time"

    "github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *SQLite {
    t.Helper()
    s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
    require.NoError(t, err)
    t.Cleanup(func() { _ = s.Close() })
    return s
}

func TestSQLite_UpsertReplacesOnConflict(t *testing.T) {
    s := openTestDB(t)
    t0 := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

    n, err := s.UpsertRows(t.Context(), []Row{
        {Market: "steam", MarketHashName: "AK-47 | Redline (Field-Tested)", Currency: "USD", GrossPrice: 20, NetPrice: 17.40, FetchedAt: t0},
    })
    require.NoError(t, err)
    require.Equal(t, 1, n)

    // Same (market, name): the row is replaced, not duplicated.
    n, err = s.UpsertRows(t.Context(), []Row{
        {Market: "steam", MarketHashName: "AK-47 | Redline (Field-Tested)", Currency: "USD", GrossPrice: 21, NetPrice: 18.27, FetchedAt: t0.Add(time.Hour), Raw: json.RawMessage(`{"v":2}`)},
    })
    require.NoError(t, err)
    require.Equal(t, 1, n)

    out, err := s.GetLatestByMarketHashNames(t.Context(), []string{"AK-47 | Redline (Field-Tested)"}, []string{"steam"})
    require.NoError(t, err)
    require.Len(t, out["steam"], 1)
    row := out["steam"]["AK-47 | Redline (Field-Tested)"]
    require.Equal(t, 21.0, row.GrossPrice)
    require.Equal(t, 18.27, row.NetPrice)
    require.True(t, row.FetchedAt.Equal(t0.Add(time.Hour)))
    require.JSONEq(t, `{"v":2}`, string(row.Raw))
}

func TestSQLite_GetLatestFiltersByMarketAndName(t *testing.T) {
    s := openTestDB(t)
    now := time.Now().UTC()

    _, err := s.UpsertRows(t.Context(), []Row{
        {Market: "steam", MarketHashName: "a", Currency: "USD", GrossPrice: 1, NetPrice: 0.87, FetchedAt: now},
        {Market: "csfloat", MarketHashName: "a", Currency: "USD", GrossPrice: 2, NetPrice: 1.96, FetchedAt: now},
        {Market: "csfloat", MarketHashName: "b", Currency: "USD", GrossPrice: 3, NetPrice: 2.94, FetchedAt: now},
    })
    require.NoError(t, err)

    out, err := s.GetLatestByMarketHashNames(t.Context(), []string{"a"}, []string{"csfloat"})
    require.NoError(t, err)
    require.Len(t, out, 1)
    require.Len(t, out["csfloat"], 1)
    require.Equal(t, 2.0, out["csfloat"]["a"].GrossPrice)
}

func TestSQLite_EmptyLookup(t *testing.T) {
    s := openTestDB(t)
    out, err := s.GetLatestByMarketHashNames(t.Context(), nil, []string{"steam"})
    require.NoError(t, err)
    require.Empty(t, out)
}
