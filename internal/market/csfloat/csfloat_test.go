package csfloat

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "pricecompare/internal/httpx"
    "pricecompare/internal/market"
)

func newTestAdapter(t *testing.T, apiKey string, handler http.HandlerFunc) *Adapter {
    t.Helper()
    srv := httptest.NewServer(handler)
    t.Cleanup(srv.Close)
    return New(Config{BaseURL: srv.URL, APIKey: apiKey, Timeout: 2 * time.Second, MaxRetries: 1}, httpx.New(2*time.Second))
}

func TestSearchItemPrice_CentsToUnits(t *testing.T) {
    a := newTestAdapter(t, "", func(w http.ResponseWriter, r *http.Request) {
        require.Equal(t, "AK-47 | Redline (Field-Tested)", r.URL.Query().Get("market_hash_name"))
        require.Equal(t, "lowest_price", r.URL.Query().Get("sort_by"))
        require.Empty(t, r.Header.Get("Authorization"))
        w.Write([]byte(`[{"id":"324999","price":1900,"state":"listed"}]`))
    })

    rec, err := a.SearchItemPrice(t.Context(), "AK-47 | Redline (Field-Tested)", market.QueryOptions{})
    require.NoError(t, err)
    require.NotNil(t, rec)

    require.Equal(t, 19.00, rec.Gross())
    require.Equal(t, 18.62, rec.NetPriceAfterFees) // 2% peer-listing fee
    require.Equal(t, "USD", rec.Currency)
    require.Equal(t, "https://csfloat.com/item/324999", rec.URL)
    require.Equal(t, market.ConfidenceHigh, rec.Confidence)
}

func TestSearchItemPrice_WrappedDataShape(t *testing.T) {
    a := newTestAdapter(t, "key-123", func(w http.ResponseWriter, r *http.Request) {
        require.Equal(t, "key-123", r.Header.Get("Authorization"))
        w.Write([]byte(`{"data":[{"min_offer_price":250}]}`))
    })

    rec, err := a.SearchItemPrice(t.Context(), "P250 | Sand Dune", market.QueryOptions{})
    require.NoError(t, err)
    require.NotNil(t, rec)
    require.Equal(t, 2.50, rec.Gross())
}

func TestSearchItemPrice_SkipsUnpricedListings(t *testing.T) {
    a := newTestAdapter(t, "", func(w http.ResponseWriter, r *http.Request) {
        w.Write([]byte(`[{"id":"1","state":"delisted"},{"id":"2","price":450}]`))
    })

    rec, err := a.SearchItemPrice(t.Context(), "Glock-18 | Fade (Factory New)", market.QueryOptions{})
    require.NoError(t, err)
    require.NotNil(t, rec)
    require.Equal(t, 4.50, rec.Gross())
}

func TestSearchItemPrice_NoListingsIsAMiss(t *testing.T) {
    a := newTestAdapter(t, "", func(w http.ResponseWriter, r *http.Request) {
        w.Write([]byte(`[]`))
    })

    rec, err := a.SearchItemPrice(t.Context(), "unknown", market.QueryOptions{})
    require.NoError(t, err)
    require.Nil(t, rec)
}
