package compare

import (
    "time"

    "pricecompare/internal/market"
)

// Mode is the caller-selected policy for choosing which source's price
// represents "the" price for valuation purposes.
type Mode string

const (
    ModeSteamEquivalent Mode = "steam-equivalent"
    ModeBestSellNet     Mode = "best_sell_net"
    ModeLowestBuy       Mode = "lowest_buy"
)

// ParseMode resolves a caller-supplied mode string, defaulting to lowest_buy.
func ParseMode(s string) Mode {
    switch s {
    case string(ModeSteamEquivalent), "steam-equivalent-preferred":
        return ModeSteamEquivalent
    case string(ModeBestSellNet):
        return ModeBestSellNet
    default:
        return ModeLowestBuy
    }
}

func allModes() []Mode {
    return []Mode{ModeSteamEquivalent, ModeBestSellNet, ModeLowestBuy}
}

// Item is one comparison input. The fallback fields let the engine answer even
// when every live and cached source fails, using a previously known
// reference-source price supplied by the caller.
type Item struct {
    Key                string     `json:"item_key"`
    Quantity           float64    `json:"quantity"`
    FallbackPrice      *float64   `json:"fallback_price,omitempty"`
    FallbackCurrency   string     `json:"fallback_currency,omitempty"`
    FallbackRecordedAt *time.Time `json:"fallback_recorded_at,omitempty"`
}

// Options tune one CompareItems call.
type Options struct {
    Currency       string        `json:"currency"`
    Mode           Mode          `json:"mode"`
    AllowLiveFetch bool          `json:"allow_live_fetch"`
    ForceRefresh   bool          `json:"force_refresh"`
    TTL            time.Duration `json:"-"`
}

// DefaultTTL is the cache staleness horizon when Options.TTL is zero.
const DefaultTTL = 60 * time.Minute

// ItemResult is the per-item outcome: one record slot per source plus the
// selected price under the requested mode.
type ItemResult struct {
    Key               string           `json:"item_key"`
    Quantity          float64          `json:"quantity"`
    PerMarket         []market.Record  `json:"per_market"`
    BestBuy           *market.Record   `json:"best_buy,omitempty"`
    BestSellNet       *market.Record   `json:"best_sell_net,omitempty"`
    Selected          *market.Record   `json:"selected,omitempty"`
    SelectedUnitPrice float64          `json:"selected_unit_price"`
    SelectedLineValue float64          `json:"selected_line_value"`
    TotalsByMode      map[Mode]float64 `json:"totals_by_mode"`
}

// Summary aggregates line values per pricing mode across all items.
type Summary struct {
    TotalsByMode     map[Mode]float64 `json:"totals_by_mode"`
    PricedItems      int              `json:"priced_items"`
    UnavailableItems int              `json:"unavailable_items"`
}

// Result is the full comparison outcome.
type Result struct {
    Currency    string       `json:"currency"`
    Mode        Mode         `json:"mode"`
    Items       []ItemResult `json:"items"`
    Summary     Summary      `json:"summary"`
    GeneratedAt time.Time    `json:"generated_at"`
}
