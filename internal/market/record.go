package market

import (
    "encoding/json"
    "math"
    "time"
)

// Source identifies one external marketplace.
type Source string

const (
    SourceSteam    Source = "steam"
    SourceSkinport Source = "skinport"
    SourceCSFloat  Source = "csfloat"
    SourceBitskins Source = "bitskins"
)

// Sources returns all sources in the canonical display order.
func Sources() []Source {
    return []Source{SourceSteam, SourceSkinport, SourceCSFloat, SourceBitskins}
}

// Confidence is a coarse trust label for a price observation.
type Confidence string

const (
    ConfidenceLow    Confidence = "low"
    ConfidenceMedium Confidence = "medium"
    ConfidenceHigh   Confidence = "high"
)

// Record is the normalized shape returned by all adapters.
// An unavailable record carries a nil GrossPrice and a reason.
type Record struct {
    Source            Source          `json:"source"`
    ItemKey           string          `json:"item_key"`
    GrossPrice        *float64        `json:"gross_price"`
    NetPriceAfterFees float64         `json:"net_price_after_fees,omitempty"`
    FeePercent        float64         `json:"fee_percent"`
    Currency          string          `json:"currency"`
    URL               string          `json:"url,omitempty"`
    UpdatedAt         time.Time       `json:"updated_at"`
    Confidence        Confidence      `json:"confidence,omitempty"`
    Available         bool            `json:"available"`
    UnavailableReason string          `json:"unavailable_reason,omitempty"`
    Raw               json.RawMessage `json:"raw,omitempty"`
}

// Gross returns the gross price, or 0 for unavailable records.
func (r Record) Gross() float64 {
    if r.GrossPrice == nil {
        return 0
    }
    return *r.GrossPrice
}

// NewRecord builds an available record. All price math funnels through here
// so fee and rounding normalization is applied uniformly regardless of source.
func NewRecord(src Source, itemKey string, gross float64, currency, url string, updatedAt time.Time, conf Confidence, raw json.RawMessage) Record {
    if gross < 0 {
        gross = 0
    }
    fee := FeePercent(src)
    g := Round2(gross)
    net := Round2(g * (1 - fee/100))
    return Record{
        Source:            src,
        ItemKey:           itemKey,
        GrossPrice:        &g,
        NetPriceAfterFees: net,
        FeePercent:        fee,
        Currency:          currency,
        URL:               url,
        UpdatedAt:         updatedAt,
        Confidence:        conf,
        Available:         true,
        Raw:               raw,
    }
}

// NewUnavailable builds a placeholder record for a (source, item) pair that
// could not be priced. The reason is machine-readable, e.g. ReasonMissingCredential.
func NewUnavailable(src Source, itemKey, currency, reason string) Record {
    return Record{
        Source:            src,
        ItemKey:           itemKey,
        FeePercent:        FeePercent(src),
        Currency:          currency,
        Available:         false,
        UnavailableReason: reason,
    }
}

// Unavailability reasons surfaced on records.
const (
    ReasonMissingCredential = "missing api credential"
    ReasonNoListing         = "no matching listing"
    ReasonNotConfigured     = "source not configured"
)

// Round2 rounds to 2 decimal places, half away from zero.
func Round2(v float64) float64 {
    return math.Round(v*100) / 100
}
