package market

import (
    "encoding/json"
    "strings"
)

// ExtractPrice probes an untyped listing payload for a price using an ordered
// candidate field list. External response schemas are not consistent across
// listings: the price may live under different key names, or nested inside a
// currency-keyed object. The first parseable non-negative number wins.
//
// minorUnits applies to plain JSON numbers: sources that quote integer cents
// set it so 1850 reads as 18.50. Strings always go through ParsePrice, which
// applies its own minor-unit heuristic.
func ExtractPrice(payload map[string]any, currency string, minorUnits bool, keys ...string) (float64, bool) {
    for _, key := range keys {
        v, ok := payload[key]
        if !ok || v == nil {
            continue
        }
        if nested, ok := v.(map[string]any); ok {
            if price, ok := currencyKeyed(nested, currency, minorUnits); ok {
                return price, true
            }
            continue
        }
        if price, ok := toPrice(v, minorUnits); ok {
            return price, true
        }
    }
    return 0, false
}

// currencyKeyed resolves {"USD": 18.5, "EUR": 17.1} style objects.
func currencyKeyed(m map[string]any, currency string, minorUnits bool) (float64, bool) {
    for k, v := range m {
        if strings.EqualFold(k, currency) {
            return toPrice(v, minorUnits)
        }
    }
    return 0, false
}

func toPrice(v any, minorUnits bool) (float64, bool) {
    switch t := v.(type) {
    case float64:
        if t < 0 {
            return 0, false
        }
        if minorUnits {
            return t / 100, true
        }
        return t, true
    case json.Number:
        f, err := t.Float64()
        if err != nil || f < 0 {
            return 0, false
        }
        if minorUnits {
            return f / 100, true
        }
        return f, true
    case string:
        p, err := ParsePrice(t)
        if err != nil {
            return 0, false
        }
        return p, true
    }
    return 0, false
}
