// Package currency normalizes display currencies and converts amounts
// between them. The comparison engine depends on the Converter interface;
// StaticRates is the default table-driven implementation.
package currency

import (
    "errors"
    "fmt"
    "strings"
)

// ErrUnsupported is wrapped by Resolve and Convert for unknown codes.
var ErrUnsupported = errors.New("unsupported currency")

// Converter resolves currency codes and converts amounts between them.
type Converter interface {
    Resolve(code string) (string, error)
    Convert(amount float64, from, to string) (float64, error)
}

// StaticRates converts through a fixed per-USD rate table.
type StaticRates struct {
    perUSD map[string]float64
}

// DefaultRates returns the built-in per-USD rate table.
func DefaultRates() map[string]float64 {
    return map[string]float64{
        "USD": 1,
        "EUR": 0.92,
        "GBP": 0.79,
        "CNY": 7.25,
        "PLN": 3.95,
        "CAD": 1.36,
        "AUD": 1.52,
        "BRL": 5.43,
    }
}

// NewStaticRates builds a converter from a per-USD rate table. A nil table
// uses DefaultRates.
func NewStaticRates(perUSD map[string]float64) *StaticRates {
    if perUSD == nil {
        perUSD = DefaultRates()
    }
    return &StaticRates{perUSD: perUSD}
}

func (s *StaticRates) Resolve(code string) (string, error) {
    c := strings.ToUpper(strings.TrimSpace(code))
    if c == "" {
        c = "USD"
    }
    if _, ok := s.perUSD[c]; !ok {
        return "", fmt.Errorf("%w: %q", ErrUnsupported, code)
    }
    return c, nil
}

func (s *StaticRates) Convert(amount float64, from, to string) (float64, error) {
    f, err := s.Resolve(from)
    if err != nil {
        return 0, err
    }
    t, err := s.Resolve(to)
    if err != nil {
        return 0, err
    }
    if f == t {
        return amount, nil
    }
    return amount / s.perUSD[f] * s.perUSD[t], nil
}
