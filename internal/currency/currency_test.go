package currency

import (
    "errors"
    "math"
    "testing"
)

func TestResolve(t *testing.T) {
    fx := NewStaticRates(nil)

    got, err := fx.Resolve("usd")
    if err != nil || got != "USD" {
        t.Fatalf("got %q err %v", got, err)
    }
    got, err = fx.Resolve(" eur ")
    if err != nil || got != "EUR" {
        t.Fatalf("got %q err %v", got, err)
    }
    // Empty defaults to USD.
    got, err = fx.Resolve("")
    if err != nil || got != "USD" {
        t.Fatalf("got %q err %v", got, err)
    }
    if _, err := fx.Resolve("DOGE"); !errors.Is(err, ErrUnsupported) {
        t.Fatalf("err = %v", err)
    }
}

func TestConvert(t *testing.T) {
    fx := NewStaticRates(map[string]float64{"USD": 1, "EUR": 0.5, "CNY": 8})

    got, err := fx.Convert(10, "USD", "EUR")
    if err != nil || got != 5 {
        t.Fatalf("got %v err %v", got, err)
    }
    got, err = fx.Convert(4, "EUR", "CNY")
    if err != nil || math.Abs(got-64) > 1e-9 {
        t.Fatalf("got %v err %v", got, err)
    }
    // Same currency is a no-op.
    got, err = fx.Convert(12.34, "usd", "USD")
    if err != nil || got != 12.34 {
        t.Fatalf("got %v err %v", got, err)
    }
    if _, err := fx.Convert(1, "USD", "XXX"); !errors.Is(err, ErrUnsupported) {
        t.Fatalf("err = %v", err)
    }
}
