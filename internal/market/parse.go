package market

import (
    "fmt"
    "strconv"
    "strings"
)

// ParsePrice converts a marketplace price string into a non-negative amount.
//
// Two families of input are handled:
//   - bare digit strings ("1234") are read as minor units (cents)
//   - human decimal strings with either '.' or ',' as the decimal separator:
//     the separator that appears last with at most 2 trailing digits is the
//     decimal point; any other separators are grouping and are dropped.
//
// Currency symbols, letters and whitespace are stripped before parsing.
func ParsePrice(s string) (float64, error) {
    cleaned := stripNonNumeric(s)
    if cleaned == "" {
        return 0, fmt.Errorf("no digits in price %q", s)
    }
    if strings.Contains(cleaned, "-") {
        return 0, fmt.Errorf("negative price %q", s)
    }

    dot := strings.LastIndexByte(cleaned, '.')
    comma := strings.LastIndexByte(cleaned, ',')
    if dot < 0 && comma < 0 {
        cents, err := strconv.ParseInt(cleaned, 10, 64)
        if err != nil {
            return 0, fmt.Errorf("parse price %q: %w", s, err)
        }
        return float64(cents) / 100, nil
    }

    last := dot
    if comma > dot {
        last = comma
    }
    trailing := len(cleaned) - last - 1
    if trailing > 2 {
        // All separators are grouping ("1.234" -> 1234).
        digits := strings.Map(keepDigits, cleaned)
        v, err := strconv.ParseFloat(digits, 64)
        if err != nil {
            return 0, fmt.Errorf("parse price %q: %w", s, err)
        }
        return v, nil
    }

    // The last separator is the decimal point; drop the rest.
    intPart := strings.Map(keepDigits, cleaned[:last])
    fracPart := strings.Map(keepDigits, cleaned[last+1:])
    if intPart == "" {
        intPart = "0"
    }
    v, err := strconv.ParseFloat(intPart+"."+fracPart, 64)
    if err != nil {
        return 0, fmt.Errorf("parse price %q: %w", s, err)
    }
    return v, nil
}

func stripNonNumeric(s string) string {
    var b strings.Builder
    for _, r := range s {
        switch {
        case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
            b.WriteRune(r)
        }
    }
    return b.String()
}

func keepDigits(r rune) rune {
    if r >= '0' && r <= '9' {
        return r
    }
    return -1
}
