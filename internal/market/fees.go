package market

// feeTable holds the static commission percent each marketplace takes from a
// sale. Net-of-fee prices are derived from these, never from per-response data.
var feeTable = map[Source]float64{
    SourceSteam:    13,
    SourceSkinport: 12,
    SourceCSFloat:  2,
    SourceBitskins: 10,
}

// FeePercent returns the commission percent for a source, clamped to [0, 99.99].
// Unknown sources pay no fee.
func FeePercent(src Source) float64 {
    fee, ok := feeTable[src]
    if !ok {
        return 0
    }
    if fee < 0 {
        return 0
    }
    if fee > 99.99 {
        return 99.99
    }
    return fee
}
