package market

import (
    "context"
    "errors"
    "time"
)

// ErrMissingCredential is returned from Adapter.Ready when a source needs an
// API key that is not configured. The engine degrades such sources to
// unavailable records instead of failing the comparison.
var ErrMissingCredential = errors.New("missing api credential")

// QueryOptions tune a single-item lookup.
type QueryOptions struct {
    Timeout    time.Duration
    MaxRetries int
}

// BatchOptions tune a batched lookup.
type BatchOptions struct {
    // Currency is the caller's preferred quote currency. Adapters quote in it
    // when the source settles in it; otherwise they quote in a settlement
    // currency and leave conversion to the engine.
    Currency    string
    Concurrency int
    Timeout     time.Duration
    MaxRetries  int
}

// Adapter is the per-source contract the comparison engine consumes.
type Adapter interface {
    Source() Source
    // Ready reports whether the adapter can reach its source at all
    // (e.g. returns ErrMissingCredential when no API key is configured).
    Ready() error
    // SearchItemPrice prices one item. A nil record with a nil error means the
    // source has no matching listing.
    SearchItemPrice(ctx context.Context, itemKey string, opts QueryOptions) (*Record, error)
    // BatchGetPrices prices many items, tolerating per-item failures: keys
    // that cannot be priced are simply absent from the result.
    BatchGetPrices(ctx context.Context, itemKeys []string, opts BatchOptions) (map[string]Record, error)
}

// DedupeKeys removes duplicate item keys preserving first-seen order.
func DedupeKeys(keys []string) []string {
    seen := make(map[string]struct{}, len(keys))
    out := make([]string, 0, len(keys))
    for _, k := range keys {
        if _, dup := seen[k]; dup {
            continue
        }
        seen[k] = struct{}{}
        out = append(out, k)
    }
    return out
}
