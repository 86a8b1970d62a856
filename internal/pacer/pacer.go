// Package pacer provides a serialized minimum-gap gate for sources with a
// platform-wide rate limit. A single goroutine owns the "next allowed time"
// state; callers queue through a channel instead of mutating shared
// timestamps, so concurrent callers cannot violate the gap.
package pacer

import (
    "context"
    "errors"
    "sync"
    "time"
)

// ErrClosed is returned from Wait after Close.
var ErrClosed = errors.New("pacer: gate closed")

type waiter struct {
    ctx   context.Context
    ready chan error
}

// Gate admits callers one at a time with at least a fixed gap between
// admissions, in strict arrival order.
type Gate struct {
    gap  time.Duration
    reqs chan waiter
    done chan struct{}
    once sync.Once
}

func New(gap time.Duration) *Gate {
    g := &Gate{
        gap:  gap,
        reqs: make(chan waiter),
        done: make(chan struct{}),
    }
    go g.run()
    return g
}

// Wait blocks until the caller is admitted, its context is canceled, or the
// gate is closed.
func (g *Gate) Wait(ctx context.Context) error {
    w := waiter{ctx: ctx, ready: make(chan error, 1)}
    select {
    case g.reqs <- w:
    case <-ctx.Done():
        return ctx.Err()
    case <-g.done:
        return ErrClosed
    }
    return <-w.ready
}

// Close stops the owner goroutine. Queued waiters get ErrClosed.
func (g *Gate) Close() {
    g.once.Do(func() { close(g.done) })
}

func (g *Gate) run() {
    var next time.Time
    for {
        select {
        case <-g.done:
            return
        case w := <-g.reqs:
            if wait := time.Until(next); wait > 0 {
                timer := time.NewTimer(wait)
                select {
                case <-timer.C:
                case <-w.ctx.Done():
                    timer.Stop()
                    w.ready <- w.ctx.Err()
                    continue
                case <-g.done:
                    timer.Stop()
                    w.ready <- ErrClosed
                    return
                }
            }
            // Admission consumes the slot even if the caller later fails.
            next = time.Now().Add(g.gap)
            w.ready <- nil
        }
    }
}
