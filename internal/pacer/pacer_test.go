package pacer

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"
)

func TestGate_EnforcesMinimumGap(t *testing.T) {
    t.Parallel()
    const gap = 50 * time.Millisecond
    g := New(gap)
    defer g.Close()

    var mu sync.Mutex
    var stamps []time.Time
    var wg sync.WaitGroup
    for i := 0; i < 3; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            if err := g.Wait(t.Context()); err != nil {
                t.Error(err)
                return
            }
            mu.Lock()
            stamps = append(stamps, time.Now())
            mu.Unlock()
        }()
    }
    wg.Wait()

    if len(stamps) != 3 {
        t.Fatalf("admitted %d", len(stamps))
    }
    for i := 1; i < len(stamps); i++ {
        // Stamps append in admission order; the gate serializes them.
        if d := stamps[i].Sub(stamps[i-1]); d < gap-5*time.Millisecond {
            t.Fatalf("admissions %d and %d only %v apart", i-1, i, d)
        }
    }
}

func TestGate_FirstCallIsImmediate(t *testing.T) {
    t.Parallel()
    g := New(time.Minute)
    defer g.Close()

    start := time.Now()
    if err := g.Wait(t.Context()); err != nil {
        t.Fatal(err)
    }
    if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
        t.Fatalf("first admission took %v", elapsed)
    }
}

func TestGate_CanceledWhileQueued(t *testing.T) {
    t.Parallel()
    g := New(time.Minute)
    defer g.Close()

    if err := g.Wait(t.Context()); err != nil {
        t.Fatal(err)
    }
    ctx, cancel := context.WithTimeout(t.Context(), 30*time.Millisecond)
    defer cancel()
    err := g.Wait(ctx)
    if !errors.Is(err, context.DeadlineExceeded) {
        t.Fatalf("err = %v", err)
    }
}

func TestGate_Closed(t *testing.T) {
    t.Parallel()
    g := New(time.Millisecond)
    g.Close()
    if err := g.Wait(t.Context()); !errors.Is(err, ErrClosed) {
        t.Fatalf("err = %v", err)
    }
}
