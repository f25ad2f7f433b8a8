// Package clock supplies the monotonic logical slot counter the core reads
// instead of wall-clock time.
package clock

import (
	"context"
	"sync/atomic"
	"time"
)

// Clock yields the current logical slot. Implementations must be monotonic
// and non-decreasing.
type Clock interface {
	CurrentSlot() uint64
}

// Ticker advances one slot per fixed interval. Run blocks until ctx is done.
type Ticker struct {
	slot     atomic.Uint64
	interval time.Duration
}

// NewTicker returns a ticker clock with the given slot interval.
func NewTicker(interval time.Duration) *Ticker {
	return &Ticker{interval: interval}
}

var _ Clock = (*Ticker)(nil)

func (t *Ticker) CurrentSlot() uint64 { return t.slot.Load() }

// Run advances the slot counter until ctx is cancelled.
func (t *Ticker) Run(ctx context.Context) {
	tick := time.NewTicker(t.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			t.slot.Add(1)
		}
	}
}

// Manual is a test clock advanced explicitly.
type Manual struct {
	slot atomic.Uint64
}

var _ Clock = (*Manual)(nil)

func (m *Manual) CurrentSlot() uint64 { return m.slot.Load() }

// Advance moves the clock forward by n slots.
func (m *Manual) Advance(n uint64) { m.slot.Add(n) }
