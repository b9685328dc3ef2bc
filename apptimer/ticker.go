package apptimer

import (
	"context"
	"time"

	"github.com/intuitivelabs/timestamp"

	"github.com/ehrlich-b/go-mcufw/internal/trace"
)

// Ticker drives a wheel set from the wall clock, converting real
// elapsed time into tick advances. It replaces the hardware tick
// source of an embedded build on hosted targets and in tests.
//
// Sync and Run share the wheel's single-threaded model: they must not
// race with direct Advance calls.
type Ticker struct {
	ts           *Timers
	tickDuration time.Duration

	started bool
	last    timestamp.TS
	badTime uint32
}

// NewTicker binds a wall-clock driver to ts with the given tick
// duration. Durations below a microsecond only burn CPU on wakeups.
func NewTicker(ts *Timers, tick time.Duration) (*Ticker, error) {
	if ts == nil || tick < time.Microsecond {
		return nil, ErrInvalidParam
	}
	return &Ticker{ts: ts, tickDuration: tick}, nil
}

// Sync advances the wheel by the whole ticks elapsed since the last
// call and returns that tick count. The fractional remainder carries
// into the next call, so long-run tick frequency does not drift.
func (tk *Ticker) Sync() uint32 {
	now := timestamp.Now()
	if !tk.started {
		tk.started = true
		tk.last = now
		return 0
	}
	if now.Before(tk.last) {
		// time going backwards; re-anchor after repeated offence
		tk.badTime++
		if tk.badTime > 10 {
			trace.Warn("re-anchoring ticker after backward time", "count", tk.badTime)
			tk.last = now
		}
		return 0
	}
	tk.badTime = 0

	diff := now.Sub(tk.last)
	if diff < tk.tickDuration {
		return 0
	}
	ticks := uint32(diff / tk.tickDuration)
	rest := diff % tk.tickDuration
	tk.last = now.Add(-rest)
	tk.ts.Advance(ticks)
	return ticks
}

// Run blocks, syncing the wheel once per tick duration until ctx is
// cancelled.
func (tk *Ticker) Run(ctx context.Context) {
	ticker := time.NewTicker(tk.tickDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tk.Sync()
		}
	}
}
