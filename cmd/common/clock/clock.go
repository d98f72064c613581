// Package clock abstracts "now", cancellable sleeping and timer callbacks so the
// emission engine can run against the wall clock or a fully deterministic
// virtual clock.
//
// Durations are measured from the clock's construction, not from the epoch:
//
//	clk := clock.NewVirtual()
//	go func() { _ = clk.Sleep(ctx, 50*time.Millisecond) }()
//	_ = clk.BlockUntil(ctx, 1)
//	clk.Advance(50 * time.Millisecond) // the sleeper resumes and sees Now() == 50ms
package clock

import (
	"context"
	"time"
)

// Clock is the only source of time for the engine. Implementations are safe
// for concurrent use.
type Clock interface {
	// Now returns the time elapsed since the clock was created.
	Now() time.Duration

	// Sleep blocks for d. It fails with an error wrapping cwerr.ErrAborted
	// when ctx is cancelled first, or is already cancelled on entry.
	Sleep(ctx context.Context, d time.Duration) error

	// AfterFunc calls f once d has elapsed, unless the returned Timer is
	// stopped first.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a handle to a pending AfterFunc callback.
type Timer interface {
	// Stop cancels the callback. It reports false if the callback already
	// fired or was stopped before.
	Stop() bool
}
