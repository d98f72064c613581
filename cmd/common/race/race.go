// Package race runs competing cancellable operations and keeps the first
// result.
package race

import (
	"context"
	"log/slog"
	"time"

	"github.com/gigurra/cwtrainer/cmd/common/clock"
	"github.com/gigurra/cwtrainer/cmd/common/cwerr"
)

// Arm is one competitor. It must return promptly once ctx is done, with an
// error that cwerr.IsAborted recognises.
type Arm[T any] func(ctx context.Context) (T, error)

// Result is the winning value and the index of the arm that produced it.
type Result[T any] struct {
	Value  T
	Winner int
}

type settled[T any] struct {
	index int
	value T
	err   error
}

// Select runs every arm concurrently and returns the first one to settle
// with a value or a non-abort error. All other arms are cancelled and have
// returned before Select does.
//
// If ctx is already done no arm runs. If ctx is cancelled before any arm
// settles, Select returns an aborted error.
func Select[T any](ctx context.Context, arms ...Arm[T]) (Result[T], error) {
	if len(arms) == 0 {
		return Result[T]{}, cwerr.InvalidArgument("select requires at least one arm")
	}
	if ctx.Err() != nil {
		return Result[T]{}, cwerr.Aborted(ctx)
	}

	cancels := make([]context.CancelFunc, len(arms))
	results := make(chan settled[T], len(arms))
	for i, arm := range arms {
		armCtx, cancel := context.WithCancel(ctx)
		cancels[i] = cancel
		go func() {
			v, err := arm(armCtx)
			results <- settled[T]{index: i, value: v, err: err}
		}()
	}

	winner := -1
	var out settled[T]
	for range arms {
		r := <-results
		if winner < 0 && (r.err == nil || !cwerr.IsAborted(r.err)) {
			winner = r.index
			out = r
			for j, cancel := range cancels {
				if j != winner {
					cancel()
				}
			}
			continue
		}
		if r.err != nil && !cwerr.IsAborted(r.err) {
			slog.Debug("race: losing arm failed", "arm", r.index, "err", r.err)
		}
	}
	for _, cancel := range cancels {
		cancel()
	}

	if winner < 0 {
		return Result[T]{}, cwerr.Aborted(ctx)
	}
	if out.err != nil {
		return Result[T]{Winner: winner}, out.err
	}
	return Result[T]{Value: out.value, Winner: winner}, nil
}

// After returns an arm that yields v once d has passed on clk.
func After[T any](clk clock.Clock, d time.Duration, v T) Arm[T] {
	return func(ctx context.Context) (T, error) {
		if err := clk.Sleep(ctx, d); err != nil {
			var zero T
			return zero, err
		}
		return v, nil
	}
}
