package clock

import (
	"context"
	"time"

	"github.com/gigurra/cwtrainer/cmd/common/cwerr"
)

// Real is a Clock backed by the system timer.
type Real struct {
	start time.Time
}

// NewReal creates a real-time clock whose Now starts at zero.
func NewReal() *Real {
	return &Real{start: time.Now()}
}

// Now returns the monotonic time since construction.
func (r *Real) Now() time.Duration {
	return time.Since(r.start)
}

func (r *Real) Sleep(ctx context.Context, d time.Duration) error {
	if ctx.Err() != nil {
		return cwerr.Aborted(ctx)
	}
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return cwerr.Aborted(ctx)
	}
}

func (r *Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
