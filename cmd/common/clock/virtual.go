package clock

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/gigurra/cwtrainer/cmd/common/cwerr"
)

// Virtual is a Clock that only moves when told to. Sleepers and AfterFunc
// callbacks share one queue ordered by due time, then registration order.
//
// Advance never fires an entry due after the new current time, and every fire
// happens after the current time was updated, so resumed code always observes
// the time at which it was woken.
type Virtual struct {
	mu       sync.Mutex
	now      time.Duration
	seq      uint64
	pending  []*entry
	blockers []*blocker
}

type entry struct {
	v    *Virtual
	due  time.Duration
	seq  uint64
	fire func()
}

type blocker struct {
	n  int
	ch chan struct{}
}

// NewVirtual creates a virtual clock at time zero.
func NewVirtual() *Virtual {
	return &Virtual{}
}

func (v *Virtual) Now() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Sleep registers a sleeper due at Now()+d. Cancelling ctx removes the entry
// immediately, before any later Advance could resolve it.
func (v *Virtual) Sleep(ctx context.Context, d time.Duration) error {
	if ctx.Err() != nil {
		return cwerr.Aborted(ctx)
	}
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	e := v.schedule(d, func() { close(done) })
	stop := context.AfterFunc(ctx, func() { v.remove(e) })
	defer stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		v.remove(e)
		return cwerr.Aborted(ctx)
	}
}

// AfterFunc schedules f to run inside the Advance call that reaches Now()+d.
// A non-positive d is due immediately and fires on the next Advance.
// f must not block, since it runs on the advancing goroutine.
func (v *Virtual) AfterFunc(d time.Duration, f func()) Timer {
	return v.schedule(max(d, 0), f)
}

// Advance moves the clock forward by d and fires everything that became due.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	target := v.now + max(d, 0)
	v.advanceLocked(target)
}

// AdvanceNext moves the clock to the earliest pending due time and fires the
// entries due then. It reports false if nothing is pending.
func (v *Virtual) AdvanceNext() bool {
	v.mu.Lock()
	if len(v.pending) == 0 {
		v.mu.Unlock()
		return false
	}
	target := v.now
	if first := v.pending[0].due; first > target {
		target = first
	}
	v.advanceLocked(target)
	return true
}

// advanceLocked is entered with mu held and releases it before firing.
func (v *Virtual) advanceLocked(target time.Duration) {
	idx := 0
	for idx < len(v.pending) && v.pending[idx].due <= target {
		idx++
	}
	due := slices.Clone(v.pending[:idx])
	v.pending = slices.Delete(v.pending, 0, idx)
	v.now = target
	v.mu.Unlock()

	for _, e := range due {
		e.fire()
	}
}

// Pending returns the number of sleepers and timers waiting to fire.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pending)
}

// BlockUntil waits until at least n entries are pending. Tests use it to know
// that concurrently started goroutines reached their suspension point.
func (v *Virtual) BlockUntil(ctx context.Context, n int) error {
	v.mu.Lock()
	if len(v.pending) >= n {
		v.mu.Unlock()
		return nil
	}
	b := &blocker{n: n, ch: make(chan struct{})}
	v.blockers = append(v.blockers, b)
	v.mu.Unlock()

	select {
	case <-b.ch:
		return nil
	case <-ctx.Done():
		v.mu.Lock()
		v.blockers = slices.DeleteFunc(v.blockers, func(o *blocker) bool { return o == b })
		v.mu.Unlock()
		return cwerr.Aborted(ctx)
	}
}

func (v *Virtual) schedule(d time.Duration, fire func()) *entry {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.seq++
	e := &entry{v: v, due: v.now + d, seq: v.seq, fire: fire}
	i, _ := slices.BinarySearchFunc(v.pending, e, func(a, b *entry) int {
		if a.due != b.due {
			return cmp.Compare(a.due, b.due)
		}
		return cmp.Compare(a.seq, b.seq)
	})
	v.pending = slices.Insert(v.pending, i, e)

	v.blockers = slices.DeleteFunc(v.blockers, func(b *blocker) bool {
		if len(v.pending) >= b.n {
			close(b.ch)
			return true
		}
		return false
	})
	return e
}

func (v *Virtual) remove(e *entry) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	i := slices.Index(v.pending, e)
	if i < 0 {
		return false
	}
	v.pending = slices.Delete(v.pending, i, i+1)
	return true
}

// Stop removes a pending AfterFunc callback.
func (e *entry) Stop() bool {
	return e.v.remove(e)
}
