// Package keybus fans keypresses out to waiting emission programs.
package keybus

import (
	"context"
	"slices"
	"sync"

	"github.com/gigurra/cwtrainer/cmd/common/clock"
	"github.com/gigurra/cwtrainer/cmd/common/cwerr"
	"github.com/gigurra/cwtrainer/cmd/common/emission"
)

// Bus delivers each published key to every subscriber whose predicate
// accepts it. A subscriber receives at most one key; keys published while
// nobody waits are dropped.
type Bus struct {
	clk clock.Clock

	mu       sync.Mutex
	subs     []*subscriber
	blockers []*blocker
}

type subscriber struct {
	match func(emission.KeyEvent) bool
	ch    chan emission.KeyEvent
}

type blocker struct {
	n  int
	ch chan struct{}
}

// New creates a bus that stamps keys with the time of clk.
func New(clk clock.Clock) *Bus {
	return &Bus{clk: clk}
}

// Publish stamps key with the current time and hands it to matching
// subscribers. Predicates run under the bus lock and must not block.
func (b *Bus) Publish(key rune) {
	ev := emission.KeyEvent{Key: key, At: b.clk.Now()}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = slices.DeleteFunc(b.subs, func(s *subscriber) bool {
		if !s.match(ev) {
			return false
		}
		s.ch <- ev
		return true
	})
}

// TakeUntil waits for the first key accepted by match.
func (b *Bus) TakeUntil(ctx context.Context, match func(emission.KeyEvent) bool) (emission.KeyEvent, error) {
	if ctx.Err() != nil {
		return emission.KeyEvent{}, cwerr.Aborted(ctx)
	}

	s := &subscriber{match: match, ch: make(chan emission.KeyEvent, 1)}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.blockers = slices.DeleteFunc(b.blockers, func(bl *blocker) bool {
		if len(b.subs) >= bl.n {
			close(bl.ch)
			return true
		}
		return false
	})
	b.mu.Unlock()

	select {
	case ev := <-s.ch:
		return ev, nil
	case <-ctx.Done():
		b.mu.Lock()
		b.subs = slices.DeleteFunc(b.subs, func(o *subscriber) bool { return o == s })
		b.mu.Unlock()
		return emission.KeyEvent{}, cwerr.Aborted(ctx)
	}
}

// Subscribers returns the number of waiting TakeUntil calls.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// BlockUntil waits until at least n TakeUntil calls are waiting.
func (b *Bus) BlockUntil(ctx context.Context, n int) error {
	b.mu.Lock()
	if len(b.subs) >= n {
		b.mu.Unlock()
		return nil
	}
	bl := &blocker{n: n, ch: make(chan struct{})}
	b.blockers = append(b.blockers, bl)
	b.mu.Unlock()

	select {
	case <-bl.ch:
		return nil
	case <-ctx.Done():
		b.mu.Lock()
		b.blockers = slices.DeleteFunc(b.blockers, func(o *blocker) bool { return o == bl })
		b.mu.Unlock()
		return cwerr.Aborted(ctx)
	}
}
