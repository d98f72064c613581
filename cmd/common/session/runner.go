package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gigurra/cwtrainer/cmd/common/clock"
	"github.com/gigurra/cwtrainer/cmd/common/emission"
)

// eventBuffer is the capacity of the Runner's event channel.
const eventBuffer = 64

var errSessionEnded = errors.New("session ended")

// Runner owns a Machine on a single goroutine and performs its effects.
// Emission handlers, timer callbacks and callers of Start and Stop only
// post events.
type Runner struct {
	clk     clock.Clock
	io      emission.IO
	input   emission.InputBus
	machine *Machine

	observers []func(Snapshot)
	last      atomic.Pointer[Snapshot]
	events    chan Event
	done      chan struct{}
	handlers  sync.WaitGroup

	// Owned by the loop goroutine.
	queue       []Event
	timers      map[Purpose]clock.Timer
	loopCtx     context.Context
	scope       context.Context
	cancelScope context.CancelCauseFunc
	scopeEpoch  uint64
}

type Option func(*Runner)

// WithObserver adds fn to the functions called with every published
// snapshot. Observers run on the loop goroutine and must not block.
func WithObserver(fn func(Snapshot)) Option {
	return func(r *Runner) {
		r.observers = append(r.observers, fn)
	}
}

// WithPicker replaces the random character picker.
func WithPicker(pick Picker) Option {
	return func(r *Runner) {
		r.machine = NewMachine(pick)
	}
}

func NewRunner(clk clock.Clock, io emission.IO, input emission.InputBus, opts ...Option) *Runner {
	r := &Runner{
		clk:     clk,
		io:      io,
		input:   input,
		machine: NewMachine(nil),
		events:  make(chan Event, eventBuffer),
		done:    make(chan struct{}),
		timers:  map[Purpose]clock.Timer{},
	}
	for _, opt := range opts {
		opt(r)
	}
	idle := r.machine.snapshot(0)
	r.last.Store(&idle)
	return r
}

// Start ends any running session and starts a new one with cfg.
func (r *Runner) Start(cfg emission.SessionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.post(End{Reason: ReasonRestart})
	r.post(Start{Config: cfg.Clone()})
	return nil
}

// Stop ends the running session, if any.
func (r *Runner) Stop(reason Reason) {
	r.post(End{Reason: reason})
}

// Snapshot returns the last published snapshot.
func (r *Runner) Snapshot() Snapshot {
	return *r.last.Load()
}

// Run processes events until ctx is done. A session still running then is
// ended with ReasonStopped, and Run waits for its handler to return.
func (r *Runner) Run(ctx context.Context) error {
	r.loopCtx = ctx
	defer func() {
		close(r.done)
		r.handlers.Wait()
	}()

	for {
		var ev Event
		if len(r.queue) > 0 {
			ev, r.queue = r.queue[0], r.queue[1:]
		} else {
			select {
			case ev = <-r.events:
			case <-ctx.Done():
				r.dispatch(End{Reason: ReasonStopped})
				r.cancelAll()
				return nil
			}
		}
		r.dispatch(ev)
	}
}

func (r *Runner) post(ev Event) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

func (r *Runner) dispatch(ev Event) {
	for _, effect := range r.machine.Handle(ev, r.clk.Now()) {
		r.apply(effect)
	}
}

func (r *Runner) apply(effect Effect) {
	switch e := effect.(type) {
	case StartEmission:
		r.startEmission(e)
	case ScheduleTimer:
		r.stopTimer(e.Purpose)
		fired := TimerFired{Epoch: e.Epoch, Purpose: e.Purpose}
		if e.Delay <= 0 {
			r.queue = append(r.queue, fired)
			return
		}
		r.timers[e.Purpose] = r.clk.AfterFunc(e.Delay, func() { r.post(fired) })
	case CancelTimer:
		r.stopTimer(e.Purpose)
	case CancelAllTimeouts:
		r.cancelAll()
	case Log:
		r.io.Log(e.Event)
	case EndSession:
		if e.Err != nil {
			slog.Error("session failed", "error", e.Err)
		} else {
			slog.Info("session ended", "reason", e.Reason)
		}
	case Publish:
		snap := e.Snapshot
		r.last.Store(&snap)
		for _, fn := range r.observers {
			fn(snap)
		}
	default:
		panic("session: unknown effect type")
	}
}

// startEmission runs the handler in the scope of the effect's epoch,
// opening a new scope when the epoch changed.
func (r *Runner) startEmission(e StartEmission) {
	if r.scope == nil || r.scopeEpoch != e.Epoch {
		if r.cancelScope != nil {
			r.cancelScope(errSessionEnded)
		}
		r.scope, r.cancelScope = context.WithCancelCause(r.loopCtx)
		r.scopeEpoch = e.Epoch
	}

	env := emission.Env{
		Config: e.Config,
		Clock:  r.clk,
		IO:     r.io,
		Input:  r.input,
		Stage: func(s emission.Stage) {
			r.post(StageReached{Epoch: e.Epoch, Stage: s})
		},
	}
	scope := r.scope
	r.handlers.Add(1)
	go func() {
		defer r.handlers.Done()
		res, err := handle(scope, env, e.Char)
		r.post(EmissionDone{Epoch: e.Epoch, Result: res, Err: err})
	}()
}

func (r *Runner) stopTimer(p Purpose) {
	if t, ok := r.timers[p]; ok {
		t.Stop()
		delete(r.timers, p)
	}
}

func (r *Runner) cancelAll() {
	for p := range r.timers {
		r.stopTimer(p)
	}
	if r.cancelScope != nil {
		r.cancelScope(errSessionEnded)
		r.scope, r.cancelScope = nil, nil
	}
}
