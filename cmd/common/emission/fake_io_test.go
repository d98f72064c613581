package emission_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gigurra/cwtrainer/cmd/common/clock"
	"github.com/gigurra/cwtrainer/cmd/common/emission"
	"github.com/gigurra/cwtrainer/cmd/common/eventlog"
	"github.com/gigurra/cwtrainer/cmd/common/timing"
)

// fakeIO plays characters by sleeping their duration on the clock and
// records every call.
type fakeIO struct {
	clk     clock.Clock
	playErr error

	mu     sync.Mutex
	calls  []string
	events []eventlog.Event
}

func newFakeIO(clk clock.Clock) *fakeIO {
	return &fakeIO{clk: clk}
}

func (f *fakeIO) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeIO) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeIO) Events() []eventlog.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]eventlog.Event(nil), f.events...)
}

func (f *fakeIO) PlayChar(ctx context.Context, ch rune, wpm int) error {
	f.record("play %c", ch)
	if f.playErr != nil {
		return f.playErr
	}
	d, err := timing.CharacterDuration(ch, wpm, 0)
	if err != nil {
		return err
	}
	if err := f.clk.Sleep(ctx, d); err != nil {
		f.record("play %c aborted", ch)
		return err
	}
	return nil
}

func (f *fakeIO) StopAudio()     { f.record("stop") }
func (f *fakeIO) Reveal(ch rune) { f.record("reveal %c", ch) }
func (f *fakeIO) Hide()          { f.record("hide") }

func (f *fakeIO) Feedback(kind emission.Outcome, ch rune) {
	f.record("feedback %s %c", kind, ch)
}

func (f *fakeIO) Replay(ctx context.Context, ch rune, wpm int) error {
	f.record("replay %c", ch)
	d, err := timing.CharacterDuration(ch, wpm, 0)
	if err != nil {
		return err
	}
	return f.clk.Sleep(ctx, d)
}

func (f *fakeIO) Log(ev eventlog.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	f.calls = append(f.calls, "log "+string(ev.Type()))
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

type outcome struct {
	res emission.Result
	err error
}

func start(ctx context.Context, program emission.Program, env emission.Env, ch rune) <-chan outcome {
	done := make(chan outcome, 1)
	go func() {
		res, err := program(ctx, env, ch)
		done <- outcome{res, err}
	}()
	return done
}

func await(t *testing.T, done <-chan outcome) outcome {
	t.Helper()
	select {
	case o := <-done:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("program did not return")
		return outcome{}
	}
}

func config(mode emission.Mode) emission.SessionConfig {
	return emission.SessionConfig{
		Mode:          mode,
		WPM:           20,
		FarnsworthWPM: 10,
		SpeedTier:     timing.Fast,
		Length:        time.Minute,
		Alphabet:      []rune("AE"),
		FeedbackDelay: 200 * time.Millisecond,
	}
}

// stageRecorder collects reported stages with the clock time they were
// reached at.
type stageRecorder struct {
	clk clock.Clock

	mu     sync.Mutex
	stages []string
}

func (s *stageRecorder) report(st emission.Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = append(s.stages, fmt.Sprintf("%s@%v", st, s.clk.Now()))
}

func (s *stageRecorder) Stages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.stages...)
}
