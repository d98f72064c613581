// Package emission sequences the transmission of a single character for each
// training mode: audio playback, input windows, reveal and spacing.
//
// A program runs on the goroutine of its caller and only reads its Env. The
// outcome is returned; session state is never touched here.
package emission

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gigurra/cwtrainer/cmd/common/clock"
	"github.com/gigurra/cwtrainer/cmd/common/cwerr"
	"github.com/gigurra/cwtrainer/cmd/common/eventlog"
	"github.com/gigurra/cwtrainer/cmd/common/morsecode"
	"github.com/gigurra/cwtrainer/cmd/common/timing"
)

type Mode string

const (
	ModePractice Mode = "practice"
	ModeListen   Mode = "listen"
	ModeLiveCopy Mode = "live-copy"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModePractice, ModeListen, ModeLiveCopy:
		return m, nil
	case "copy":
		return ModeLiveCopy, nil
	default:
		return "", cwerr.InvalidArgument("unknown mode %q", s)
	}
}

// Outcome is how one emission ended.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeTimeout   Outcome = "timeout"
	// OutcomePlayed ends listen and live copy emissions, which take no input.
	OutcomePlayed Outcome = "played"
)

// Failed reports whether the learner missed the character.
func (o Outcome) Failed() bool {
	return o == OutcomeIncorrect || o == OutcomeTimeout
}

// Stage marks progress inside a program, reported to the session as it
// happens.
type Stage int

const (
	StageAwaitingInput Stage = iota
	StagePreReveal
	StageRevealed
)

func (s Stage) String() string {
	switch s {
	case StageAwaitingInput:
		return "awaiting-input"
	case StagePreReveal:
		return "pre-reveal"
	case StageRevealed:
		return "revealed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// KeyEvent is a keypress stamped with the clock time it arrived at.
type KeyEvent struct {
	Key rune
	At  time.Duration
}

// InputBus supplies keypresses.
type InputBus interface {
	// TakeUntil returns the first key accepted by match, or an aborted
	// error once ctx is done.
	TakeUntil(ctx context.Context, match func(KeyEvent) bool) (KeyEvent, error)
}

// IO is everything a program does to the outside world.
type IO interface {
	// PlayChar blocks for the audio duration of ch and returns early with an
	// aborted error if ctx is cancelled.
	PlayChar(ctx context.Context, ch rune, wpm int) error
	StopAudio()
	Reveal(ch rune)
	Hide()
	Feedback(kind Outcome, ch rune)
	Replay(ctx context.Context, ch rune, wpm int) error
	Log(ev eventlog.Event)
}

// SessionConfig is fixed for the lifetime of a session.
type SessionConfig struct {
	Mode          Mode
	WPM           int
	FarnsworthWPM int
	SpeedTier     timing.SpeedTier
	Length        time.Duration
	Alphabet      []rune
	// Replay plays a missed character again before moving on.
	Replay           bool
	ExtraWordSpacing int
	// FeedbackDelay is the pause after a practice answer before the next
	// character.
	FeedbackDelay time.Duration
}

// Validate rejects configurations no session can run with.
func (c SessionConfig) Validate() error {
	switch c.Mode {
	case ModePractice, ModeListen, ModeLiveCopy:
	default:
		return cwerr.InvalidArgument("unknown mode %q", c.Mode)
	}
	if c.WPM <= 0 {
		return cwerr.InvalidArgument("wpm must be positive, got %d", c.WPM)
	}
	if c.FarnsworthWPM <= 0 || c.FarnsworthWPM > c.WPM {
		return cwerr.InvalidArgument("farnsworth wpm must be between 1 and %d, got %d", c.WPM, c.FarnsworthWPM)
	}
	if !c.SpeedTier.Valid() {
		return cwerr.InvalidArgument("unknown speed tier %q", c.SpeedTier)
	}
	if c.Length <= 0 {
		return cwerr.InvalidArgument("session length must be positive, got %v", c.Length)
	}
	if len(c.Alphabet) == 0 {
		return cwerr.InvalidArgument("alphabet is empty")
	}
	for _, r := range c.Alphabet {
		if r != ' ' && !morsecode.IsValidInput(r) {
			return cwerr.InvalidArgument("alphabet character %q has no morse pattern", r)
		}
	}
	if c.ExtraWordSpacing < 0 || c.FeedbackDelay < 0 {
		return cwerr.InvalidArgument("spacing and delays must not be negative")
	}
	return nil
}

// Clone returns a copy that shares no memory with c.
func (c SessionConfig) Clone() SessionConfig {
	c.Alphabet = slices.Clone(c.Alphabet)
	return c
}

// Emission is one transmission attempt.
type Emission struct {
	ID        uuid.UUID
	Char      rune
	StartedAt time.Duration
}

type Result struct {
	Emission Emission
	Outcome  Outcome
	// Latency runs from the start of the emission to the answering key.
	Latency time.Duration
	// Pressed is the answering key, zero on timeout.
	Pressed rune
}

// Env is what a program runs against.
type Env struct {
	Config SessionConfig
	Clock  clock.Clock
	IO     IO
	Input  InputBus
	// Stage is called as the program passes each Stage. May be nil.
	Stage func(Stage)
}

func (e Env) stage(s Stage) {
	if e.Stage != nil {
		e.Stage(s)
	}
}

func (e Env) begin(ch rune) Emission {
	return Emission{ID: uuid.New(), Char: ch, StartedAt: e.Clock.Now()}
}

func (e Env) logEmission(em Emission) {
	e.IO.Log(eventlog.Emission{
		ID:   em.ID,
		Mode: string(e.Config.Mode),
		Char: string(em.Char),
		At:   eventlog.ToMillis(em.StartedAt),
	})
}

// Program transmits one character.
type Program func(ctx context.Context, env Env, ch rune) (Result, error)

// For returns the program of mode.
func For(mode Mode) (Program, error) {
	switch mode {
	case ModePractice:
		return Practice, nil
	case ModeListen:
		return Listen, nil
	case ModeLiveCopy:
		return LiveCopy, nil
	default:
		return nil, cwerr.InvalidArgument("unknown mode %q", mode)
	}
}

// Run transmits ch with the program of the configured mode.
func Run(ctx context.Context, env Env, ch rune) (Result, error) {
	program, err := For(env.Config.Mode)
	if err != nil {
		return Result{}, err
	}
	return program(ctx, env, ch)
}
