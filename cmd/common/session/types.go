// Package session drives a training session: a pure transition function
// over events and effects, and a Runner that interprets the effects on a
// single goroutine.
package session

import (
	"fmt"
	"time"

	"github.com/gigurra/cwtrainer/cmd/common/emission"
	"github.com/gigurra/cwtrainer/cmd/common/eventlog"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseEmitting
	PhaseAwaitingInput
	PhaseFeedback
	PhasePreRevealDelay
	PhaseReveal
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseEmitting:
		return "emitting"
	case PhaseAwaitingInput:
		return "awaiting-input"
	case PhaseFeedback:
		return "feedback"
	case PhasePreRevealDelay:
		return "pre-reveal-delay"
	case PhaseReveal:
		return "reveal"
	case PhaseEnded:
		return "ended"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Active reports whether a session is running.
func (p Phase) Active() bool {
	return p != PhaseIdle && p != PhaseEnded
}

// Purpose identifies a timer. At most one timer per purpose is live.
type Purpose int

const (
	PurposeRecognitionWindow Purpose = iota
	PurposeFeedbackDelay
	PurposeRevealDelay
	PurposePostRevealDelay
)

func (p Purpose) String() string {
	switch p {
	case PurposeRecognitionWindow:
		return "recognition-window"
	case PurposeFeedbackDelay:
		return "feedback-delay"
	case PurposeRevealDelay:
		return "reveal-delay"
	case PurposePostRevealDelay:
		return "post-reveal-delay"
	default:
		return fmt.Sprintf("purpose(%d)", int(p))
	}
}

// Reason explains why a session ended.
type Reason string

const (
	ReasonCompleted Reason = "completed"
	ReasonStopped   Reason = "stopped"
	ReasonRestart   Reason = "restart"
	ReasonError     Reason = "error"
)

// Event is an input to Machine.Handle: Start, End, StageReached,
// EmissionDone, TimerFired or Advance.
type Event interface {
	isEvent()
}

type Start struct {
	Config emission.SessionConfig
}

type End struct {
	Reason Reason
	Err    error
}

type StageReached struct {
	Epoch uint64
	Stage emission.Stage
}

type EmissionDone struct {
	Epoch  uint64
	Result emission.Result
	Err    error
}

type TimerFired struct {
	Epoch   uint64
	Purpose Purpose
}

// Advance moves a session on to its next character. The Runner never posts
// it; running sessions advance through TimerFired for the feedback and
// post-reveal delays.
type Advance struct {
	Epoch uint64
}

func (Start) isEvent()        {}
func (End) isEvent()          {}
func (StageReached) isEvent() {}
func (EmissionDone) isEvent() {}
func (TimerFired) isEvent()   {}
func (Advance) isEvent()      {}

// Effect is an output of Machine.Handle: StartEmission, ScheduleTimer,
// CancelTimer, CancelAllTimeouts, Log, EndSession or Publish.
type Effect interface {
	isEffect()
}

type StartEmission struct {
	Epoch  uint64
	Config emission.SessionConfig
	Char   rune
}

type ScheduleTimer struct {
	Epoch   uint64
	Purpose Purpose
	Delay   time.Duration
}

type CancelTimer struct {
	Purpose Purpose
}

// CancelAllTimeouts stops every timer and aborts work still running for the
// session.
type CancelAllTimeouts struct{}

type Log struct {
	Event eventlog.Event
}

type EndSession struct {
	Reason Reason
	Err    error
}

type Publish struct {
	Snapshot Snapshot
}

func (StartEmission) isEffect()     {}
func (ScheduleTimer) isEffect()     {}
func (CancelTimer) isEffect()       {}
func (CancelAllTimeouts) isEffect() {}
func (Log) isEffect()               {}
func (EndSession) isEffect()        {}
func (Publish) isEffect()           {}
