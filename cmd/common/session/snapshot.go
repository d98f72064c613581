package session

import (
	"slices"
	"time"

	"github.com/gigurra/cwtrainer/cmd/common/emission"
)

// Snapshot is an immutable view of the session for observers. It shares no
// memory with the Machine.
type Snapshot struct {
	Phase     Phase
	Mode      emission.Mode
	Epoch     uint64
	Current   rune
	Previous  []rune
	Elapsed   time.Duration
	Remaining time.Duration
	Practice  PracticeState
	Listen    ListenState
	LiveCopy  LiveCopyState
	Stats     Stats
	EndReason Reason
	Err       error
}

type PracticeState struct {
	LastOutcome emission.Outcome
	LastChar    rune
	LastPressed rune
	// WindowClosed is set once the recognition window of the current
	// character has run out.
	WindowClosed bool
	// WindowEndsAt is the clock time the current window closes.
	WindowEndsAt time.Duration
}

type ListenState struct {
	Revealed bool
}

type LiveCopyState struct {
	Transmitted string
}

func (m *Machine) snapshot(now time.Duration) Snapshot {
	c := &m.ctx
	elapsed := time.Duration(0)
	if c.Phase != PhaseIdle {
		elapsed = now - c.StartedAt
		if c.Phase == PhaseEnded {
			elapsed = c.EndedAt - c.StartedAt
		}
	}

	s := Snapshot{
		Phase:     c.Phase,
		Mode:      c.Config.Mode,
		Epoch:     c.Epoch,
		Current:   c.Current,
		Previous:  slices.Clone(c.Previous),
		Elapsed:   elapsed,
		Remaining: max(c.Config.Length-elapsed, 0),
		Practice: PracticeState{
			WindowClosed: c.WindowClosed,
			WindowEndsAt: c.WindowEndsAt,
		},
		Listen:    ListenState{Revealed: c.Revealed},
		Stats:     c.Stats.clone(),
		EndReason: c.EndReason,
		Err:       c.Err,
	}
	if c.LastResult != nil {
		s.Practice.LastOutcome = c.LastResult.Outcome
		s.Practice.LastChar = c.LastResult.Emission.Char
		s.Practice.LastPressed = c.LastResult.Pressed
	}
	if c.Config.Mode == emission.ModeLiveCopy {
		s.LiveCopy.Transmitted = transmitted(c.History)
	}
	return s
}

func transmitted(history []emission.Result) string {
	chars := make([]rune, len(history))
	for i, r := range history {
		chars[i] = r.Emission.Char
	}
	return string(chars)
}
