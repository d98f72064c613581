package session

import (
	"maps"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/gigurra/cwtrainer/cmd/common/cwerr"
	"github.com/gigurra/cwtrainer/cmd/common/emission"
	"github.com/gigurra/cwtrainer/cmd/common/eventlog"
	"github.com/gigurra/cwtrainer/cmd/common/timing"
)

// previousLimit bounds Context.Previous.
const previousLimit = 32

// Context is the complete state of a session. Only Machine.Handle changes
// it.
type Context struct {
	Phase   Phase
	Config  emission.SessionConfig
	Current rune
	// Previous holds the most recently sent characters, oldest first.
	Previous []rune
	// Epoch identifies the session instance. It grows on every accepted
	// Start and End; events carrying another epoch are discarded.
	Epoch          uint64
	ActiveTimeouts map[Purpose]struct{}
	StartedAt      time.Duration
	EndedAt        time.Duration
	// InFlight is set while an emission program runs.
	InFlight     bool
	Stats        Stats
	History      []emission.Result
	LastResult   *emission.Result
	Revealed     bool
	WindowClosed bool
	WindowEndsAt time.Duration
	EndReason    Reason
	Err          error
}

// Picker chooses the next character. previous is the character sent last,
// or a space before the first one.
type Picker func(alphabet []rune, previous rune) rune

// RandomPicker picks uniformly, avoiding an immediate repeat when the
// alphabet has another character to offer.
func RandomPicker(rng *rand.Rand) Picker {
	return func(alphabet []rune, previous rune) rune {
		candidates := lo.Without(lo.Uniq(alphabet), previous)
		if len(candidates) == 0 {
			candidates = alphabet
		}
		return candidates[rng.IntN(len(candidates))]
	}
}

// Machine is the session state machine. It is not safe for concurrent use;
// the Runner owns it on one goroutine.
type Machine struct {
	ctx  Context
	pick Picker
}

// NewMachine creates an idle machine. A nil pick uses RandomPicker.
func NewMachine(pick Picker) *Machine {
	if pick == nil {
		pick = RandomPicker(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	}
	return &Machine{
		ctx:  Context{ActiveTimeouts: map[Purpose]struct{}{}},
		pick: pick,
	}
}

// Context returns a copy of the current state.
func (m *Machine) Context() Context {
	c := m.ctx
	c.Config = c.Config.Clone()
	c.Previous = slices.Clone(c.Previous)
	c.ActiveTimeouts = maps.Clone(c.ActiveTimeouts)
	c.Stats = c.Stats.clone()
	c.History = slices.Clone(c.History)
	if c.LastResult != nil {
		last := *c.LastResult
		c.LastResult = &last
	}
	return c
}

// Handle applies ev at clock time now and returns the effects to perform,
// in order.
func (m *Machine) Handle(ev Event, now time.Duration) []Effect {
	switch ev := ev.(type) {
	case Start:
		return m.start(ev.Config, now)
	case End:
		return m.end(ev.Reason, ev.Err, now)
	case StageReached:
		if ev.Epoch != m.ctx.Epoch || !m.ctx.Phase.Active() {
			return nil
		}
		return m.stageReached(ev.Stage, now)
	case EmissionDone:
		if ev.Epoch != m.ctx.Epoch || !m.ctx.Phase.Active() {
			return nil
		}
		return m.emissionDone(ev, now)
	case TimerFired:
		if ev.Epoch != m.ctx.Epoch || !m.ctx.Phase.Active() {
			return nil
		}
		return m.timerFired(ev.Purpose, now)
	case Advance:
		if ev.Epoch != m.ctx.Epoch || !m.ctx.Phase.Active() {
			return nil
		}
		return m.advance(now)
	default:
		panic("session: unknown event type")
	}
}

func (m *Machine) start(cfg emission.SessionConfig, now time.Duration) []Effect {
	if m.ctx.Phase.Active() {
		return nil
	}

	cfg = cfg.Clone()
	m.ctx = Context{
		Phase:          PhaseEmitting,
		Config:         cfg,
		Epoch:          m.ctx.Epoch + 1,
		ActiveTimeouts: map[Purpose]struct{}{},
		StartedAt:      now,
	}
	first := m.pick(cfg.Alphabet, ' ')

	effects := []Effect{Log{Event: eventlog.SessionStart{
		Epoch:         m.ctx.Epoch,
		Mode:          string(cfg.Mode),
		WPM:           cfg.WPM,
		FarnsworthWPM: cfg.FarnsworthWPM,
		SpeedTier:     string(cfg.SpeedTier),
		Length:        eventlog.ToMillis(cfg.Length),
		Alphabet:      string(cfg.Alphabet),
		At:            eventlog.ToMillis(now),
	}}}
	effects = append(effects, m.emit(first)...)
	return append(effects, m.publish(now))
}

func (m *Machine) end(reason Reason, err error, now time.Duration) []Effect {
	if !m.ctx.Phase.Active() {
		return nil
	}

	c := &m.ctx
	ended := c.Epoch
	c.Phase = PhaseEnded
	c.Epoch++
	c.EndedAt = now
	c.EndReason = reason
	c.Err = err
	c.InFlight = false
	clear(c.ActiveTimeouts)

	return []Effect{
		CancelAllTimeouts{},
		Log{Event: eventlog.SessionEnd{
			Epoch:     ended,
			Reason:    string(reason),
			Emitted:   c.Stats.Emitted,
			Correct:   c.Stats.Correct,
			Incorrect: c.Stats.Incorrect,
			Timeouts:  c.Stats.Timeouts,
			At:        eventlog.ToMillis(now),
		}},
		EndSession{Reason: reason, Err: err},
		m.publish(now),
	}
}

func (m *Machine) stageReached(stage emission.Stage, now time.Duration) []Effect {
	c := &m.ctx
	var effects []Effect

	switch stage {
	case emission.StageAwaitingInput:
		c.Phase = PhaseAwaitingInput
		c.WindowClosed = false
		charDur, _ := timing.CharacterDuration(c.Current, c.Config.WPM, c.Config.ExtraWordSpacing)
		window, _ := timing.RecognitionWindow(c.Config.SpeedTier, c.Config.WPM)
		c.WindowEndsAt = now + charDur + window
		effects = m.schedule(PurposeRecognitionWindow, charDur+window)
	case emission.StagePreReveal:
		c.Phase = PhasePreRevealDelay
		split, _ := timing.ListenModeTiming(c.Config.WPM, c.Config.FarnsworthWPM)
		effects = m.schedule(PurposeRevealDelay, split.PreReveal)
	case emission.StageRevealed:
		c.Phase = PhaseReveal
		c.Revealed = true
		effects = m.cancel(PurposeRevealDelay)
	}
	return append(effects, m.publish(now))
}

func (m *Machine) emissionDone(ev EmissionDone, now time.Duration) []Effect {
	c := &m.ctx
	c.InFlight = false

	if ev.Err != nil {
		if cwerr.IsAborted(ev.Err) {
			return nil
		}
		return m.end(ReasonError, ev.Err, now)
	}

	result := ev.Result
	c.Stats.record(result)
	c.History = append(c.History, result)
	c.LastResult = &result

	effects := m.cancel(PurposeRecognitionWindow)
	if c.Config.Mode == emission.ModePractice {
		c.Phase = PhaseFeedback
		effects = append(effects, m.schedule(PurposeFeedbackDelay, c.Config.FeedbackDelay)...)
	} else {
		effects = append(effects, m.schedule(PurposePostRevealDelay, 0)...)
	}
	return append(effects, m.publish(now))
}

func (m *Machine) timerFired(purpose Purpose, now time.Duration) []Effect {
	c := &m.ctx
	if _, live := c.ActiveTimeouts[purpose]; !live {
		return nil
	}
	delete(c.ActiveTimeouts, purpose)

	switch purpose {
	case PurposeRecognitionWindow:
		c.WindowClosed = true
		return []Effect{m.publish(now)}
	case PurposeRevealDelay:
		// The reveal is due even if the program has not reported it yet.
		if c.Phase != PhasePreRevealDelay {
			return nil
		}
		c.Phase = PhaseReveal
		c.Revealed = true
		return []Effect{m.publish(now)}
	case PurposeFeedbackDelay, PurposePostRevealDelay:
		return m.advance(now)
	default:
		return nil
	}
}

// advance moves on to the next character. Expiry is only checked here, so a
// session never ends in the middle of an emission.
func (m *Machine) advance(now time.Duration) []Effect {
	c := &m.ctx
	if c.InFlight {
		return nil
	}
	if now-c.StartedAt >= c.Config.Length {
		return m.end(ReasonCompleted, nil, now)
	}

	next := m.pick(c.Config.Alphabet, c.Current)
	effects := m.cancel(PurposeFeedbackDelay)
	effects = append(effects, m.cancel(PurposePostRevealDelay)...)
	effects = append(effects, m.emit(next)...)
	return append(effects, m.publish(now))
}

func (m *Machine) emit(ch rune) []Effect {
	c := &m.ctx
	if c.Current != 0 {
		c.Previous = append(c.Previous, c.Current)
		if len(c.Previous) > previousLimit {
			c.Previous = slices.Delete(c.Previous, 0, len(c.Previous)-previousLimit)
		}
	}
	c.Current = ch
	c.Phase = PhaseEmitting
	c.InFlight = true
	c.Revealed = false
	c.WindowClosed = false
	return []Effect{StartEmission{Epoch: c.Epoch, Config: c.Config.Clone(), Char: ch}}
}

// schedule replaces any live timer of purpose.
func (m *Machine) schedule(purpose Purpose, delay time.Duration) []Effect {
	effects := m.cancel(purpose)
	m.ctx.ActiveTimeouts[purpose] = struct{}{}
	return append(effects, ScheduleTimer{Epoch: m.ctx.Epoch, Purpose: purpose, Delay: delay})
}

func (m *Machine) cancel(purpose Purpose) []Effect {
	if _, live := m.ctx.ActiveTimeouts[purpose]; !live {
		return nil
	}
	delete(m.ctx.ActiveTimeouts, purpose)
	return []Effect{CancelTimer{Purpose: purpose}}
}

func (m *Machine) publish(now time.Duration) Effect {
	return Publish{Snapshot: m.snapshot(now)}
}
