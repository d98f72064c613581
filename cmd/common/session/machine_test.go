package session

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigurra/cwtrainer/cmd/common/cwerr"
	"github.com/gigurra/cwtrainer/cmd/common/emission"
	"github.com/gigurra/cwtrainer/cmd/common/eventlog"
	"github.com/gigurra/cwtrainer/cmd/common/timing"
)

// sequence picks the characters of chars in order, wrapping around.
func sequence(chars string) Picker {
	runes := []rune(chars)
	i := 0
	return func([]rune, rune) rune {
		r := runes[i%len(runes)]
		i++
		return r
	}
}

func practiceConfig() emission.SessionConfig {
	return emission.SessionConfig{
		Mode:          emission.ModePractice,
		WPM:           20,
		FarnsworthWPM: 20,
		SpeedTier:     timing.Fast,
		Length:        time.Second,
		Alphabet:      []rune("AE"),
		FeedbackDelay: 100 * time.Millisecond,
	}
}

func effectsOf[T Effect](effects []Effect) []T {
	var out []T
	for _, e := range effects {
		if t, ok := e.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

func TestMachine_StartEmitsFirstCharacter(t *testing.T) {
	m := NewMachine(sequence("A"))
	effects := m.Handle(Start{Config: practiceConfig()}, 0)

	require.Len(t, effects, 3)
	log := effects[0].(Log).Event.(eventlog.SessionStart)
	assert.Equal(t, "practice", log.Mode)
	assert.Equal(t, "AE", log.Alphabet)
	assert.Equal(t, StartEmission{Epoch: 1, Config: practiceConfig(), Char: 'A'}, effects[1])
	snap := effects[2].(Publish).Snapshot
	assert.Equal(t, PhaseEmitting, snap.Phase)
	assert.Equal(t, 'A', snap.Current)
	assert.Equal(t, time.Second, snap.Remaining)

	ctx := m.Context()
	assert.True(t, ctx.InFlight)
	assert.EqualValues(t, 1, ctx.Epoch)

	assert.Nil(t, m.Handle(Start{Config: practiceConfig()}, 0), "start is only accepted when idle or ended")
}

func TestMachine_EpochInvariant(t *testing.T) {
	m := NewMachine(sequence("AE"))
	m.Handle(Start{Config: practiceConfig()}, 0)
	before := m.Context().Epoch

	effects := m.Handle(StageReached{Epoch: before, Stage: emission.StageAwaitingInput}, 0)
	timers := effectsOf[ScheduleTimer](effects)
	require.Len(t, timers, 1)
	stale := timers[0]
	assert.Equal(t, PurposeRecognitionWindow, stale.Purpose)
	assert.Equal(t, 800*time.Millisecond, stale.Delay)

	m.Handle(End{Reason: ReasonStopped}, 10*time.Millisecond)
	m.Handle(Start{Config: practiceConfig()}, 20*time.Millisecond)

	after := m.Context().Epoch
	assert.Equal(t, before+2, after)

	assert.Empty(t, m.Handle(TimerFired{Epoch: stale.Epoch, Purpose: stale.Purpose}, 900*time.Millisecond))
	assert.Empty(t, m.Handle(EmissionDone{Epoch: stale.Epoch, Result: emission.Result{Outcome: emission.OutcomeTimeout}}, 900*time.Millisecond))
	assert.Empty(t, m.Handle(Advance{Epoch: stale.Epoch}, 900*time.Millisecond))
	assert.Zero(t, m.Context().Stats.Timeouts)
}

func TestMachine_EndIsNoOpWhenNotRunning(t *testing.T) {
	m := NewMachine(nil)
	assert.Empty(t, m.Handle(End{Reason: ReasonStopped}, 0))

	m.Handle(Start{Config: practiceConfig()}, 0)
	effects := m.Handle(End{Reason: ReasonStopped}, 0)
	require.Len(t, effects, 4)
	assert.Equal(t, CancelAllTimeouts{}, effects[0])
	assert.Equal(t, "stopped", effects[1].(Log).Event.(eventlog.SessionEnd).Reason)
	assert.Equal(t, EndSession{Reason: ReasonStopped}, effects[2])

	assert.Empty(t, m.Handle(End{Reason: ReasonStopped}, 0))
	assert.EqualValues(t, 2, m.Context().Epoch)
	assert.Empty(t, m.Context().ActiveTimeouts)
}

func TestMachine_CorrectAnswerAdvancesAfterFeedbackDelay(t *testing.T) {
	m := NewMachine(sequence("AE"))
	m.Handle(Start{Config: practiceConfig()}, 0)
	m.Handle(StageReached{Epoch: 1, Stage: emission.StageAwaitingInput}, 0)

	result := emission.Result{
		Emission: emission.Emission{Char: 'A'},
		Outcome:  emission.OutcomeCorrect,
		Latency:  320 * time.Millisecond,
		Pressed:  'a',
	}
	effects := m.Handle(EmissionDone{Epoch: 1, Result: result}, 320*time.Millisecond)
	assert.Equal(t, []Effect{
		CancelTimer{Purpose: PurposeRecognitionWindow},
		ScheduleTimer{Epoch: 1, Purpose: PurposeFeedbackDelay, Delay: 100 * time.Millisecond},
	}, effects[:2])
	snap := effects[2].(Publish).Snapshot
	assert.Equal(t, PhaseFeedback, snap.Phase)
	assert.Equal(t, emission.OutcomeCorrect, snap.Practice.LastOutcome)
	assert.Equal(t, 1, snap.Stats.Correct)

	effects = m.Handle(TimerFired{Epoch: 1, Purpose: PurposeFeedbackDelay}, 420*time.Millisecond)
	starts := effectsOf[StartEmission](effects)
	require.Len(t, starts, 1)
	assert.Equal(t, 'E', starts[0].Char)
	assert.Equal(t, []rune{'A'}, m.Context().Previous)

	assert.Empty(t, m.Handle(TimerFired{Epoch: 1, Purpose: PurposeFeedbackDelay}, 430*time.Millisecond),
		"a timer that already fired is no longer live")
}

func TestMachine_AdvanceIgnoredWhileInFlight(t *testing.T) {
	m := NewMachine(sequence("AE"))
	m.Handle(Start{Config: practiceConfig()}, 0)
	assert.Empty(t, m.Handle(Advance{Epoch: 1}, 5*time.Second))
	assert.Equal(t, PhaseEmitting, m.Context().Phase)
}

func TestMachine_ExpiryOnlyOnNextAdvance(t *testing.T) {
	m := NewMachine(sequence("AE"))
	m.Handle(Start{Config: practiceConfig()}, 0)

	done := emission.Result{Emission: emission.Emission{Char: 'A'}, Outcome: emission.OutcomeTimeout}
	effects := m.Handle(EmissionDone{Epoch: 1, Result: done}, 1200*time.Millisecond)
	assert.Empty(t, effectsOf[EndSession](effects), "expiry never pre-empts the current emission")
	assert.Equal(t, PhaseFeedback, m.Context().Phase)

	effects = m.Handle(Advance{Epoch: 1}, 1200*time.Millisecond)
	ends := effectsOf[EndSession](effects)
	require.Len(t, ends, 1)
	assert.Equal(t, ReasonCompleted, ends[0].Reason)
	assert.Equal(t, PhaseEnded, m.Context().Phase)
}

func TestMachine_AdvanceBeforeExpiryContinues(t *testing.T) {
	m := NewMachine(sequence("AE"))
	m.Handle(Start{Config: practiceConfig()}, 0)
	m.Handle(EmissionDone{Epoch: 1, Result: emission.Result{Outcome: emission.OutcomeCorrect}}, 900*time.Millisecond)

	effects := m.Handle(Advance{Epoch: 1}, 999*time.Millisecond)
	assert.Len(t, effectsOf[StartEmission](effects), 1)
	assert.Equal(t, PhaseEmitting, m.Context().Phase)
}

func TestMachine_EmissionErrors(t *testing.T) {
	m := NewMachine(sequence("AE"))
	m.Handle(Start{Config: practiceConfig()}, 0)

	assert.Empty(t, m.Handle(EmissionDone{Epoch: 1, Err: cwerr.ErrAborted}, 0), "aborts are not failures")

	boom := errors.New("boom")
	effects := m.Handle(EmissionDone{Epoch: 1, Err: boom}, 0)
	ends := effectsOf[EndSession](effects)
	require.Len(t, ends, 1)
	assert.Equal(t, ReasonError, ends[0].Reason)
	assert.ErrorIs(t, ends[0].Err, boom)
}

func TestMachine_SessionEndLogsStartEpoch(t *testing.T) {
	m := NewMachine(sequence("A"))
	for range 2 {
		start := effectsOf[Log](m.Handle(Start{Config: practiceConfig()}, 0))
		end := effectsOf[Log](m.Handle(End{Reason: ReasonStopped}, time.Second))
		require.Len(t, start, 1)
		require.Len(t, end, 1)
		assert.Equal(t,
			start[0].Event.(eventlog.SessionStart).Epoch,
			end[0].Event.(eventlog.SessionEnd).Epoch)
	}
	assert.EqualValues(t, 4, m.Context().Epoch)
}

func TestMachine_RevealDelayRevealsOnTime(t *testing.T) {
	cfg := practiceConfig()
	cfg.Mode = emission.ModeListen
	m := NewMachine(sequence("AE"))
	m.Handle(Start{Config: cfg}, 0)
	m.Handle(StageReached{Epoch: 1, Stage: emission.StagePreReveal}, 300*time.Millisecond)

	effects := m.Handle(TimerFired{Epoch: 1, Purpose: PurposeRevealDelay}, 696*time.Millisecond)
	require.Len(t, effects, 1)
	snap := effects[0].(Publish).Snapshot
	assert.Equal(t, PhaseReveal, snap.Phase)
	assert.True(t, snap.Listen.Revealed)
	assert.NotContains(t, m.Context().ActiveTimeouts, PurposeRevealDelay)

	// The late report from the program changes nothing but is published.
	effects = m.Handle(StageReached{Epoch: 1, Stage: emission.StageRevealed}, 697*time.Millisecond)
	assert.Empty(t, effectsOf[CancelTimer](effects))
	assert.Equal(t, PhaseReveal, m.Context().Phase)

	assert.Empty(t, m.Handle(TimerFired{Epoch: 1, Purpose: PurposeRevealDelay}, 700*time.Millisecond))
}

func TestMachine_ListenStages(t *testing.T) {
	cfg := practiceConfig()
	cfg.Mode = emission.ModeListen
	cfg.FarnsworthWPM = 10
	m := NewMachine(sequence("AE"))
	m.Handle(Start{Config: cfg}, 0)

	effects := m.Handle(StageReached{Epoch: 1, Stage: emission.StagePreReveal}, 300*time.Millisecond)
	assert.Equal(t, ScheduleTimer{Epoch: 1, Purpose: PurposeRevealDelay, Delay: 396 * time.Millisecond}, effects[0])
	assert.Equal(t, PhasePreRevealDelay, m.Context().Phase)

	effects = m.Handle(StageReached{Epoch: 1, Stage: emission.StageRevealed}, 696*time.Millisecond)
	assert.Equal(t, CancelTimer{Purpose: PurposeRevealDelay}, effects[0])
	snap := effects[1].(Publish).Snapshot
	assert.Equal(t, PhaseReveal, snap.Phase)
	assert.True(t, snap.Listen.Revealed)

	effects = m.Handle(EmissionDone{Epoch: 1, Result: emission.Result{
		Emission: emission.Emission{Char: 'A'},
		Outcome:  emission.OutcomePlayed,
	}}, 900*time.Millisecond)
	assert.Equal(t, ScheduleTimer{Epoch: 1, Purpose: PurposePostRevealDelay}, effects[0])
	assert.Equal(t, PhaseReveal, m.Context().Phase)
	assert.Equal(t, 1, m.Context().Stats.Emitted)
	assert.Zero(t, m.Context().Stats.Answered())
}

func TestMachine_LiveCopyTransmitted(t *testing.T) {
	cfg := practiceConfig()
	cfg.Mode = emission.ModeLiveCopy
	cfg.Length = time.Hour
	m := NewMachine(sequence("CQ"))
	m.Handle(Start{Config: cfg}, 0)

	var snap Snapshot
	for i, ch := range "CQC" {
		effects := m.Handle(EmissionDone{Epoch: 1, Result: emission.Result{
			Emission: emission.Emission{Char: ch},
			Outcome:  emission.OutcomePlayed,
		}}, time.Duration(i)*time.Second)
		snap = effects[len(effects)-1].(Publish).Snapshot
		m.Handle(TimerFired{Epoch: 1, Purpose: PurposePostRevealDelay}, time.Duration(i)*time.Second)
	}
	assert.Equal(t, "CQC", snap.LiveCopy.Transmitted)
}

func TestMachine_SnapshotIsDetached(t *testing.T) {
	m := NewMachine(sequence("AE"))
	m.Handle(Start{Config: practiceConfig()}, 0)
	m.Handle(EmissionDone{Epoch: 1, Result: emission.Result{
		Emission: emission.Emission{Char: 'A'},
		Outcome:  emission.OutcomeCorrect,
	}}, 0)
	effects := m.Handle(Advance{Epoch: 1}, 0)
	snap := effectsOf[Publish](effects)[0].Snapshot

	snap.Previous[0] = 'Z'
	snap.Stats.PerChar['Z'] = CharStats{Attempts: 99}
	ctx := m.Context()
	assert.Equal(t, []rune{'A'}, ctx.Previous)
	assert.NotContains(t, ctx.Stats.PerChar, 'Z')
}

func TestRandomPicker_AvoidsRepeats(t *testing.T) {
	pick := RandomPicker(rand.New(rand.NewPCG(1, 2)))
	alphabet := []rune("KM")
	prev := 'K'
	for range 50 {
		next := pick(alphabet, prev)
		require.NotEqual(t, prev, next)
		prev = next
	}

	single := []rune("E")
	assert.Equal(t, 'E', pick(single, 'E'), "a single character alphabet must repeat")
	assert.NotEqual(t, ' ', pick([]rune("A "), ' '), "sessions never open with a word gap")
}

func TestStats(t *testing.T) {
	var s Stats
	s.record(emission.Result{Emission: emission.Emission{Char: 'A'}, Outcome: emission.OutcomeCorrect, Latency: 200 * time.Millisecond})
	s.record(emission.Result{Emission: emission.Emission{Char: 'A'}, Outcome: emission.OutcomeCorrect, Latency: 400 * time.Millisecond})
	s.record(emission.Result{Emission: emission.Emission{Char: 'B'}, Outcome: emission.OutcomeIncorrect})
	s.record(emission.Result{Emission: emission.Emission{Char: 'C'}, Outcome: emission.OutcomeTimeout})
	s.record(emission.Result{Emission: emission.Emission{Char: ' '}, Outcome: emission.OutcomeCorrect})

	assert.Equal(t, 4, s.Emitted)
	assert.Equal(t, 4, s.Answered())
	assert.InDelta(t, 0.5, s.Accuracy(), 1e-9)
	assert.Equal(t, 300*time.Millisecond, s.MeanLatency())
	assert.Equal(t, CharStats{Attempts: 2, Correct: 2, TotalLatency: 600 * time.Millisecond}, s.PerChar['A'])
}
