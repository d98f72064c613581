package emission

import (
	"context"
	"log/slog"

	"github.com/gigurra/cwtrainer/cmd/common/cwerr"
	"github.com/gigurra/cwtrainer/cmd/common/eventlog"
	"github.com/gigurra/cwtrainer/cmd/common/morsecode"
	"github.com/gigurra/cwtrainer/cmd/common/race"
	"github.com/gigurra/cwtrainer/cmd/common/timing"
)

type answer struct {
	outcome Outcome
	key     KeyEvent
}

// Practice plays ch and races the learner's answer against the recognition
// window. The first valid key decides: equal to ch (ignoring case) is
// correct, anything else incorrect. Without a key the character times out
// once its audio and the window have passed.
//
// Audio is stopped and feedback given before Practice returns. Replays and
// post-error spacing are left to the caller.
func Practice(ctx context.Context, env Env, ch rune) (Result, error) {
	cfg := env.Config
	if ch == ' ' {
		return practiceSilence(ctx, env)
	}

	window, err := timing.RecognitionWindow(cfg.SpeedTier, cfg.WPM)
	if err != nil {
		return Result{}, err
	}
	charDur, err := timing.CharacterDuration(ch, cfg.WPM, cfg.ExtraWordSpacing)
	if err != nil {
		return Result{}, err
	}

	em := env.begin(ch)
	env.logEmission(em)

	charCtx, cancel := context.WithCancel(ctx)
	playDone := make(chan struct{})
	go func() {
		defer close(playDone)
		if err := env.IO.PlayChar(charCtx, ch, cfg.WPM); err != nil && !cwerr.IsAborted(err) {
			slog.Warn("practice: playback failed", "char", string(ch), "error", err)
		}
	}()
	defer func() {
		cancel()
		<-playDone
	}()

	env.stage(StageAwaitingInput)

	res, err := race.Select(charCtx,
		awaitAnswer(env.Input, ch),
		race.After(env.Clock, charDur+window, answer{outcome: OutcomeTimeout}),
	)
	if err != nil {
		return Result{}, err
	}

	result := Result{Emission: em, Outcome: res.Value.outcome}
	switch result.Outcome {
	case OutcomeCorrect, OutcomeIncorrect:
		result.Pressed = res.Value.key.Key
		result.Latency = res.Value.key.At - em.StartedAt
		env.IO.StopAudio()
		env.IO.Feedback(result.Outcome, ch)
		env.IO.Log(answerEvent(result))
	case OutcomeTimeout:
		env.IO.Feedback(OutcomeTimeout, ch)
		env.IO.Log(eventlog.Timeout{
			ID:   em.ID,
			Char: string(ch),
			At:   eventlog.ToMillis(env.Clock.Now()),
		})
	}
	return result, nil
}

// awaitAnswer takes the first key with a morse pattern and judges it
// against ch. One subscription claims the key, so a rapid second press can
// never overtake the first. Keys without a pattern are skipped.
func awaitAnswer(input InputBus, ch rune) race.Arm[answer] {
	return func(ctx context.Context) (answer, error) {
		ev, err := input.TakeUntil(ctx, func(ev KeyEvent) bool {
			return morsecode.IsValidInput(ev.Key)
		})
		if err != nil {
			return answer{}, err
		}
		if morsecode.Equal(ev.Key, ch) {
			return answer{outcome: OutcomeCorrect, key: ev}, nil
		}
		return answer{outcome: OutcomeIncorrect, key: ev}, nil
	}
}

func answerEvent(r Result) eventlog.Event {
	at := eventlog.ToMillis(r.Emission.StartedAt + r.Latency)
	if r.Outcome == OutcomeCorrect {
		return eventlog.Correct{
			ID:      r.Emission.ID,
			Char:    string(r.Emission.Char),
			Latency: eventlog.ToMillis(r.Latency),
			At:      at,
		}
	}
	return eventlog.Incorrect{
		ID:      r.Emission.ID,
		Char:    string(r.Emission.Char),
		Pressed: string(r.Pressed),
		Latency: eventlog.ToMillis(r.Latency),
		At:      at,
	}
}

// practiceSilence sends a word gap. Nothing can be answered, so it counts as
// correct at once.
func practiceSilence(ctx context.Context, env Env) (Result, error) {
	silence, err := timing.CharacterDuration(' ', env.Config.WPM, env.Config.ExtraWordSpacing)
	if err != nil {
		return Result{}, err
	}
	em := env.begin(' ')
	if err := env.Clock.Sleep(ctx, silence); err != nil {
		return Result{}, err
	}
	return Result{Emission: em, Outcome: OutcomeCorrect}, nil
}
