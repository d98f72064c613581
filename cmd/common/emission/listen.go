package emission

import (
	"context"
	"log/slog"

	"github.com/gigurra/cwtrainer/cmd/common/cwerr"
	"github.com/gigurra/cwtrainer/cmd/common/timing"
)

// Listen plays ch, then reveals it two thirds into the Farnsworth gap.
// Playback failures are logged; the reveal happens regardless.
func Listen(ctx context.Context, env Env, ch rune) (Result, error) {
	cfg := env.Config
	split, err := timing.ListenModeTiming(cfg.WPM, cfg.FarnsworthWPM)
	if err != nil {
		return Result{}, err
	}

	env.IO.Hide()
	em := env.begin(ch)
	env.logEmission(em)

	if err := play(ctx, env, ch); err != nil {
		return Result{}, err
	}

	env.stage(StagePreReveal)
	if err := env.Clock.Sleep(ctx, split.PreReveal); err != nil {
		return Result{}, err
	}

	env.IO.Reveal(ch)
	env.stage(StageRevealed)
	if err := env.Clock.Sleep(ctx, split.PostReveal); err != nil {
		return Result{}, err
	}
	return Result{Emission: em, Outcome: OutcomePlayed}, nil
}

// LiveCopy plays ch and waits out the Farnsworth gap. What the learner
// types is compared with the sent text once the session is over.
func LiveCopy(ctx context.Context, env Env, ch rune) (Result, error) {
	cfg := env.Config
	gap, err := timing.FarnsworthSpacing(cfg.WPM, cfg.FarnsworthWPM)
	if err != nil {
		return Result{}, err
	}

	em := env.begin(ch)
	env.logEmission(em)

	if err := play(ctx, env, ch); err != nil {
		return Result{}, err
	}
	if err := env.Clock.Sleep(ctx, gap); err != nil {
		return Result{}, err
	}
	return Result{Emission: em, Outcome: OutcomePlayed}, nil
}

// play awaits playback of ch. Only cancellation of ctx is returned; other
// failures are logged and swallowed.
func play(ctx context.Context, env Env, ch rune) error {
	err := env.IO.PlayChar(ctx, ch, env.Config.WPM)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return cwerr.Aborted(ctx)
	}
	slog.Warn("playback failed", "mode", env.Config.Mode, "char", string(ch), "error", err)
	return nil
}
