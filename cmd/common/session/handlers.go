package session

import (
	"context"
	"log/slog"

	"github.com/gigurra/cwtrainer/cmd/common/cwerr"
	"github.com/gigurra/cwtrainer/cmd/common/emission"
	"github.com/gigurra/cwtrainer/cmd/common/timing"
)

// handle runs the program of env's mode around ch, adding the practice
// follow-up for missed characters.
func handle(ctx context.Context, env emission.Env, ch rune) (emission.Result, error) {
	switch env.Config.Mode {
	case emission.ModePractice:
		return handlePractice(ctx, env, ch)
	default:
		return emission.Run(ctx, env, ch)
	}
}

// handlePractice replays a missed character if configured, then always
// leaves a standard character gap before the next one.
func handlePractice(ctx context.Context, env emission.Env, ch rune) (emission.Result, error) {
	res, err := emission.Practice(ctx, env, ch)
	if err != nil || !res.Outcome.Failed() {
		return res, err
	}

	cfg := env.Config
	if cfg.Replay {
		if err := env.IO.Replay(ctx, ch, cfg.WPM); err != nil {
			if ctx.Err() != nil {
				return res, cwerr.Aborted(ctx)
			}
			slog.Warn("practice: replay failed", "char", string(ch), "error", err)
		}
	}

	spacing, err := timing.InterCharacterSpacing(cfg.WPM)
	if err != nil {
		return res, err
	}
	if err := env.Clock.Sleep(ctx, spacing); err != nil {
		return res, err
	}
	return res, nil
}
