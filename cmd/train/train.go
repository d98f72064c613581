// Package train holds the interactive training commands: practice, listen
// and copy.
package train

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/GiGurra/boa/pkg/boa"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/gigurra/cwtrainer/cmd/common"
	"github.com/gigurra/cwtrainer/cmd/common/audio"
	"github.com/gigurra/cwtrainer/cmd/common/clock"
	"github.com/gigurra/cwtrainer/cmd/common/config"
	"github.com/gigurra/cwtrainer/cmd/common/emission"
	"github.com/gigurra/cwtrainer/cmd/common/eventlog"
	"github.com/gigurra/cwtrainer/cmd/common/keybus"
	"github.com/gigurra/cwtrainer/cmd/common/session"
)

type Params struct {
	WPM        int    `short:"w" help:"Character speed in words per minute (0 = from config)." default:"0"`
	Farnsworth int    `short:"f" help:"Effective speed with Farnsworth spacing (0 = from config)." default:"0"`
	Tier       string `short:"t" help:"Recognition window: slow, medium, fast or lightning." optional:"true"`
	Seconds    int    `short:"s" help:"Session length in seconds (0 = from config)." default:"0"`
	Alphabet   string `short:"a" help:"Characters to train. Overrides --koch." optional:"true"`
	Koch       int    `short:"k" help:"Koch lesson: train the first N characters of the Koch order (0 = from config)." default:"0"`
	Replay     bool   `short:"r" help:"Play missed characters again." default:"false"`
	Debug      bool   `help:"Log at debug level to the log file." default:"false"`
}

func PracticeCmd() *cobra.Command {
	return cmd(emission.ModePractice, "practice", "Hear a character, type it before the window closes",
		"Plays random characters from the training alphabet. Type each one before its recognition window runs out.")
}

func ListenCmd() *cobra.Command {
	return cmd(emission.ModeListen, "listen", "Hear a character, then see it revealed",
		"Plays random characters and reveals each one after a pause. No typing needed.")
}

func CopyCmd() *cobra.Command {
	return cmd(emission.ModeLiveCopy, "copy", "Copy a continuous stream of characters",
		"Sends characters back to back with Farnsworth spacing. Type what you hear; the copy is compared with what was sent when the session ends.")
}

func cmd(mode emission.Mode, use, short, long string) *cobra.Command {
	return boa.CmdT[Params]{
		Use:         use,
		Short:       short,
		Long:        long + "\n\nctrl+r restarts the session with the current settings file, esc quits.",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := Run(mode, params); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", use, err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

// apply overrides the settings that were given on the command line.
func (p *Params) apply(t *config.TrainingConfig) {
	if p.WPM > 0 {
		t.WPM = p.WPM
	}
	if p.Farnsworth > 0 {
		t.FarnsworthWPM = p.Farnsworth
	}
	if p.Tier != "" {
		t.SpeedTier = strings.ToLower(p.Tier)
	}
	if p.Seconds > 0 {
		t.SessionSeconds = p.Seconds
	}
	if p.Koch > 0 {
		t.KochLevel = p.Koch
		t.Alphabet = ""
	}
	if p.Alphabet != "" {
		t.Alphabet = p.Alphabet
	}
	if p.Replay {
		t.Replay = true
	}
}

// trainer connects the TUI to the session runner. The settings are swapped
// when the config file changes and used by the next restart.
type trainer struct {
	mode   emission.Mode
	params Params
	cfg    atomic.Pointer[config.Config]
	runner *session.Runner
	bus    *keybus.Bus
}

func (t *trainer) sessionConfig() (emission.SessionConfig, error) {
	training := *t.cfg.Load().Training
	t.params.apply(&training)
	return training.SessionConfig(t.mode)
}

func (t *trainer) Restart() (emission.SessionConfig, error) {
	cfg, err := t.sessionConfig()
	if err != nil {
		return cfg, err
	}
	return cfg, t.runner.Start(cfg)
}

func (t *trainer) Publish(key rune) {
	t.bus.Publish(key)
}

func Run(mode emission.Mode, params *Params) error {
	logCloser := common.SetupLogging(params.Debug)
	defer logCloser.Close()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	t := &trainer{mode: mode, params: *params}
	t.cfg.Store(cfg)
	first, err := t.sessionConfig()
	if err != nil {
		return err
	}

	events, err := eventlog.Open(eventlog.DefaultPath())
	if err != nil {
		return err
	}
	defer events.Close()

	ctx, cancel := common.SignalContext()
	defer cancel()

	clk := clock.NewReal()
	t.bus = keybus.New(clk)
	tio := &trainIO{
		player: audio.New(clk, cfg.AudioOptions()),
		events: events,
	}

	m := newModel(mode, first, t)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	tio.send = p.Send

	t.runner = session.NewRunner(clk, tio, t.bus, session.WithObserver(func(s session.Snapshot) {
		p.Send(snapshotMsg(s))
	}))

	runCtx, stopRunner := context.WithCancel(ctx)
	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		if err := t.runner.Run(runCtx); err != nil {
			slog.Error("runner stopped", "error", err)
		}
	}()
	go func() {
		err := config.Watch(runCtx, func(c *config.Config) {
			t.cfg.Store(c)
			p.Send(reloadMsg{})
		})
		if err != nil {
			slog.Warn("config watch disabled", "error", err)
		}
	}()

	if err := t.runner.Start(first); err != nil {
		stopRunner()
		return err
	}

	final, runErr := p.Run()
	stopRunner()
	<-runnerDone

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	fm, ok := final.(model)
	if !ok {
		return nil
	}
	return finish(os.Stdout, fm.summary(t.runner.Snapshot()), cfg.Notify)
}
