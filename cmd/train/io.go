package train

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gigurra/cwtrainer/cmd/common/audio"
	"github.com/gigurra/cwtrainer/cmd/common/emission"
	"github.com/gigurra/cwtrainer/cmd/common/eventlog"
	"github.com/gigurra/cwtrainer/cmd/common/session"
)

type (
	snapshotMsg session.Snapshot
	revealMsg   struct{ ch rune }
	hideMsg     struct{}
	feedbackMsg struct {
		kind emission.Outcome
		ch   rune
	}
	reloadMsg    struct{}
	restartedMsg struct {
		cfg emission.SessionConfig
		err error
	}
)

// trainIO plays audio through the sidetone player, shows reveals and
// feedback in the TUI and appends events to the event log.
type trainIO struct {
	player *audio.Player
	events *eventlog.Writer
	send   func(tea.Msg)
}

func (t *trainIO) PlayChar(ctx context.Context, ch rune, wpm int) error {
	return t.player.Play(ctx, ch, wpm)
}

func (t *trainIO) StopAudio() {
	t.player.Stop()
}

func (t *trainIO) Reveal(ch rune) {
	t.send(revealMsg{ch: ch})
}

func (t *trainIO) Hide() {
	t.send(hideMsg{})
}

func (t *trainIO) Feedback(kind emission.Outcome, ch rune) {
	t.send(feedbackMsg{kind: kind, ch: ch})
}

func (t *trainIO) Replay(ctx context.Context, ch rune, wpm int) error {
	return t.player.Play(ctx, ch, wpm)
}

func (t *trainIO) Log(ev eventlog.Event) {
	if err := t.events.Write(ev); err != nil {
		slog.Warn("failed to write event", "type", ev.Type(), "error", err)
	}
}
