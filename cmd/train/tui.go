package train

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/gigurra/cwtrainer/cmd/common/emission"
	"github.com/gigurra/cwtrainer/cmd/common/morsecode"
	"github.com/gigurra/cwtrainer/cmd/common/session"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	charStyle    = lipgloss.NewStyle().Bold(true).Border(lipgloss.RoundedBorder()).Padding(1, 4)
	correctStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))  // Green
	wrongStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")) // Bright red
	timeoutStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226")) // Yellow
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const tickInterval = 250 * time.Millisecond

type tickMsg time.Time

// controller is what the TUI drives.
type controller interface {
	Restart() (emission.SessionConfig, error)
	Publish(key rune)
}

type model struct {
	mode emission.Mode
	cfg  emission.SessionConfig
	ctl  controller

	snap     session.Snapshot
	snapAt   time.Time
	revealed rune
	feedback *feedbackMsg
	typed    []rune
	notice   string
	width    int
}

func newModel(mode emission.Mode, cfg emission.SessionConfig, ctl controller) model {
	return model{
		mode:  mode,
		cfg:   cfg,
		ctl:   ctl,
		width: 80,
	}
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case snapshotMsg:
		s := session.Snapshot(msg)
		if s.Epoch != m.snap.Epoch {
			m.reset()
		}
		m.snap = s
		m.snapAt = time.Now()
		return m, nil

	case revealMsg:
		m.revealed = msg.ch
		return m, nil

	case hideMsg:
		m.revealed = 0
		return m, nil

	case feedbackMsg:
		m.feedback = &msg
		return m, nil

	case reloadMsg:
		m.notice = "settings file changed, ctrl+r to restart with it"
		return m, nil

	case restartedMsg:
		if msg.err != nil {
			m.notice = "restart failed: " + msg.err.Error()
			return m, nil
		}
		m.cfg = msg.cfg
		m.notice = ""
		m.reset()
		return m, nil

	case tickMsg:
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyCtrlR:
		// Start blocks on the runner; keep it off the update loop.
		ctl := m.ctl
		return m, func() tea.Msg {
			cfg, err := ctl.Restart()
			return restartedMsg{cfg: cfg, err: err}
		}
	case tea.KeyBackspace:
		if m.mode == emission.ModeLiveCopy && len(m.typed) > 0 {
			m.typed = m.typed[:len(m.typed)-1]
		}
	case tea.KeySpace:
		m.press(' ')
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			m.press(r)
		}
	}
	return m, nil
}

func (m *model) press(r rune) {
	if !m.snap.Phase.Active() {
		return
	}
	r = unicode.ToUpper(r)
	m.ctl.Publish(r)
	if m.mode == emission.ModeLiveCopy {
		m.typed = append(m.typed, r)
	}
}

func (m *model) reset() {
	m.revealed = 0
	m.feedback = nil
	m.typed = nil
}

func (m model) remaining() time.Duration {
	r := m.snap.Remaining
	if m.snap.Phase.Active() && !m.snapAt.IsZero() {
		r -= time.Since(m.snapAt)
	}
	return max(r, 0).Truncate(time.Second)
}

func (m model) View() string {
	var b strings.Builder

	header := fmt.Sprintf("cwtrainer %s  %d/%d wpm  %s", m.mode, m.cfg.WPM, m.cfg.FarnsworthWPM, m.cfg.SpeedTier)
	b.WriteString(titleStyle.Render(header))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s left  #%d", m.remaining(), m.snap.Epoch)))
	b.WriteString("\n\n")

	switch m.mode {
	case emission.ModePractice:
		b.WriteString(m.viewPractice())
	case emission.ModeListen:
		b.WriteString(m.viewListen())
	case emission.ModeLiveCopy:
		b.WriteString(m.viewLiveCopy())
	}
	b.WriteString("\n\n")
	b.WriteString(m.viewStats())
	b.WriteString("\n")

	if m.snap.Phase == session.PhaseEnded {
		b.WriteString("\n" + m.viewEnded() + "\n")
	}
	if m.notice != "" {
		b.WriteString("\n" + noticeStyle.Render(m.notice) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("ctrl+r restart • esc quit"))
	return b.String()
}

func (m model) viewPractice() string {
	if m.feedback == nil {
		return charStyle.Render("?")
	}
	ch := string(m.feedback.ch)
	switch m.feedback.kind {
	case emission.OutcomeCorrect:
		return charStyle.Render(correctStyle.Render("✓ " + ch))
	case emission.OutcomeIncorrect:
		typed := ""
		if p := m.snap.Practice.LastPressed; p != 0 {
			typed = fmt.Sprintf("  (typed %c)", p)
		}
		return charStyle.Render(wrongStyle.Render("✗ "+ch)) + dimStyle.Render(typed)
	default:
		return charStyle.Render(timeoutStyle.Render("⌛ " + ch))
	}
}

func (m model) viewListen() string {
	if m.revealed == 0 {
		return charStyle.Render("·")
	}
	pattern, _ := morsecode.Pattern(m.revealed)
	return charStyle.Render(string(m.revealed)) + "  " + dimStyle.Render(pattern)
}

func (m model) viewLiveCopy() string {
	copied := tail(string(m.typed), max(m.width-4, 10))
	if copied == "" {
		copied = dimStyle.Render("type what you hear")
	}
	return fmt.Sprintf("sent %d\n\n%s", len([]rune(m.snap.LiveCopy.Transmitted)), charStyle.Render(copied))
}

func (m model) viewStats() string {
	st := m.snap.Stats
	if m.mode != emission.ModePractice {
		return dimStyle.Render(fmt.Sprintf("played %d", st.Emitted))
	}
	return fmt.Sprintf("%s  %s  %s  %s",
		correctStyle.Render(fmt.Sprintf("correct %d", st.Correct)),
		wrongStyle.Render(fmt.Sprintf("incorrect %d", st.Incorrect)),
		timeoutStyle.Render(fmt.Sprintf("timeout %d", st.Timeouts)),
		dimStyle.Render(fmt.Sprintf("accuracy %.0f%%  mean %s", 100*st.Accuracy(), st.MeanLatency().Round(time.Millisecond))),
	)
}

func (m model) viewEnded() string {
	switch m.snap.EndReason {
	case session.ReasonCompleted:
		return correctStyle.Render("Session complete.") + " ctrl+r for another, esc for the summary."
	case session.ReasonError:
		msg := "Session failed."
		if m.snap.Err != nil {
			msg = "Session failed: " + m.snap.Err.Error()
		}
		return wrongStyle.Render(msg)
	default:
		return dimStyle.Render("Session stopped.")
	}
}

// tail returns the end of s that fits in width terminal cells.
func tail(s string, width int) string {
	runes := []rune(s)
	w := 0
	i := len(runes)
	for i > 0 {
		cw := runewidth.RuneWidth(runes[i-1])
		if w+cw > width {
			break
		}
		w += cw
		i--
	}
	return string(runes[i:])
}

func (m model) summary(final session.Snapshot) summary {
	return summary{
		Mode:     m.mode,
		Config:   m.cfg,
		Snapshot: final,
		Typed:    string(m.typed),
	}
}
