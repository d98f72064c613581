package history

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/gigurra/cwtrainer/cmd/common"
	"github.com/gigurra/cwtrainer/cmd/common/eventlog"
)

type Params struct {
	Last int    `short:"n" help:"Show at most this many sessions, newest last (0 = all)." default:"20"`
	Mode string `short:"m" help:"Only show sessions of this mode (practice, listen, live-copy)." optional:"true"`
	JSON bool   `help:"Output as JSON." default:"false"`
	File string `help:"Event log to read (default ~/.cwtrainer/events.jsonl)." optional:"true"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:         "history",
		Short:       "List past training sessions",
		Long:        "Reads the event log and lists each session with its outcome counts, accuracy and most missed characters.",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := Run(params, os.Stdout, common.TerminalWidth()); err != nil {
				fmt.Fprintf(os.Stderr, "history: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

// Session is one session folded out of the event log.
type Session struct {
	Mode          string         `json:"mode"`
	WPM           int            `json:"wpm"`
	FarnsworthWPM int            `json:"farnsworthWpm"`
	Alphabet      string         `json:"alphabet"`
	Reason        string         `json:"reason,omitempty"`
	Duration      time.Duration  `json:"durationNs"`
	Emitted       int            `json:"emitted"`
	Correct       int            `json:"correct"`
	Incorrect     int            `json:"incorrect"`
	Timeouts      int            `json:"timeouts"`
	MeanLatency   time.Duration  `json:"meanLatencyNs"`
	Missed        map[string]int `json:"missed,omitempty"`

	latencies []time.Duration
	startedAt time.Duration
}

// Accuracy is the share of judged characters answered correctly, 0 to 1.
func (s Session) Accuracy() float64 {
	judged := s.Correct + s.Incorrect + s.Timeouts
	if judged == 0 {
		return 0
	}
	return float64(s.Correct) / float64(judged)
}

// MostMissed returns up to n characters with the most misses, worst first.
func (s Session) MostMissed(n int) []string {
	entries := lo.Entries(s.Missed)
	slices.SortFunc(entries, func(a, b lo.Entry[string, int]) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return lo.Map(lo.Subset(entries, 0, uint(n)), func(e lo.Entry[string, int], _ int) string {
		return fmt.Sprintf("%s×%d", e.Key, e.Value)
	})
}

// Fold groups events into sessions. Events before the first sessionStart
// are ignored. A session without a sessionEnd has an empty Reason.
func Fold(events []eventlog.Event) []Session {
	var sessions []Session
	for _, ev := range events {
		if start, ok := ev.(eventlog.SessionStart); ok {
			sessions = append(sessions, Session{
				Mode:          start.Mode,
				WPM:           start.WPM,
				FarnsworthWPM: start.FarnsworthWPM,
				Alphabet:      start.Alphabet,
				Missed:        map[string]int{},
				startedAt:     start.At.Duration(),
			})
			continue
		}
		if len(sessions) == 0 {
			continue
		}
		s := &sessions[len(sessions)-1]
		switch e := ev.(type) {
		case eventlog.Correct:
			s.latencies = append(s.latencies, e.Latency.Duration())
		case eventlog.Incorrect:
			s.Missed[e.Char]++
		case eventlog.Timeout:
			s.Missed[e.Char]++
		case eventlog.SessionEnd:
			s.Reason = e.Reason
			s.Duration = e.At.Duration() - s.startedAt
			s.Emitted = e.Emitted
			s.Correct = e.Correct
			s.Incorrect = e.Incorrect
			s.Timeouts = e.Timeouts
		}
	}

	for i := range sessions {
		s := &sessions[i]
		if len(s.latencies) > 0 {
			s.MeanLatency = lo.Sum(s.latencies) / time.Duration(len(s.latencies))
		}
	}
	return sessions
}

func Run(params *Params, w io.Writer, width int) error {
	path := params.File
	if path == "" {
		path = eventlog.DefaultPath()
	}
	events, err := eventlog.ReadFile(path)
	if err != nil {
		return err
	}

	sessions := Fold(events)
	if params.Mode != "" {
		mode := strings.ToLower(params.Mode)
		sessions = lo.Filter(sessions, func(s Session, _ int) bool { return s.Mode == mode })
	}
	if params.Last > 0 && len(sessions) > params.Last {
		sessions = sessions[len(sessions)-params.Last:]
	}

	if params.JSON {
		data, err := json.MarshalIndent(sessions, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded yet.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetAllowedRowLength(width)
	t.AppendHeader(table.Row{"#", "Mode", "WPM", "Length", "Ended", "Sent", "Correct", "Wrong", "Timeout", "Accuracy", "Latency", "Most missed"})
	for i, s := range sessions {
		speed := fmt.Sprint(s.WPM)
		if s.FarnsworthWPM != s.WPM {
			speed = fmt.Sprintf("%d/%d", s.WPM, s.FarnsworthWPM)
		}
		accuracy, latency := "", ""
		if s.Mode == "practice" {
			accuracy = fmt.Sprintf("%.0f%%", 100*s.Accuracy())
			latency = s.MeanLatency.Round(time.Millisecond).String()
		}
		t.AppendRow(table.Row{
			i + 1,
			s.Mode,
			speed,
			s.Duration.Round(time.Second),
			lo.Ternary(s.Reason == "", "-", s.Reason),
			s.Emitted,
			s.Correct,
			s.Incorrect,
			s.Timeouts,
			accuracy,
			latency,
			strings.Join(s.MostMissed(3), " "),
		})
	}
	t.Render()
	return nil
}
