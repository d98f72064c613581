package train

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/gen2brain/beeep"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/samber/lo"

	"github.com/gigurra/cwtrainer/cmd/common/emission"
	"github.com/gigurra/cwtrainer/cmd/common/morsecode"
	"github.com/gigurra/cwtrainer/cmd/common/session"
)

var (
	clipboardWriteAll = clipboard.WriteAll
	notify            = func(title, message string) error { return beeep.Notify(title, message, "") }
)

// summary is what is printed once the TUI has closed.
type summary struct {
	Mode     emission.Mode
	Config   emission.SessionConfig
	Snapshot session.Snapshot
	Typed    string
}

func (s summary) headline() string {
	st := s.Snapshot.Stats
	if s.Mode == emission.ModePractice {
		return fmt.Sprintf("%d/%d correct (%.0f%%) at %d wpm", st.Correct, st.Answered(), 100*st.Accuracy(), s.Config.WPM)
	}
	return fmt.Sprintf("%d characters at %d wpm", st.Emitted, s.Config.WPM)
}

// finish prints the summary, copies the sent text of a copy session to the
// clipboard and sends a desktop notification for completed sessions.
func finish(w io.Writer, s summary, notifyEnabled bool) error {
	if s.Snapshot.Epoch == 0 {
		return nil
	}
	renderSummary(w, s)

	if sent := s.Snapshot.LiveCopy.Transmitted; s.Mode == emission.ModeLiveCopy && sent != "" {
		if err := clipboardWriteAll(sent); err != nil {
			slog.Warn("failed to copy sent text", "error", err)
		} else {
			fmt.Fprintln(w, "Sent text copied to clipboard.")
		}
	}

	if notifyEnabled && s.Snapshot.EndReason == session.ReasonCompleted {
		if err := notify("cwtrainer "+string(s.Mode)+" complete", s.headline()); err != nil {
			slog.Warn("failed to send notification", "error", err)
		}
	}
	return nil
}

func renderSummary(w io.Writer, s summary) {
	snap := s.Snapshot
	st := snap.Stats

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("%s: %s", s.Mode, s.headline())
	t.AppendRow(table.Row{"Ended", snap.EndReason})
	t.AppendRow(table.Row{"Duration", snap.Elapsed.Round(time.Second)})
	t.AppendRow(table.Row{"Characters", st.Emitted})
	if s.Mode == emission.ModePractice {
		t.AppendRow(table.Row{"Correct", st.Correct})
		t.AppendRow(table.Row{"Incorrect", st.Incorrect})
		t.AppendRow(table.Row{"Timeouts", st.Timeouts})
		t.AppendRow(table.Row{"Mean latency", st.MeanLatency().Round(time.Millisecond)})
	}
	t.Render()

	switch s.Mode {
	case emission.ModePractice:
		if len(st.PerChar) > 0 {
			fmt.Fprintln(w)
			renderPerChar(w, st)
		}
	case emission.ModeLiveCopy:
		fmt.Fprintln(w)
		renderCopy(w, compareCopy(snap.LiveCopy.Transmitted, s.Typed))
	}
}

func renderPerChar(w io.Writer, st session.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Char", "Code", "Sent", "Correct", "Accuracy", "Mean latency"})

	chars := lo.Keys(st.PerChar)
	slices.Sort(chars)
	for _, ch := range chars {
		cs := st.PerChar[ch]
		pattern, _ := morsecode.Pattern(ch)
		mean := time.Duration(0)
		if cs.Correct > 0 {
			mean = cs.TotalLatency / time.Duration(cs.Correct)
		}
		t.AppendRow(table.Row{
			string(ch),
			pattern,
			cs.Attempts,
			cs.Correct,
			fmt.Sprintf("%.0f%%", 100*float64(cs.Correct)/float64(cs.Attempts)),
			mean.Round(time.Millisecond),
		})
	}
	t.Render()
}

func renderCopy(w io.Writer, c copyResult) {
	fmt.Fprintf(w, "%s %s\n", runewidth.FillRight("sent", 6), c.SentLine)
	fmt.Fprintf(w, "%s %s\n", runewidth.FillRight("copy", 6), c.TypedLine)
	fmt.Fprintf(w, "%s %s\n", runewidth.FillRight("", 6), c.MarkLine)
	fmt.Fprintf(w, "%d errors, %.0f%% copied\n", c.Distance, 100*c.Accuracy)
}

// copyResult compares the copied text with the sent text.
type copyResult struct {
	Distance int
	// Accuracy is 1 - Distance/len(sent), floored at 0.
	Accuracy  float64
	SentLine  string
	TypedLine string
	// MarkLine has a ^ under every column that differs.
	MarkLine string
}

const gap = '_'

// compareCopy aligns typed against sent with a minimal edit script.
// Comparison ignores case.
func compareCopy(sent, typed string) copyResult {
	a := []rune(strings.ToUpper(sent))
	b := []rune(strings.ToUpper(typed))

	// d[i][j] is the edit distance between a[:i] and b[:j].
	d := make([][]int, len(a)+1)
	for i := range d {
		d[i] = make([]int, len(b)+1)
		d[i][0] = i
	}
	for j := range d[0] {
		d[0][j] = j
	}
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
		}
	}

	var top, bottom []rune
	var diff []bool
	for i, j := len(a), len(b); i > 0 || j > 0; {
		switch {
		case i > 0 && j > 0 && d[i][j] == d[i-1][j-1]+lo.Ternary(a[i-1] == b[j-1], 0, 1):
			top = append(top, a[i-1])
			bottom = append(bottom, b[j-1])
			diff = append(diff, a[i-1] != b[j-1])
			i--
			j--
		case i > 0 && d[i][j] == d[i-1][j]+1:
			top = append(top, a[i-1])
			bottom = append(bottom, gap)
			diff = append(diff, true)
			i--
		default:
			top = append(top, gap)
			bottom = append(bottom, b[j-1])
			diff = append(diff, true)
			j--
		}
	}
	slices.Reverse(top)
	slices.Reverse(bottom)
	slices.Reverse(diff)

	var sentLine, typedLine, markLine strings.Builder
	for k := range top {
		width := max(runewidth.RuneWidth(top[k]), runewidth.RuneWidth(bottom[k]), 1)
		sentLine.WriteString(runewidth.FillRight(string(top[k]), width))
		typedLine.WriteString(runewidth.FillRight(string(bottom[k]), width))
		mark := " "
		if diff[k] {
			mark = "^"
		}
		markLine.WriteString(runewidth.FillRight(mark, width))
	}

	distance := d[len(a)][len(b)]
	accuracy := 0.0
	if len(a) > 0 {
		accuracy = max(1-float64(distance)/float64(len(a)), 0)
	}
	return copyResult{
		Distance:  distance,
		Accuracy:  accuracy,
		SentLine:  sentLine.String(),
		TypedLine: typedLine.String(),
		MarkLine:  strings.TrimRight(markLine.String(), " "),
	}
}
