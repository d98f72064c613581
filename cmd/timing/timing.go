package timing

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/gigurra/cwtrainer/cmd/common"
	"github.com/gigurra/cwtrainer/cmd/common/morsecode"
	cwtiming "github.com/gigurra/cwtrainer/cmd/common/timing"
)

type Params struct {
	WPM        int    `short:"w" help:"Character speed in words per minute." default:"20"`
	Farnsworth int    `short:"f" help:"Effective speed with Farnsworth spacing (0 = same as --wpm)." default:"0"`
	Chars      string `short:"c" help:"Also list the length of these characters." optional:"true"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:         "timing",
		Short:       "Show element, spacing and window durations for a speed",
		Long:        "Prints the dit length, spacings, Farnsworth gap, listen mode split and the recognition window of every speed tier.",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := Run(params, os.Stdout, common.TerminalWidth()); err != nil {
				fmt.Fprintf(os.Stderr, "timing: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func Run(params *Params, w io.Writer, width int) error {
	effective := params.Farnsworth
	if effective == 0 {
		effective = params.WPM
	}
	sheet, err := cwtiming.Table(params.WPM, effective)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetAllowedRowLength(width)
	t.SetTitle("%d wpm, %d wpm effective", sheet.CharacterWPM, sheet.EffectiveWPM)
	t.AppendHeader(table.Row{"Element", "Duration", "Units"})
	t.AppendRow(table.Row{"Dit", ms(sheet.Dit), 1})
	t.AppendRow(table.Row{"Dah", ms(sheet.Dah), 3})
	t.AppendRow(table.Row{"Intra-symbol gap", ms(sheet.IntraSymbol), 1})
	t.AppendRow(table.Row{"Inter-character gap", ms(sheet.InterChar), 3})
	t.AppendRow(table.Row{"Inter-word gap", ms(sheet.InterWord), 7})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Farnsworth gap", ms(sheet.Farnsworth), units(sheet.Farnsworth, sheet.Dit)})
	t.AppendRow(table.Row{"Listen before reveal", ms(sheet.Listen.PreReveal), ""})
	t.AppendRow(table.Row{"Listen after reveal", ms(sheet.Listen.PostReveal), ""})
	t.AppendSeparator()
	for _, tier := range cwtiming.SpeedTiers {
		t.AppendRow(table.Row{"Window " + string(tier), ms(sheet.Windows[tier]), units(sheet.Windows[tier], sheet.Dit)})
	}
	t.Render()

	chars := morsecode.Normalize(params.Chars)
	if len(chars) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	ct := table.NewWriter()
	ct.SetOutputMirror(w)
	ct.SetStyle(table.StyleLight)
	ct.SetAllowedRowLength(width)
	ct.AppendHeader(table.Row{"Char", "Code", "Units", "Duration"})
	for _, ch := range chars {
		d, err := cwtiming.CharacterDuration(ch, params.WPM, 0)
		if err != nil {
			return err
		}
		pattern, _ := morsecode.Pattern(ch)
		label := string(ch)
		if ch == ' ' {
			label, pattern = "space", morsecode.WordSeparator
		}
		ct.AppendRow(table.Row{label, pattern, cwtiming.Units(ch, 0), ms(d)})
	}
	ct.Render()
	return nil
}

func ms(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

// units expresses d in dits, with one decimal when it is not whole.
func units(d, dit time.Duration) string {
	u := float64(d) / float64(dit)
	s := fmt.Sprintf("%.1f", u)
	return strings.TrimSuffix(s, ".0")
}
