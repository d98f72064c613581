package morse

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/gigurra/cwtrainer/cmd/common"
	"github.com/gigurra/cwtrainer/cmd/common/audio"
	"github.com/gigurra/cwtrainer/cmd/common/clock"
	"github.com/gigurra/cwtrainer/cmd/common/config"
	"github.com/gigurra/cwtrainer/cmd/common/morsecode"
)

type Params struct {
	Text       []string `pos:"true" optional:"true" help:"Text to encode/decode. If none provided, reads from stdin."`
	Decode     bool     `short:"d" help:"Decode morse code to text." default:"false"`
	Beep       bool     `short:"b" help:"Play the text as audio while encoding." default:"false"`
	WPM        int      `short:"w" help:"Words per minute for audio playback." default:"15"`
	Farnsworth int      `short:"f" help:"Effective words per minute with Farnsworth spacing (0 = same as --wpm)." default:"0"`
	Clip       bool     `short:"c" help:"Copy the output to the clipboard." default:"false"`
}

var clipboardWriteAll = clipboard.WriteAll

// player sends text as audio. Replaced in tests.
type player interface {
	PlayText(ctx context.Context, text string, wpm, effectiveWPM int) error
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:         "morse",
		Short:       "Encode/decode Morse code",
		Long:        "Convert text to Morse code or decode Morse code back to text. Use -b to hear it with the sidetone settings from the config file.",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			ctx, cancel := common.SignalContext()
			defer cancel()
			if err := Run(ctx, params, os.Stdin, os.Stdout, newPlayer); err != nil {
				fmt.Fprintf(os.Stderr, "morse: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func newPlayer() (player, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return audio.New(clock.NewReal(), cfg.AudioOptions()), nil
}

func Run(ctx context.Context, params *Params, stdin io.Reader, stdout io.Writer, newPlayer func() (player, error)) error {
	effective := params.Farnsworth
	if effective == 0 {
		effective = params.WPM
	}

	var p player
	if params.Beep && !params.Decode {
		var err error
		if p, err = newPlayer(); err != nil {
			return err
		}
	}

	var out []string
	line := func(text string) error {
		if params.Decode {
			out = append(out, morsecode.Decode(text))
			fmt.Fprintln(stdout, out[len(out)-1])
			return nil
		}
		out = append(out, morsecode.Encode(text))
		fmt.Fprintln(stdout, out[len(out)-1])
		if p != nil {
			return p.PlayText(ctx, strings.ToUpper(text), params.WPM, effective)
		}
		return nil
	}

	if len(params.Text) > 0 {
		if err := line(strings.Join(params.Text, " ")); err != nil {
			return err
		}
	} else {
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			if err := line(scanner.Text()); err != nil {
				return err
			}
		}
		if err := scanner.Err(); err != nil {
			return err
		}
	}

	if params.Clip {
		return clipboardWriteAll(strings.Join(out, "\n"))
	}
	return nil
}
