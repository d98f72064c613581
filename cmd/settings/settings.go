package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"

	"github.com/gigurra/cwtrainer/cmd/common"
	"github.com/gigurra/cwtrainer/cmd/common/config"
)

func Cmd() *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:   "config",
		Short: "Show or create the settings file",
		Long: `Manage ~/.cwtrainer/config.json.

Usage:
  cwtrainer config path    # Print the settings file location
  cwtrainer config show    # Print the effective settings
  cwtrainer config init    # Write the default settings

Running training sessions pick up edits on their next restart (ctrl+r).`,
		SubCmds: []*cobra.Command{
			PathCmd(),
			ShowCmd(),
			InitCmd(),
		},
	}.ToCobra()
}

func PathCmd() *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:   "path",
		Short: "Print the settings file location",
		RunFunc: func(_ *boa.NoParams, cmd *cobra.Command, args []string) {
			fmt.Println(config.ConfigPath())
		},
	}.ToCobra()
}

type ShowParams struct {
	Alphabet bool `short:"a" help:"Also print the characters a session would train." default:"false"`
}

func ShowCmd() *cobra.Command {
	return boa.CmdT[ShowParams]{
		Use:         "show",
		Short:       "Print the effective settings, defaults included",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *ShowParams, cmd *cobra.Command, args []string) {
			if err := runShow(params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "config show: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func runShow(params *ShowParams, w io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	if params.Alphabet {
		fmt.Fprintf(w, "alphabet: %s\n", string(cfg.Training.ResolvedAlphabet()))
	}
	return nil
}

type InitParams struct {
	Force bool `short:"f" help:"Overwrite an existing settings file." default:"false"`
}

var ErrExists = errors.New("settings file already exists")

func InitCmd() *cobra.Command {
	return boa.CmdT[InitParams]{
		Use:         "init",
		Short:       "Write the default settings file",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *InitParams, cmd *cobra.Command, args []string) {
			if err := runInit(params); err != nil {
				fmt.Fprintf(os.Stderr, "config init: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Wrote %s\n", config.ConfigPath())
		},
	}.ToCobra()
}

func runInit(params *InitParams) error {
	path := config.ConfigPath()
	if _, err := os.Stat(path); err == nil && !params.Force {
		return fmt.Errorf("%w: %s (use --force to overwrite)", ErrExists, path)
	}
	return config.Save(config.DefaultConfig())
}
