package main

import (
	"runtime/debug"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"

	"github.com/gigurra/cwtrainer/cmd/history"
	"github.com/gigurra/cwtrainer/cmd/morse"
	"github.com/gigurra/cwtrainer/cmd/settings"
	"github.com/gigurra/cwtrainer/cmd/timing"
	"github.com/gigurra/cwtrainer/cmd/train"
)

// Command group IDs
const (
	groupTraining = "training"
	groupTools    = "tools"
)

// withGroup sets the GroupID on a command and returns it
func withGroup(cmd *cobra.Command, group string) *cobra.Command {
	cmd.GroupID = group
	return cmd
}

func main() {
	boa.CmdT[boa.NoParams]{
		Use:     "cwtrainer",
		Short:   "Morse code trainer",
		Version: appVersion(),
		Groups: []*cobra.Group{
			{ID: groupTraining, Title: "Training:"},
			{ID: groupTools, Title: "Tools:"},
		},
		SubCmds: []*cobra.Command{
			// Training
			withGroup(train.PracticeCmd(), groupTraining),
			withGroup(train.ListenCmd(), groupTraining),
			withGroup(train.CopyCmd(), groupTraining),
			withGroup(history.Cmd(), groupTraining),

			// Tools
			withGroup(morse.Cmd(), groupTools),
			withGroup(timing.Cmd(), groupTools),
			withGroup(settings.Cmd(), groupTools),
		},
	}.Run()
}

func appVersion() string {
	bi, hasBuilInfo := debug.ReadBuildInfo()
	if !hasBuilInfo {
		return "unknown-(no build info)"
	}

	versionString := bi.Main.Version
	if versionString == "" {
		versionString = "unknown-(no version)"
	}

	return versionString
}
