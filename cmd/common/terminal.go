package common

import (
	"os"

	"golang.org/x/term"
)

// DefaultTerminalWidth is used when the width cannot be determined.
const DefaultTerminalWidth = 80

// TerminalWidth returns the width of the terminal on stdout, or
// DefaultTerminalWidth when stdout is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	return width
}
