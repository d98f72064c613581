package common

import (
	"os"
	"path/filepath"
)

// DataDir holds the settings file, the event log and the debug log.
// CWTRAINER_HOME overrides the default ~/.cwtrainer.
func DataDir() string {
	if dir := os.Getenv("CWTRAINER_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cwtrainer")
}

// LogPath returns the debug log written by the training commands.
func LogPath() string {
	dir := DataDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "cwtrainer.log")
}
