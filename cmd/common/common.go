package common

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/GiGurra/boa/pkg/boa"
)

func DefaultParamEnricher() boa.ParamEnricher {
	return boa.ParamEnricherCombine(
		boa.ParamEnricherBool,
		boa.ParamEnricherName,
		boa.ParamEnricherShort,
	)
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// SetupLogging points slog at ~/.cwtrainer/cwtrainer.log. Full-screen
// commands own the terminal, so nothing is written to stderr. The returned
// closer flushes the file; it is a no-op when the log could not be opened.
func SetupLogging(debug bool) io.Closer {
	logPath := LogPath()
	if logPath == "" {
		return io.NopCloser(nil)
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return io.NopCloser(nil)
	}

	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return io.NopCloser(nil)
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(logFile, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
	return logFile
}
