// Package cwerr holds the error taxonomy shared by the emission engine.
package cwerr

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument signals a programming error such as a non-positive WPM.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAborted is the expected cancellation failure of every suspension point.
	ErrAborted = errors.New("aborted")
	// ErrAudioPlayback marks a failed or unavailable sound device.
	ErrAudioPlayback = errors.New("audio playback failed")
)

// InvalidArgument wraps ErrInvalidArgument with a formatted message.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Aborted returns ErrAborted wrapped together with the cancellation cause of ctx.
func Aborted(ctx context.Context) error {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	return fmt.Errorf("%w: %w", ErrAborted, cause)
}

// AudioPlayback wraps err as an ErrAudioPlayback failure.
func AudioPlayback(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrAudioPlayback, err)
}

// IsAborted reports whether err is a cancellation rather than a genuine failure.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
