// Package audio renders Morse characters as sidetone.
//
// With cgo (and on windows and darwin) tones are synthesised through
// gopxl/beep. Without cgo on linux, beeep drives the PC speaker and the
// terminal bell is the last resort. Either way Play blocks for exactly the
// character's timing.CharacterDuration.
package audio

import (
	"context"
	"sync"
	"time"

	"github.com/gigurra/cwtrainer/cmd/common/clock"
	"github.com/gigurra/cwtrainer/cmd/common/morsecode"
	"github.com/gigurra/cwtrainer/cmd/common/timing"
)

const (
	DefaultToneHz = 700
	DefaultVolume = 0.5
)

type Options struct {
	ToneHz           float64
	Volume           float64
	ExtraWordSpacing int
}

// Segment is a tone or a silence, measured in dits.
type Segment struct {
	Tone  bool
	Units int
}

// Plan splits ch into tone and silence segments. A space is one silence;
// unknown characters have no segments.
func Plan(ch rune, extraWordSpacing int) []Segment {
	if ch == ' ' {
		return []Segment{{Units: timing.Units(' ', extraWordSpacing)}}
	}
	pattern, ok := morsecode.Pattern(ch)
	if !ok {
		return nil
	}
	var segments []Segment
	for i, el := range pattern {
		if i > 0 {
			segments = append(segments, Segment{Units: 1})
		}
		units := 1
		if el == morsecode.Dah {
			units = 3
		}
		segments = append(segments, Segment{Tone: true, Units: units})
	}
	return segments
}

// Player plays one character at a time. Stop interrupts the character
// currently playing.
type Player struct {
	opts Options
	clk  clock.Clock

	mu   sync.Mutex
	stop context.CancelFunc
}

// New creates a player. clk paces the fallback backend.
func New(clk clock.Clock, opts Options) *Player {
	if opts.ToneHz <= 0 {
		opts.ToneHz = DefaultToneHz
	}
	if opts.Volume <= 0 || opts.Volume > 1 {
		opts.Volume = DefaultVolume
	}
	return &Player{opts: opts, clk: clk}
}

// Play blocks until ch has been sent at wpm. It returns an aborted error if
// ctx is cancelled or Stop is called first.
func (p *Player) Play(ctx context.Context, ch rune, wpm int) error {
	dit, err := timing.Dit(wpm)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.mu.Lock()
	p.stop = cancel
	p.mu.Unlock()

	return p.render(ctx, Plan(ch, p.opts.ExtraWordSpacing), dit)
}

// Stop interrupts the character being played, if any.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		p.stop()
		p.stop = nil
	}
}

// PlayText sends text character by character with Farnsworth spacing.
func (p *Player) PlayText(ctx context.Context, text string, wpm, effectiveWPM int) error {
	gap, err := timing.FarnsworthSpacing(wpm, effectiveWPM)
	if err != nil {
		return err
	}
	for i, ch := range []rune(text) {
		if i > 0 {
			if err := p.clk.Sleep(ctx, gap); err != nil {
				return err
			}
		}
		if err := p.Play(ctx, ch, wpm); err != nil {
			return err
		}
	}
	return nil
}

func segmentDuration(s Segment, dit time.Duration) time.Duration {
	return time.Duration(s.Units) * dit
}
