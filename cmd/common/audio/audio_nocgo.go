//go:build linux && !cgo

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
)

var warnOnce sync.Once

func (p *Player) render(ctx context.Context, segments []Segment, dit time.Duration) error {
	for _, s := range segments {
		d := segmentDuration(s, dit)
		start := p.clk.Now()
		if s.Tone {
			p.beep(d)
		}
		if err := p.clk.Sleep(ctx, d-(p.clk.Now()-start)); err != nil {
			return err
		}
	}
	return nil
}

// beep sounds the PC speaker for d, falling back to the terminal bell.
func (p *Player) beep(d time.Duration) {
	if err := beeep.Beep(p.opts.ToneHz, int(d.Milliseconds())); err != nil {
		warnOnce.Do(func() {
			slog.Warn("audio: no speaker without cgo, using terminal bell", "error", err)
		})
		fmt.Fprint(os.Stderr, "\a")
	}
}
