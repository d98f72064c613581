//go:build (linux && cgo) || windows || darwin

package audio

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/gigurra/cwtrainer/cmd/common/cwerr"
)

const sampleRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(sampleRate, sampleRate.N(time.Second/100))
	})
	return speakerErr
}

func (p *Player) render(ctx context.Context, segments []Segment, dit time.Duration) error {
	if err := initSpeaker(); err != nil {
		return cwerr.AudioPlayback(err)
	}
	if len(segments) == 0 {
		return nil
	}

	streamers := make([]beep.Streamer, 0, len(segments)+1)
	for _, s := range segments {
		n := sampleRate.N(segmentDuration(s, dit))
		if s.Tone {
			streamers = append(streamers, &toneStreamer{
				samples:   n,
				frequency: p.opts.ToneHz,
				volume:    p.opts.Volume,
			})
		} else {
			streamers = append(streamers, beep.Silence(n))
		}
	}
	done := make(chan struct{})
	streamers = append(streamers, beep.Callback(func() { close(done) }))

	ctrl := &beep.Ctrl{Streamer: beep.Seq(streamers...)}
	speaker.Play(ctrl)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Lock()
		ctrl.Streamer = nil
		speaker.Unlock()
		return cwerr.Aborted(ctx)
	}
}

type toneStreamer struct {
	samples   int
	position  int
	frequency float64
	volume    float64
}

func (t *toneStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	fadeLen := max(t.samples/20, 10)
	for i := range samples {
		if t.position >= t.samples {
			return i, false
		}

		phase := 2 * math.Pi * t.frequency * float64(t.position) / float64(sampleRate)
		value := math.Sin(phase)

		// Ramp both ends to avoid key clicks.
		envelope := 1.0
		if t.position < fadeLen {
			envelope = float64(t.position) / float64(fadeLen)
		} else if t.position > t.samples-fadeLen {
			envelope = float64(t.samples-t.position) / float64(fadeLen)
		}

		value *= envelope * t.volume
		samples[i][0] = value
		samples[i][1] = value
		t.position++
	}
	return len(samples), true
}

func (t *toneStreamer) Err() error {
	return nil
}
