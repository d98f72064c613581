package session

import (
	"maps"
	"time"

	"github.com/gigurra/cwtrainer/cmd/common/emission"
)

// Stats accumulates the outcomes of one session. Word gaps are not counted.
type Stats struct {
	Emitted      int
	Correct      int
	Incorrect    int
	Timeouts     int
	TotalLatency time.Duration
	PerChar      map[rune]CharStats
}

type CharStats struct {
	Attempts     int
	Correct      int
	TotalLatency time.Duration
}

func (s *Stats) record(r emission.Result) {
	if r.Emission.Char == ' ' {
		return
	}
	if s.PerChar == nil {
		s.PerChar = make(map[rune]CharStats)
	}
	cs := s.PerChar[r.Emission.Char]
	s.Emitted++
	cs.Attempts++

	switch r.Outcome {
	case emission.OutcomeCorrect:
		s.Correct++
		s.TotalLatency += r.Latency
		cs.Correct++
		cs.TotalLatency += r.Latency
	case emission.OutcomeIncorrect:
		s.Incorrect++
	case emission.OutcomeTimeout:
		s.Timeouts++
	}
	s.PerChar[r.Emission.Char] = cs
}

// Answered is the number of emissions that were judged.
func (s Stats) Answered() int {
	return s.Correct + s.Incorrect + s.Timeouts
}

// Accuracy is the share of judged emissions answered correctly, 0 to 1.
func (s Stats) Accuracy() float64 {
	if s.Answered() == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Answered())
}

// MeanLatency averages the latency of correct answers.
func (s Stats) MeanLatency() time.Duration {
	if s.Correct == 0 {
		return 0
	}
	return s.TotalLatency / time.Duration(s.Correct)
}

func (s Stats) clone() Stats {
	s.PerChar = maps.Clone(s.PerChar)
	return s
}
