package timing

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func properties(t *testing.T) *gopter.Properties {
	t.Helper()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	return gopter.NewProperties(parameters)
}

// effective maps an arbitrary seed to a speed strictly below char.
func effective(char, seed int) int {
	return 1 + seed%(char-1)
}

func TestDitProperties(t *testing.T) {
	props := properties(t)

	props.Property("dit is 1200ms/wpm", prop.ForAll(
		func(wpm int) bool {
			dit, err := Dit(wpm)
			return err == nil && dit == 1200*time.Millisecond/time.Duration(wpm)
		},
		gen.IntRange(1, 100),
	))

	props.Property("equal speeds round trip to standard spacing", prop.ForAll(
		func(wpm int) bool {
			dit, _ := Dit(wpm)
			spacing, err := FarnsworthSpacing(wpm, wpm)
			return err == nil && spacing == 3*dit
		},
		gen.IntRange(1, 100),
	))

	props.TestingRun(t)
}

func TestFarnsworthProperties(t *testing.T) {
	props := properties(t)

	props.Property("slower effective speed never shortens spacing", prop.ForAll(
		func(char, seed int) bool {
			eff := effective(char, seed)
			standard, _ := FarnsworthSpacing(char, char)
			spacing, err := FarnsworthSpacing(char, eff)
			return err == nil && spacing >= standard
		},
		gen.IntRange(2, 60),
		gen.IntRange(0, 1000),
	))

	props.Property("effective above character speed is rejected", prop.ForAll(
		func(char, extra int) bool {
			_, err := FarnsworthSpacing(char, char+extra)
			return err != nil
		},
		gen.IntRange(1, 60),
		gen.IntRange(1, 60),
	))

	props.TestingRun(t)
}

func TestListenSplitProperties(t *testing.T) {
	props := properties(t)

	props.Property("pre and post reveal add up to the spacing", prop.ForAll(
		func(char, seed int) bool {
			eff := effective(char, seed)
			total, _ := FarnsworthSpacing(char, eff)
			split, err := ListenModeTiming(char, eff)
			if err != nil {
				return false
			}
			diff := split.Total() - total
			return diff >= -time.Millisecond && diff <= time.Millisecond
		},
		gen.IntRange(2, 60),
		gen.IntRange(0, 1000),
	))

	props.Property("pre reveal share stays near two thirds", prop.ForAll(
		func(char, seed int) bool {
			eff := effective(char, seed)
			total, _ := FarnsworthSpacing(char, eff)
			split, _ := ListenModeTiming(char, eff)
			share := float64(split.PreReveal) / float64(total)
			return share >= 0.65 && share <= 0.67
		},
		gen.IntRange(2, 60),
		gen.IntRange(0, 1000),
	))

	props.TestingRun(t)
}
