// Package timing converts Morse speeds into element and spacing durations.
//
// All functions are pure. Speeds are in words per minute using the PARIS
// standard word of 50 units, so one dit lasts 1200ms/wpm.
package timing

import (
	"math"
	"strings"
	"time"

	"github.com/gigurra/cwtrainer/cmd/common/cwerr"
	"github.com/gigurra/cwtrainer/cmd/common/morsecode"
)

const (
	// unitsPerWord is the length of PARIS including the trailing word gap.
	unitsPerWord = 50
	// charsPerWord is the number of characters in PARIS.
	charsPerWord = 5
	// minimumWindow keeps very fast recognition windows answerable.
	minimumWindow = 60 * time.Millisecond

	preRevealShare  = 0.66
	postRevealShare = 0.34
)

// SpeedTier selects the recognition window length in practice mode.
type SpeedTier string

const (
	Slow      SpeedTier = "slow"
	Medium    SpeedTier = "medium"
	Fast      SpeedTier = "fast"
	Lightning SpeedTier = "lightning"
)

var activeWindows = map[SpeedTier]time.Duration{
	Slow:      2000 * time.Millisecond,
	Medium:    1000 * time.Millisecond,
	Fast:      500 * time.Millisecond,
	Lightning: 300 * time.Millisecond,
}

// SpeedTiers lists the known tiers, slowest first.
var SpeedTiers = []SpeedTier{Slow, Medium, Fast, Lightning}

// ParseSpeedTier accepts a tier name in any case.
func ParseSpeedTier(s string) (SpeedTier, error) {
	tier := SpeedTier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := activeWindows[tier]; !ok {
		return "", cwerr.InvalidArgument("unknown speed tier %q (want slow, medium, fast or lightning)", s)
	}
	return tier, nil
}

func (t SpeedTier) Valid() bool {
	_, ok := activeWindows[t]
	return ok
}

// Dit returns the length of one dit at wpm.
func Dit(wpm int) (time.Duration, error) {
	if wpm <= 0 {
		return 0, cwerr.InvalidArgument("wpm must be positive, got %d", wpm)
	}
	return 1200 * time.Millisecond / time.Duration(wpm), nil
}

// Dah returns the length of one dah at wpm.
func Dah(wpm int) (time.Duration, error) {
	dit, err := Dit(wpm)
	return 3 * dit, err
}

// IntraSymbolSpacing is the gap between elements of one character.
func IntraSymbolSpacing(wpm int) (time.Duration, error) {
	return Dit(wpm)
}

// InterCharacterSpacing is the standard gap between characters.
func InterCharacterSpacing(wpm int) (time.Duration, error) {
	dit, err := Dit(wpm)
	return 3 * dit, err
}

// InterWordSpacing is the standard gap between words.
func InterWordSpacing(wpm int) (time.Duration, error) {
	dit, err := Dit(wpm)
	return 7 * dit, err
}

// Units returns the length of ch in dits, counting one dit between
// elements and nothing after the last one. Space counts as
// 4 + 7*extraWordSpacing units; it follows a character that already ended
// with three units of spacing. Unknown characters have no length.
func Units(ch rune, extraWordSpacing int) int {
	if ch == ' ' {
		return 4 + max(extraWordSpacing, 0)*7
	}
	pattern, ok := morsecode.Pattern(ch)
	if !ok {
		return 0
	}
	units := 0
	for i, el := range pattern {
		if i > 0 {
			units++
		}
		if el == morsecode.Dah {
			units += 3
		} else {
			units++
		}
	}
	return units
}

// CharacterDuration is the audio length of ch at wpm.
func CharacterDuration(ch rune, wpm, extraWordSpacing int) (time.Duration, error) {
	dit, err := Dit(wpm)
	if err != nil {
		return 0, err
	}
	return time.Duration(Units(ch, extraWordSpacing)) * dit, nil
}

// FarnsworthSpacing returns the gap between characters sent at characterWPM
// so that the overall rate drops to effectiveWPM. It never drops below the
// standard three dit spacing.
func FarnsworthSpacing(characterWPM, effectiveWPM int) (time.Duration, error) {
	if characterWPM <= 0 || effectiveWPM <= 0 {
		return 0, cwerr.InvalidArgument("farnsworth speeds must be positive, got %d/%d", characterWPM, effectiveWPM)
	}
	if effectiveWPM > characterWPM {
		return 0, cwerr.InvalidArgument("effective wpm %d exceeds character wpm %d", effectiveWPM, characterWPM)
	}
	standard, err := InterCharacterSpacing(characterWPM)
	if err != nil {
		return 0, err
	}
	if effectiveWPM == characterWPM {
		return standard, nil
	}
	dit, err := Dit(characterWPM)
	if err != nil {
		return 0, err
	}
	perChar := time.Minute / time.Duration(effectiveWPM*charsPerWord)
	avgChar := time.Duration(unitsPerWord/charsPerWord) * dit
	return max(perChar-avgChar, standard), nil
}

// ListenTiming splits the inter-character gap of listen mode around the
// moment the character is revealed.
type ListenTiming struct {
	PreReveal  time.Duration
	PostReveal time.Duration
}

// Total is the whole gap.
func (l ListenTiming) Total() time.Duration {
	return l.PreReveal + l.PostReveal
}

// ListenModeTiming splits the Farnsworth spacing 66/34, each part rounded to
// whole milliseconds.
func ListenModeTiming(characterWPM, effectiveWPM int) (ListenTiming, error) {
	total, err := FarnsworthSpacing(characterWPM, effectiveWPM)
	if err != nil {
		return ListenTiming{}, err
	}
	return ListenTiming{
		PreReveal:  roundMillis(preRevealShare * float64(total)),
		PostReveal: roundMillis(postRevealShare * float64(total)),
	}, nil
}

func roundMillis(ns float64) time.Duration {
	return time.Duration(math.Round(ns/float64(time.Millisecond))) * time.Millisecond
}

// ActiveWindow is the fixed input window of a speed tier. Unknown tiers have
// no window.
func ActiveWindow(tier SpeedTier) time.Duration {
	return activeWindows[tier]
}

// RecognitionWindow is the time allowed for an answer after a character's
// audio ends. It is never shorter than one dit or 60ms.
func RecognitionWindow(tier SpeedTier, wpm int) (time.Duration, error) {
	dit, err := Dit(wpm)
	if err != nil {
		return 0, err
	}
	return max(ActiveWindow(tier), max(minimumWindow, dit)), nil
}

// Sheet gathers every duration for one speed pair.
type Sheet struct {
	CharacterWPM int
	EffectiveWPM int
	Dit          time.Duration
	Dah          time.Duration
	IntraSymbol  time.Duration
	InterChar    time.Duration
	InterWord    time.Duration
	Farnsworth   time.Duration
	Listen       ListenTiming
	Windows      map[SpeedTier]time.Duration
}

// Table computes the Sheet for characterWPM sent at effectiveWPM.
func Table(characterWPM, effectiveWPM int) (Sheet, error) {
	dit, err := Dit(characterWPM)
	if err != nil {
		return Sheet{}, err
	}
	farnsworth, err := FarnsworthSpacing(characterWPM, effectiveWPM)
	if err != nil {
		return Sheet{}, err
	}
	listen, err := ListenModeTiming(characterWPM, effectiveWPM)
	if err != nil {
		return Sheet{}, err
	}
	windows := make(map[SpeedTier]time.Duration, len(SpeedTiers))
	for _, tier := range SpeedTiers {
		windows[tier], err = RecognitionWindow(tier, characterWPM)
		if err != nil {
			return Sheet{}, err
		}
	}
	return Sheet{
		CharacterWPM: characterWPM,
		EffectiveWPM: effectiveWPM,
		Dit:          dit,
		Dah:          3 * dit,
		IntraSymbol:  dit,
		InterChar:    3 * dit,
		InterWord:    7 * dit,
		Farnsworth:   farnsworth,
		Listen:       listen,
		Windows:      windows,
	}, nil
}
