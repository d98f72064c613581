// Package morsecode holds the ITU character table, text encoding and the
// Koch learning order.
package morsecode

import (
	"strings"
	"unicode"

	"github.com/samber/lo"
)

// Pattern elements.
const (
	Dit = '.'
	Dah = '-'
)

// WordSeparator stands for the space character in encoded text.
const WordSeparator = "/"

var toMorse = map[rune]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".",
	'F': "..-.", 'G': "--.", 'H': "....", 'I': "..", 'J': ".---",
	'K': "-.-", 'L': ".-..", 'M': "--", 'N': "-.", 'O': "---",
	'P': ".--.", 'Q': "--.-", 'R': ".-.", 'S': "...", 'T': "-",
	'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-", 'Y': "-.--",
	'Z': "--..",
	'0': "-----", '1': ".----", '2': "..---", '3': "...--", '4': "....-",
	'5': ".....", '6': "-....", '7': "--...", '8': "---..", '9': "----.",
	'.': ".-.-.-", ',': "--..--", '?': "..--..", '\'': ".----.",
	'!': "-.-.--", '/': "-..-.", '(': "-.--.", ')': "-.--.-",
	'&': ".-...", ':': "---...", ';': "-.-.-.", '=': "-...-",
	'+': ".-.-.", '-': "-....-", '_': "..--.-", '"': ".-..-.",
	'$': "...-..-", '@': ".--.-.",
}

var fromMorse = lo.Invert(toMorse)

// KochOrder is the order in which the Koch method introduces characters.
const KochOrder = "KMURESNAPTLWI.JZ=FOY,VG5/Q92H38B?47C1D60X"

// Pattern returns the dit/dah pattern of r, case-insensitively. The space
// character has no pattern; it is pure silence.
func Pattern(r rune) (string, bool) {
	p, ok := toMorse[unicode.ToUpper(r)]
	return p, ok
}

// IsValidInput reports whether r is a key the learner can answer with.
func IsValidInput(r rune) bool {
	_, ok := Pattern(r)
	return ok
}

// Equal compares two characters the way answers are judged: case-insensitively.
func Equal(a, b rune) bool {
	return unicode.ToUpper(a) == unicode.ToUpper(b)
}

// Encode converts text to space separated patterns, "/" between words.
// Characters without a pattern are dropped.
func Encode(text string) string {
	var result []string
	for _, r := range strings.ToUpper(text) {
		if r == ' ' {
			result = append(result, WordSeparator)
			continue
		}
		if code, ok := toMorse[r]; ok {
			result = append(result, code)
		}
	}
	return strings.Join(result, " ")
}

// Decode is the inverse of Encode. Unknown patterns are skipped.
func Decode(morse string) string {
	var result strings.Builder
	words := strings.Split(morse, " "+WordSeparator+" ")
	for i, word := range words {
		if i > 0 {
			result.WriteRune(' ')
		}
		for _, code := range strings.Fields(word) {
			if r, ok := fromMorse[code]; ok {
				result.WriteRune(r)
			}
		}
	}
	return result.String()
}

// KochAlphabet returns the first level characters of the Koch order. Levels
// below 2 are raised to 2, the smallest set worth practising.
func KochAlphabet(level int) []rune {
	order := []rune(KochOrder)
	level = min(max(level, 2), len(order))
	return order[:level]
}

// Normalize upper-cases an alphabet, removes duplicates and drops characters
// that have no pattern. Space is kept since it is a valid transmission.
func Normalize(alphabet string) []rune {
	upper := lo.Map([]rune(alphabet), func(r rune, _ int) rune { return unicode.ToUpper(r) })
	return lo.Uniq(lo.Filter(upper, func(r rune, _ int) bool {
		return r == ' ' || IsValidInput(r)
	}))
}
