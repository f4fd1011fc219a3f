package similarity

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// scoreScale rounds scores to five decimal places.
const scoreScale = 1e5

// tokenize lowercases s, drops every rune that is not a letter, digit,
// underscore or whitespace, and splits on whitespace.
// A new caser is built per call because cases.Caser is not safe for
// concurrent use.
func tokenize(s string) []string {
	lowered := cases.Lower(language.Und).String(s)
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, lowered)
	return strings.Fields(stripped)
}

// round clamps v to [0, 1] and rounds it to five decimal places.
func round(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return math.Round(v*scoreScale) / scoreScale
}
