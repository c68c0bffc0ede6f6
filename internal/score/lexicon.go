package score

import (
	"regexp"
	"strings"
)

// Tone scoring is a fixed, versioned lexical rule table: positive and
// negative term sets with a short negation window. No external model is
// involved, so identical text always yields an identical score.

var positiveTerms = map[string]bool{
	"efficient":   true,
	"strong":      true,
	"excellent":   true,
	"elite":       true,
	"improving":   true,
	"improved":    true,
	"developing":  true,
	"development": true,
	"anchor":      true,
	"anchors":     true,
	"valuable":    true,
	"reliable":    true,
	"dominant":    true,
	"impressive":  true,
	"solid":       true,
	"versatile":   true,
	"productive":  true,
	"consistent":  true,
	"effective":   true,
	"positive":    true,
	"good":        true,
	"great":       true,
	"best":        true,
	"key":         true,
	"promising":   true,
}

var negativeTerms = map[string]bool{
	"inefficient":    true,
	"inefficiency":   true,
	"weak":           true,
	"weakness":       true,
	"weaknesses":     true,
	"poor":           true,
	"poorly":         true,
	"liability":      true,
	"struggles":      true,
	"struggled":      true,
	"struggling":     true,
	"inconsistent":   true,
	"limited":        true,
	"worst":          true,
	"problem":        true,
	"problems":       true,
	"issues":         true,
	"issue":          true,
	"decline":        true,
	"declining":      true,
	"negative":       true,
	"bad":            true,
	"costly":         true,
	"underperforms":  true,
	"underperformed": true,
	"turnover-prone": true,
}

// negators invert the polarity of a term appearing within the next two
// tokens ("not efficient" counts as negative).
var negators = map[string]bool{
	"not":     true,
	"no":      true,
	"never":   true,
	"hardly":  true,
	"barely":  true,
	"without": true,
	"lacks":   true,
	"lacking": true,
}

const negationWindow = 2

var tokenPattern = regexp.MustCompile(`[a-z][a-z'-]*`)

// tonePolarity scores text into [-1, 1]: (pos - neg) / (pos + neg).
// Neutral text, ties, and empty input score exactly 0.
func tonePolarity(text string) float64 {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)

	pos, neg := 0, 0
	lastNegator := -negationWindow - 1
	for i, tok := range tokens {
		if negators[tok] {
			lastNegator = i
			continue
		}
		negated := i-lastNegator <= negationWindow

		switch {
		case positiveTerms[tok]:
			if negated {
				neg++
			} else {
				pos++
			}
		case negativeTerms[tok]:
			if negated {
				pos++
			} else {
				neg++
			}
		}
	}

	total := pos + neg
	if total == 0 {
		return 0
	}
	return float64(pos-neg) / float64(total)
}
