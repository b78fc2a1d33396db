package analysis

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"tweetminer/internal/util"
)

// symbolRunes covers emoji, pictographs, joiners and skin-tone modifiers.
func symbolRunes(r rune) bool {
	return unicode.In(r, unicode.So, unicode.Cf, unicode.Cs, unicode.Co) ||
		(r >= 0x1F3FB && r <= 0x1F3FF)
}

func newCleaner() transform.Transformer {
	return transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(symbolRunes)),
		norm.NFC,
	)
}

// Clean strips emoji and other symbols, folds accents and case, and
// collapses whitespace.
func Clean(text string) string {
	out, _, err := transform.String(newCleaner(), text)
	if err != nil {
		out = text
	}
	return util.NormalizeWhitespace(strings.ToLower(out))
}

var digitsAndPunct = func() *strings.Replacer {
	const set = "0123456789!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
	pairs := make([]string, 0, 2*len(set))
	for _, c := range set {
		pairs = append(pairs, string(c), " ")
	}
	return strings.NewReplacer(pairs...)
}()

// CleanText is Clean followed by dropping everything from the first "http"
// and turning ASCII digits and punctuation into spaces.
func CleanText(text string) string {
	s, _, _ := strings.Cut(Clean(text), "http")
	return util.NormalizeWhitespace(digitsAndPunct.Replace(s))
}

// Tokens splits CleanText output on whitespace.
func Tokens(text string) []string {
	return strings.Fields(CleanText(text))
}

// SentimentText is the text handed to a Scorer: cleaned and cut at the
// first link.
func SentimentText(text string) string {
	s, _, _ := strings.Cut(Clean(text), "https")
	return strings.TrimSpace(s)
}
