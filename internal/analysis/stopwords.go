package analysis

import (
	"strings"
	"unicode/utf8"
)

// domainStopwords are filler words common in fan and marketplace tweets.
var domainStopwords = []string{
	"sell", "still", "say", "yeah", "already", "please", "let", "said", "pls",
	"every", "rfs", "wts", "lfb", "ver", "need", "pcs",
}

var englishStopwords = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "you're",
	"you've", "you'll", "you'd", "your", "yours", "yourself", "yourselves", "he",
	"him", "his", "himself", "she", "she's", "her", "hers", "herself", "it", "it's",
	"its", "itself", "they", "them", "their", "theirs", "themselves", "what", "which",
	"who", "whom", "this", "that", "that'll", "these", "those", "am", "is", "are",
	"was", "were", "be", "been", "being", "have", "has", "had", "having", "do",
	"does", "did", "doing", "a", "an", "the", "and", "but", "if", "or", "because",
	"as", "until", "while", "of", "at", "by", "for", "with", "about", "against",
	"between", "into", "through", "during", "before", "after", "above", "below",
	"to", "from", "up", "down", "in", "out", "on", "off", "over", "under", "again",
	"further", "then", "once", "here", "there", "when", "where", "why", "how", "all",
	"any", "both", "each", "few", "more", "most", "other", "some", "such", "no",
	"nor", "not", "only", "own", "same", "so", "than", "too", "very", "s", "t",
	"can", "will", "just", "don", "don't", "should", "should've", "now", "d", "ll",
	"m", "o", "re", "ve", "y", "ain", "aren", "aren't", "couldn", "couldn't",
	"didn", "didn't", "doesn", "doesn't", "hadn", "hadn't", "hasn", "hasn't",
	"haven", "haven't", "isn", "isn't", "ma", "mightn", "mightn't", "mustn",
	"mustn't", "needn", "needn't", "shan", "shan't", "shouldn", "shouldn't",
	"wasn", "wasn't", "weren", "weren't", "won", "won't", "wouldn", "wouldn't",
}

// Stopwords is a lowercase word set.
type Stopwords map[string]struct{}

// NewStopwords returns the built-in list plus extra.
func NewStopwords(extra ...string) Stopwords {
	sw := make(Stopwords, len(englishStopwords)+len(domainStopwords)+len(extra))
	for _, list := range [][]string{englishStopwords, domainStopwords, extra} {
		for _, w := range list {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				sw[w] = struct{}{}
			}
		}
	}
	return sw
}

func (s Stopwords) Contains(w string) bool {
	_, ok := s[strings.ToLower(w)]
	return ok
}

// Keywords keeps lowercased tokens that are not stopwords and are longer
// than two characters.
func (s Stopwords) Keywords(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.ToLower(t)
		if s.Contains(t) || utf8.RuneCountInString(t) <= 2 {
			continue
		}
		out = append(out, t)
	}
	return out
}
