package analysis

import (
	"math"
	"sync"

	"github.com/jonreiter/govader"
)

// Sentiment is a polarity in [-1, 1] and a subjectivity in [0, 1].
type Sentiment struct {
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
}

// Scorer rates a piece of text.
type Scorer interface {
	Score(text string) Sentiment
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(text string) Sentiment

func (f ScorerFunc) Score(text string) Sentiment { return f(text) }

// VaderScorer scores text with VADER. Polarity is the compound score;
// subjectivity is the share of non-neutral tokens.
type VaderScorer struct {
	sia *govader.SentimentIntensityAnalyzer
}

func NewVaderScorer() *VaderScorer {
	return &VaderScorer{sia: govader.NewSentimentIntensityAnalyzer()}
}

// defaultScorer is the analyzer Run uses when Options.Scorer is nil.
var defaultScorer = sync.OnceValue(func() Scorer { return NewVaderScorer() })

func (v *VaderScorer) Score(text string) Sentiment {
	s := v.sia.PolarityScores(text)
	// nothing scored: govader leaves every share at zero
	if s.Positive+s.Negative+s.Neutral == 0 {
		return Sentiment{}
	}
	return Sentiment{
		Polarity:     clampFloat(s.Compound, -1, 1),
		Subjectivity: clampFloat(1-s.Neutral, 0, 1),
	}
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
