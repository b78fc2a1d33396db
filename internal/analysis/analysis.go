// Package analysis turns a collection result into frequency tables,
// rankings and sentiment statistics.
package analysis

import (
	"tweetminer/internal/model"
)

// Options tunes Run. Zero values fall back to defaults.
type Options struct {
	TopN           int
	Bins           int
	CloudSize      int
	ExtraStopwords []string
	Scorer         Scorer
}

func (o Options) withDefaults() Options {
	if o.TopN <= 0 {
		o.TopN = 10
	}
	if o.Bins <= 0 {
		o.Bins = 10
	}
	if o.CloudSize <= 0 {
		o.CloudSize = 100
	}
	if o.Scorer == nil {
		o.Scorer = defaultScorer()
	}
	return o
}

// ScoredRecord is one tweet's sentiment.
type ScoredRecord struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Sentiment
}

// SentimentSummary aggregates per-tweet sentiment.
type SentimentSummary struct {
	Scores           []ScoredRecord `json:"-"`
	MeanPolarity     float64        `json:"mean_polarity"`
	MeanSubjectivity float64        `json:"mean_subjectivity"`
	MostNegative     *ScoredRecord  `json:"most_negative,omitempty"`
	MostPositive     *ScoredRecord  `json:"most_positive,omitempty"`
	PolarityHist     []Bin          `json:"polarity_histogram"`
	SubjectivityHist []Bin          `json:"subjectivity_histogram"`
}

// ScoreSentiment scores every record. Ties for most negative or most
// positive go to the earliest record.
func ScoreSentiment(records []model.Record, scorer Scorer, bins int) SentimentSummary {
	var sum SentimentSummary
	pol := make([]float64, 0, len(records))
	subj := make([]float64, 0, len(records))
	for _, r := range records {
		text := SentimentText(r.Text())
		sr := ScoredRecord{ID: r.ID(), Text: text, Sentiment: scorer.Score(text)}
		sum.Scores = append(sum.Scores, sr)
		pol = append(pol, sr.Polarity)
		subj = append(subj, sr.Subjectivity)
	}
	for i := range sum.Scores {
		sr := &sum.Scores[i]
		sum.MeanPolarity += sr.Polarity
		sum.MeanSubjectivity += sr.Subjectivity
		if sum.MostNegative == nil || sr.Polarity < sum.MostNegative.Polarity {
			sum.MostNegative = sr
		}
		if sum.MostPositive == nil || sr.Polarity > sum.MostPositive.Polarity {
			sum.MostPositive = sr
		}
	}
	if n := len(sum.Scores); n > 0 {
		sum.MeanPolarity /= float64(n)
		sum.MeanSubjectivity /= float64(n)
	}
	sum.PolarityHist = Histogram(pol, bins)
	sum.SubjectivityHist = Histogram(subj, bins)
	return sum
}

// Report is everything Run derives from one result.
type Report struct {
	Query          string               `json:"query"`
	CollectionType model.CollectionType `json:"collection_type"`
	Tweets         int                  `json:"tweets"`
	UniqueAuthors  int                  `json:"unique_authors"`
	TopWords       []Entry              `json:"top_words"`
	TopKeywords    []Entry              `json:"top_keywords"`
	Hashtags       []Entry              `json:"top_hashtags"`
	Mentions       []Entry              `json:"top_mentions"`
	Sources        []Entry              `json:"top_sources"`
	Authors        []Entry              `json:"top_authors"`
	// Days holds every date in chronological order.
	Days           []Entry          `json:"tweets_per_day"`
	WordCloud      []Entry          `json:"word_cloud"`
	TopEngaged     []RankedRecord   `json:"top_engaged"`
	TopInfluencers []RankedAuthor   `json:"top_influencers"`
	Sentiment      SentimentSummary `json:"sentiment"`
}

// Run analyses res. authors may be nil when no author list is available.
func Run(res model.CollectionResult, authors []model.AuthorInfo, opts Options) Report {
	opts = opts.withDefaults()
	sw := NewStopwords(opts.ExtraStopwords...)
	keywords := Keywords(res.Records, sw)
	return Report{
		Query:          res.Query,
		CollectionType: res.CollectionType,
		Tweets:         len(res.Records),
		UniqueAuthors:  len(model.UniqueAuthorIDs(res.Records)),
		TopWords:       Words(res.Records).MostCommon(opts.TopN),
		TopKeywords:    keywords.MostCommon(opts.TopN),
		Hashtags:       Hashtags(res.Records).MostCommon(opts.TopN),
		Mentions:       Mentions(res.Records).MostCommon(opts.TopN),
		Sources:        Sources(res.Records).MostCommon(opts.TopN),
		Authors:        Authors(res.Records).MostCommon(opts.TopN),
		Days:           Days(res.Records).Sorted(),
		WordCloud:      keywords.MostCommon(opts.CloudSize),
		TopEngaged:     TopEngaged(res.Records, opts.TopN),
		TopInfluencers: TopInfluencers(authors, opts.TopN),
		Sentiment:      ScoreSentiment(res.Records, opts.Scorer, opts.Bins),
	}
}
