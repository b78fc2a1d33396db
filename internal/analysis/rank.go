package analysis

import (
	"sort"

	"tweetminer/internal/model"
)

// RankedRecord is a tweet with its summed public metrics.
type RankedRecord struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Engagement int    `json:"engagement"`
}

// RankedAuthor is an author with their influence score.
type RankedAuthor struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Influence int    `json:"influence"`
}

// TopEngaged returns the n tweets with the highest engagement total,
// keeping input order between equal totals.
func TopEngaged(records []model.Record, n int) []RankedRecord {
	out := make([]RankedRecord, 0, len(records))
	for _, r := range records {
		out = append(out, RankedRecord{ID: r.ID(), Text: r.Text(), Engagement: r.EngagementTotal()})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Engagement > out[j].Engagement })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// TopInfluencers drops empty lookups and returns the n authors with the
// highest influence score.
func TopInfluencers(authors []model.AuthorInfo, n int) []RankedAuthor {
	out := make([]RankedAuthor, 0, len(authors))
	for _, a := range authors {
		if a == nil {
			continue
		}
		out = append(out, RankedAuthor{ID: a.ID(), Username: a.Username(), Influence: a.InfluenceScore()})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Influence > out[j].Influence })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
