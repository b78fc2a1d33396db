package model

// EngagementTotal sums every public metric of a post (likes, replies,
// retweets, quotes and whatever else the platform reports).
func (r Record) EngagementTotal() int {
	total := 0
	for _, v := range r.PublicMetrics() {
		total += v
	}
	return total
}

// InfluenceScore sums the profile-level counters of an author:
// followers, following, tweet and listed counts.
func (a AuthorInfo) InfluenceScore() int {
	total := 0
	for _, v := range a.PublicMetrics() {
		total += v
	}
	return total
}

// UniqueAuthorIDs returns author ids in first-seen order.
func UniqueAuthorIDs(records []Record) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0)
	for _, r := range records {
		id := r.AuthorID()
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
