package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tweetminer/internal/logging"
	"tweetminer/internal/model"
	"tweetminer/internal/xclient"
)

var (
	ErrInvalidWindow = errors.New("invalid time window")
	ErrInvalidCount  = errors.New("count must be positive")
	ErrEmptyQuery    = errors.New("empty query")
)

var (
	RecentExpansions  = []string{"author_id", "referenced_tweets.id", "geo.place_id", "attachments.media_keys", "in_reply_to_user_id"}
	RecentTweetFields = []string{"author_id", "created_at", "lang", "possibly_sensitive", "source", "geo", "entities", "public_metrics", "context_annotations"}
	RecentPlaceFields = []string{"country", "country_code", "geo"}
)

// RecentOpts describes one recent search run. Zero times leave the window
// open; nil field lists select the defaults above.
type RecentOpts struct {
	Query       string
	Count       int
	StartTime   time.Time
	EndTime     time.Time
	Expansions  []string
	TweetFields []string
	PlaceFields []string
}

// ValidateWindow checks that given bounds fall inside the recent search
// lookback and are ordered.
func ValidateWindow(start, end, now time.Time) error {
	floor := now.Add(-model.RecentLookback)
	if !start.IsZero() && (start.Before(floor) || start.After(now)) {
		return fmt.Errorf("%w: start %s outside last %s", ErrInvalidWindow, start.Format(time.RFC3339), model.RecentLookback)
	}
	if !end.IsZero() && (end.Before(floor) || end.After(now)) {
		return fmt.Errorf("%w: end %s outside last %s", ErrInvalidWindow, end.Format(time.RFC3339), model.RecentLookback)
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return fmt.Errorf("%w: start must be before end", ErrInvalidWindow)
	}
	return nil
}

// FetchRecent pages through recent search until opts.Count records are
// gathered or the results run out. API errors are returned as-is, wrapped.
func (c *Collector) FetchRecent(ctx context.Context, opts RecentOpts) (model.CollectionResult, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return model.CollectionResult{}, ErrEmptyQuery
	}
	if opts.Count <= 0 {
		return model.CollectionResult{}, ErrInvalidCount
	}
	if err := ValidateWindow(opts.StartTime, opts.EndTime, c.now()); err != nil {
		return model.CollectionResult{}, err
	}
	client, err := c.Renew()
	if err != nil {
		return model.CollectionResult{}, err
	}

	search := xclient.SearchOpts{
		StartTime:   opts.StartTime,
		EndTime:     opts.EndTime,
		Expansions:  orDefault(opts.Expansions, RecentExpansions),
		TweetFields: orDefault(opts.TweetFields, RecentTweetFields),
		PlaceFields: orDefault(opts.PlaceFields, RecentPlaceFields),
	}
	records := make([]model.Record, 0, min(opts.Count, 1000))
	pages := 0
	for len(records) < opts.Count {
		search.MaxResults = min(100, opts.Count-len(records))
		page, err := client.SearchRecent(ctx, opts.Query, search)
		if err != nil {
			return model.CollectionResult{}, fmt.Errorf("search page %d: %w", pages+1, err)
		}
		pages++
		room := opts.Count - len(records)
		if len(page.Records) > room {
			page.Records = page.Records[:room]
		}
		records = append(records, page.Records...)
		if page.NextToken == "" {
			break
		}
		search.NextToken = page.NextToken
	}
	logging.Info("recent_fetched", map[string]any{"query": opts.Query, "target": opts.Count, "records": len(records), "pages": pages})
	return model.NewCollectionResult(model.CollectionRecent, opts.Query, records, c.now()), nil
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
