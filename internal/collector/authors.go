package collector

import (
	"context"
	"errors"
	"fmt"

	"tweetminer/internal/logging"
	"tweetminer/internal/model"
	"tweetminer/internal/xclient"
)

var AuthorUserFields = []string{"created_at", "description", "location", "public_metrics", "verified"}

// FetchAuthorInfo renews the client and looks up one author. It returns
// nil without error when the API has no data for id.
func (c *Collector) FetchAuthorInfo(ctx context.Context, id string) (model.AuthorInfo, error) {
	client, err := c.Renew()
	if err != nil {
		return nil, err
	}
	info, err := client.LookupUser(ctx, id, AuthorUserFields)
	if err != nil {
		if errors.Is(err, xclient.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup author %s: %w", id, err)
	}
	return info, nil
}

// FetchAuthors looks up every id in order. Cached authors are served from
// the cache. A rate-limited lookup pauses for the configured wait and is
// retried for the same id. Empty lookups stay in the list as nil.
func (c *Collector) FetchAuthors(ctx context.Context, ids []string) ([]model.AuthorInfo, error) {
	out := make([]model.AuthorInfo, 0, len(ids))
	cached := 0
	for _, id := range ids {
		if c.cache != nil {
			info, ok, err := c.cache.GetAuthor(ctx, id)
			if err != nil {
				logging.Warn("author_cache_read_failed", map[string]any{"author_id": id, "error": err.Error()})
			} else if ok {
				out = append(out, info)
				cached++
				continue
			}
		}
		info, err := c.fetchWithWait(ctx, id)
		if err != nil {
			return out, err
		}
		if info != nil && c.cache != nil {
			if err := c.cache.PutAuthor(ctx, info, c.now()); err != nil {
				logging.Warn("author_cache_write_failed", map[string]any{"author_id": id, "error": err.Error()})
			}
		}
		out = append(out, info)
	}
	logging.Info("authors_fetched", map[string]any{"authors": len(out), "cached": cached})
	return out, nil
}

// FetchAuthorsFor resolves the unique authors of res in first-seen order.
func (c *Collector) FetchAuthorsFor(ctx context.Context, res model.CollectionResult) ([]model.AuthorInfo, error) {
	return c.FetchAuthors(ctx, model.UniqueAuthorIDs(res.Records))
}

func (c *Collector) fetchWithWait(ctx context.Context, id string) (model.AuthorInfo, error) {
	for {
		info, err := c.FetchAuthorInfo(ctx, id)
		if !errors.Is(err, xclient.ErrRateLimited) {
			return info, err
		}
		logging.Warn("author_rate_limited", map[string]any{"author_id": id, "wait": c.rateLimitWait.String()})
		if c.onRateLimit != nil {
			c.onRateLimit(id, c.rateLimitWait)
		}
		if err := c.sleep(ctx, c.rateLimitWait); err != nil {
			return nil, err
		}
	}
}
