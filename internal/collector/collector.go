// Package collector gathers tweets through an xclient: paged recent search,
// the filtered stream and author lookups.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tweetminer/internal/model"
	"tweetminer/internal/xclient"
)

// ClientFactory builds a fresh API client. It is called again before
// every author lookup.
type ClientFactory func() (xclient.XClient, error)

// AuthorCache remembers successful author lookups between runs.
type AuthorCache interface {
	GetAuthor(ctx context.Context, id string) (model.AuthorInfo, bool, error)
	PutAuthor(ctx context.Context, info model.AuthorInfo, at time.Time) error
}

// Collector runs recent searches and author lookups.
type Collector struct {
	newClient     ClientFactory
	cache         AuthorCache
	rateLimitWait time.Duration
	sleep         func(context.Context, time.Duration) error
	now           func() time.Time
	onRateLimit   func(id string, wait time.Duration)
}

type Option func(*Collector)

func WithAuthorCache(c AuthorCache) Option { return func(col *Collector) { col.cache = c } }

// WithRateLimitWait sets how long FetchAuthors pauses after a rate limit.
func WithRateLimitWait(d time.Duration) Option {
	return func(col *Collector) {
		if d > 0 {
			col.rateLimitWait = d
		}
	}
}

func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(col *Collector) { col.sleep = fn }
}

func WithClock(fn func() time.Time) Option { return func(col *Collector) { col.now = fn } }

// WithRateLimitHook is called each time FetchAuthors pauses.
func WithRateLimitHook(fn func(id string, wait time.Duration)) Option {
	return func(col *Collector) { col.onRateLimit = fn }
}

func New(factory ClientFactory, opts ...Option) *Collector {
	c := &Collector{
		newClient:     factory,
		rateLimitWait: 15 * time.Minute,
		sleep:         sleepCtx,
		now:           time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// StaticClient is a ClientFactory that always hands out the same client.
func StaticClient(c xclient.XClient) ClientFactory {
	return func() (xclient.XClient, error) { return c, nil }
}

// Renew builds a fresh client from the factory. Every search and lookup
// starts with one.
func (c *Collector) Renew() (xclient.XClient, error) {
	if c.newClient == nil {
		return nil, errors.New("collector: no client factory")
	}
	cl, err := c.newClient()
	if err != nil {
		return nil, fmt.Errorf("renew client: %w", err)
	}
	return cl, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
