package xclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	twitter "github.com/g8rswimmer/go-twitter/v2"
	"golang.org/x/time/rate"

	"tweetminer/internal/metrics"
	"tweetminer/internal/model"
)

type bearerAuthorizer string

func (b bearerAuthorizer) Add(req *http.Request) {
	req.Header.Add("Authorization", "Bearer "+string(b))
}

// SDKClient implements XClient on top of github.com/g8rswimmer/go-twitter/v2.
type SDKClient struct {
	api *twitter.Client
	// stream has no client timeout; the connection lives until closed
	stream  *twitter.Client
	limiter *rate.Limiter
}

func NewSDKClient(bearerToken string, opts Options) *SDKClient {
	opts = opts.withDefaults()
	// the SDK appends the /2 version segment itself
	host := strings.TrimSuffix(strings.TrimRight(opts.BaseURL, "/"), "/2")
	return &SDKClient{
		api: &twitter.Client{
			Authorizer: bearerAuthorizer(bearerToken),
			Client:     &http.Client{Timeout: opts.Timeout},
			Host:       host,
		},
		stream: &twitter.Client{
			Authorizer: bearerAuthorizer(bearerToken),
			Client:     &http.Client{},
			Host:       host,
		},
		limiter: opts.limiter(),
	}
}

func (c *SDKClient) SearchRecent(ctx context.Context, query string, opts SearchOpts) (SearchPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return SearchPage{}, err
	}
	resp, err := c.api.TweetRecentSearch(ctx, query, twitter.TweetRecentSearchOpts{
		Expansions:  expansions(opts.Expansions),
		TweetFields: tweetFields(opts.TweetFields),
		PlaceFields: placeFields(opts.PlaceFields),
		StartTime:   opts.StartTime,
		EndTime:     opts.EndTime,
		MaxResults:  clamp(opts.MaxResults, 10, 100),
		NextToken:   opts.NextToken,
	})
	if err != nil {
		return SearchPage{}, convertSDKError("/tweets/search/recent", err)
	}
	var page SearchPage
	if resp.Raw != nil {
		if err := remarshal(resp.Raw.Tweets, &page.Records); err != nil {
			return SearchPage{}, fmt.Errorf("decode tweets: %w", err)
		}
	}
	if resp.Meta != nil {
		page.ResultCount = resp.Meta.ResultCount
		page.NextToken = resp.Meta.NextToken
	}
	return page, nil
}

func (c *SDKClient) LookupUser(ctx context.Context, id string, userFields []string) (model.AuthorInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	uf := make([]twitter.UserField, 0, len(userFields))
	for _, f := range userFields {
		uf = append(uf, twitter.UserField(f))
	}
	resp, err := c.api.UserLookup(ctx, []string{id}, twitter.UserLookupOpts{UserFields: uf})
	if err != nil {
		err = convertSDKError("/users/:id", err)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if resp.Raw == nil || len(resp.Raw.Users) == 0 || resp.Raw.Users[0] == nil {
		return nil, nil
	}
	var info model.AuthorInfo
	if err := remarshal(resp.Raw.Users[0], &info); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return info, nil
}

func (c *SDKClient) Rules(ctx context.Context) ([]Rule, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.api.TweetSearchStreamRules(ctx, nil)
	if err != nil {
		return nil, convertSDKError("/tweets/search/stream/rules", err)
	}
	return rulesFromEntities(resp.Rules), nil
}

func (c *SDKClient) DeleteRules(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	ruleIDs := make([]twitter.TweetSearchStreamRuleID, 0, len(ids))
	for _, id := range ids {
		ruleIDs = append(ruleIDs, twitter.TweetSearchStreamRuleID(id))
	}
	if _, err := c.api.TweetSearchStreamDeleteRuleByID(ctx, ruleIDs, false); err != nil {
		return convertSDKError("/tweets/search/stream/rules", err)
	}
	return nil
}

func (c *SDKClient) AddRules(ctx context.Context, rules ...Rule) ([]Rule, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	add := make([]twitter.TweetSearchStreamRule, 0, len(rules))
	for _, r := range rules {
		add = append(add, twitter.TweetSearchStreamRule{Value: r.Value, Tag: r.Tag})
	}
	resp, err := c.api.TweetSearchStreamAddRule(ctx, add, false)
	if err != nil {
		return nil, convertSDKError("/tweets/search/stream/rules", err)
	}
	if len(resp.Rules) == 0 && len(resp.Errors) > 0 {
		return nil, &APIError{StatusCode: http.StatusOK, Title: resp.Errors[0].Title, Detail: resp.Errors[0].Detail, kind: ErrInvalidQuery}
	}
	return rulesFromEntities(resp.Rules), nil
}

func (c *SDKClient) ConnectStream(ctx context.Context, opts StreamOpts) (Stream, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	ts, err := c.stream.TweetSearchStream(ctx, twitter.TweetSearchStreamOpts{
		Expansions:  expansions(opts.Expansions),
		TweetFields: tweetFields(opts.TweetFields),
	})
	if err != nil {
		return nil, convertSDKError("/tweets/search/stream", err)
	}
	s := &sdkStream{
		ts:      ts,
		records: make(chan model.Record),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	go s.pump(ctx)
	return s, nil
}

// sdkStream adapts the SDK's TweetStream to Stream.
type sdkStream struct {
	ts      *twitter.TweetStream
	records chan model.Record
	errs    chan error
	done    chan struct{}
	once    sync.Once
}

func (s *sdkStream) Records() <-chan model.Record { return s.records }
func (s *sdkStream) Err() <-chan error            { return s.errs }

func (s *sdkStream) Close() {
	s.once.Do(func() {
		close(s.done)
		s.ts.Close()
	})
}

func (s *sdkStream) pump(ctx context.Context) {
	defer close(s.records)
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.done:
			return
		case err := <-s.ts.Err():
			s.fail(fmt.Errorf("read stream: %w", err))
			return
		case de := <-s.ts.DisconnectionError():
			s.fail(fmt.Errorf("%w: %v", ErrStreamClosed, de))
			return
		case msg, ok := <-s.ts.Tweets():
			if !ok {
				return
			}
			if msg == nil || msg.Raw == nil {
				continue
			}
			var recs []model.Record
			if err := remarshal(msg.Raw.Tweets, &recs); err != nil {
				s.fail(fmt.Errorf("decode stream message: %w", err))
				return
			}
			for _, r := range recs {
				select {
				case s.records <- r:
				case <-s.done:
					return
				case <-ctx.Done():
					s.Close()
					return
				}
			}
		}
	}
}

func (s *sdkStream) fail(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

// convertSDKError maps SDK errors onto the package's typed errors.
func convertSDKError(endpoint string, err error) error {
	var er *twitter.ErrorResponse
	if errors.As(err, &er) {
		e := &APIError{StatusCode: er.StatusCode, Title: er.Title, Detail: er.Detail, kind: kindForStatus(er.StatusCode)}
		if er.Title == "Not Found Error" {
			e.kind = ErrNotFound
		}
		if errors.Is(e.kind, ErrRateLimited) {
			metrics.IncRateLimited(endpoint)
			e.Reset = time.Now().Add(15 * time.Minute)
			if er.RateLimit != nil {
				e.Reset = time.Unix(int64(er.RateLimit.Reset), 0)
			}
		}
		return e
	}
	var he *twitter.HTTPError
	if errors.As(err, &he) {
		e := &APIError{StatusCode: he.StatusCode, Title: he.Status, kind: kindForStatus(he.StatusCode)}
		if errors.Is(e.kind, ErrRateLimited) {
			metrics.IncRateLimited(endpoint)
			e.Reset = time.Now().Add(15 * time.Minute)
			if he.RateLimit != nil {
				e.Reset = time.Unix(int64(he.RateLimit.Reset), 0)
			}
		}
		return e
	}
	return fmt.Errorf("%s: %w", endpoint, err)
}

func rulesFromEntities(ents []*twitter.TweetSearchStreamRuleEntity) []Rule {
	out := make([]Rule, 0, len(ents))
	for _, e := range ents {
		if e == nil {
			continue
		}
		out = append(out, Rule{ID: string(e.ID), Value: e.Value, Tag: e.Tag})
	}
	return out
}

func expansions(names []string) []twitter.Expansion {
	out := make([]twitter.Expansion, 0, len(names))
	for _, n := range names {
		out = append(out, twitter.Expansion(n))
	}
	return out
}

func tweetFields(names []string) []twitter.TweetField {
	out := make([]twitter.TweetField, 0, len(names))
	for _, n := range names {
		out = append(out, twitter.TweetField(n))
	}
	return out
}

func placeFields(names []string) []twitter.PlaceField {
	out := make([]twitter.PlaceField, 0, len(names))
	for _, n := range names {
		out = append(out, twitter.PlaceField(n))
	}
	return out
}

// remarshal converts SDK structs into the passthrough map types.
func remarshal(in any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
