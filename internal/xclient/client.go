package xclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tweetminer/internal/metrics"
	"tweetminer/internal/model"
)

// SearchOpts selects the window, page and fields of a recent search request.
type SearchOpts struct {
	StartTime   time.Time
	EndTime     time.Time
	MaxResults  int
	NextToken   string
	Expansions  []string
	TweetFields []string
	PlaceFields []string
}

// SearchPage is one page of recent search results.
type SearchPage struct {
	Records     []model.Record
	ResultCount int
	NextToken   string
}

// Rule is a server-side filter for the filtered stream.
type Rule struct {
	ID    string `json:"id,omitempty"`
	Value string `json:"value"`
	Tag   string `json:"tag,omitempty"`
}

// StreamOpts selects the fields delivered with each streamed tweet.
type StreamOpts struct {
	Expansions  []string
	TweetFields []string
}

// Stream is an open push connection. Records is closed when the connection
// ends; a terminal error, if any, is sent on Err before that.
type Stream interface {
	Records() <-chan model.Record
	Err() <-chan error
	Close()
}

type Searcher interface {
	SearchRecent(ctx context.Context, query string, opts SearchOpts) (SearchPage, error)
}

type UserLooker interface {
	// LookupUser returns nil without error when the API has no data for id.
	LookupUser(ctx context.Context, id string, userFields []string) (model.AuthorInfo, error)
}

type RuleManager interface {
	Rules(ctx context.Context) ([]Rule, error)
	DeleteRules(ctx context.Context, ids []string) error
	AddRules(ctx context.Context, rules ...Rule) ([]Rule, error)
}

type StreamConnector interface {
	ConnectStream(ctx context.Context, opts StreamOpts) (Stream, error)
}

// XClient defines methods we use from X API.
type XClient interface {
	Searcher
	UserLooker
	RuleManager
	StreamConnector
}

// HTTPClient is a simple bearer-token client for X API v2.
type HTTPClient struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	// streamClient has no timeout; a filtered stream stays open indefinitely.
	streamClient *http.Client
	limiter      *rate.Limiter
	maxAttempts  int
	baseBackoff  time.Duration
}

func NewHTTPClient(bearerToken string, opts Options) *HTTPClient {
	opts = opts.withDefaults()
	return &HTTPClient{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		bearerToken:  bearerToken,
		httpClient:   &http.Client{Timeout: opts.Timeout},
		streamClient: &http.Client{},
		limiter:      opts.limiter(),
		maxAttempts:  opts.MaxAttempts,
		baseBackoff:  opts.BaseBackoff,
	}
}

func (c *HTTPClient) auth(req *http.Request) {
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	req.Header.Set("Accept", "application/json")
}

// SearchRecent fetches one page from the recent search endpoint.
func (c *HTTPClient) SearchRecent(ctx context.Context, query string, opts SearchOpts) (SearchPage, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("max_results", strconv.Itoa(clamp(opts.MaxResults, 10, 100)))
	if !opts.StartTime.IsZero() {
		q.Set("start_time", opts.StartTime.UTC().Format(time.RFC3339))
	}
	if !opts.EndTime.IsZero() {
		q.Set("end_time", opts.EndTime.UTC().Format(time.RFC3339))
	}
	if opts.NextToken != "" {
		q.Set("next_token", opts.NextToken)
	}
	setList(q, "expansions", opts.Expansions)
	setList(q, "tweet.fields", opts.TweetFields)
	setList(q, "place.fields", opts.PlaceFields)

	var raw struct {
		Data []model.Record `json:"data"`
		Meta struct {
			ResultCount int    `json:"result_count"`
			NextToken   string `json:"next_token"`
		} `json:"meta"`
	}
	if err := c.do(ctx, http.MethodGet, "/tweets/search/recent", q, nil, &raw); err != nil {
		return SearchPage{}, err
	}
	return SearchPage{Records: raw.Data, ResultCount: raw.Meta.ResultCount, NextToken: raw.Meta.NextToken}, nil
}

// LookupUser fetches one user by id.
func (c *HTTPClient) LookupUser(ctx context.Context, id string, userFields []string) (model.AuthorInfo, error) {
	q := url.Values{}
	setList(q, "user.fields", userFields)
	var raw struct {
		Data model.AuthorInfo `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), q, nil, &raw); err != nil {
		return nil, err
	}
	// unknown ids come back as 200 with only a "Not Found Error" entry
	if len(raw.Data) == 0 {
		return nil, nil
	}
	return raw.Data, nil
}

// Rules lists the filtered stream rules currently installed.
func (c *HTTPClient) Rules(ctx context.Context) ([]Rule, error) {
	var raw struct {
		Data []Rule `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/tweets/search/stream/rules", nil, nil, &raw); err != nil {
		return nil, err
	}
	return raw.Data, nil
}

// DeleteRules removes stream rules by id.
func (c *HTTPClient) DeleteRules(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	payload := map[string]any{"delete": map[string]any{"ids": ids}}
	err := c.do(ctx, http.MethodPost, "/tweets/search/stream/rules", nil, payload, nil)
	return err
}

// AddRules installs stream rules. A rule the API rejects yields ErrInvalidQuery.
func (c *HTTPClient) AddRules(ctx context.Context, rules ...Rule) ([]Rule, error) {
	add := make([]Rule, 0, len(rules))
	for _, r := range rules {
		add = append(add, Rule{Value: r.Value, Tag: r.Tag})
	}
	var raw struct {
		Data   []Rule `json:"data"`
		Errors []struct {
			Title string `json:"title"`
			Value string `json:"value"`
		} `json:"errors"`
	}
	if err := c.do(ctx, http.MethodPost, "/tweets/search/stream/rules", nil, map[string]any{"add": add}, &raw); err != nil {
		return nil, err
	}
	if len(raw.Data) == 0 && len(raw.Errors) > 0 {
		return nil, &APIError{StatusCode: http.StatusOK, Title: raw.Errors[0].Title, Detail: raw.Errors[0].Value, kind: ErrInvalidQuery}
	}
	return raw.Data, nil
}

// do sends one request and decodes a JSON success body into out.
func (c *HTTPClient) do(ctx context.Context, method, path string, q url.Values, payload any, out any) error {
	endpoint := routeLabel(path)
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var reqBody []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		reqBody = b
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	c.auth(req)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.doWithRetry(ctx, req, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		apiErr := classifyResponse(resp.StatusCode, body, resp.Header)
		if apiErr.StatusCode == http.StatusTooManyRequests {
			metrics.IncRateLimited(endpoint)
		}
		return apiErr
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode %s: %w", endpoint, err)
		}
	}
	return nil
}

// routeLabel keeps ids out of metric labels.
func routeLabel(path string) string {
	if strings.HasPrefix(path, "/users/") {
		return "/users/:id"
	}
	return path
}

func setList(q url.Values, key string, vals []string) {
	if len(vals) > 0 {
		q.Set(key, strings.Join(vals, ","))
	}
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// doWithRetry retries 429 and 5xx answers while attempts remain. The last
// answer is returned as-is so the caller can classify it.
func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request, endpoint string) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		r := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			r.Body = body
		}
		resp, err := c.httpClient.Do(r)
		if err == nil {
			retryable := resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)
			if !retryable || attempt == c.maxAttempts {
				return resp, nil
			}
			wait := retryAfter(resp.Header.Get("Retry-After"), backoff)
			_ = resp.Body.Close()
			metrics.IncAPIRetry(endpoint)
			if err := sleepCtx(ctx, jitter(wait)); err != nil {
				return nil, err
			}
			backoff *= 2
			continue
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		metrics.IncAPIRetry(endpoint)
		if err := sleepCtx(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func retryAfter(ra string, def time.Duration) time.Duration {
	if ra == "" {
		return def
	}
	if secs, err := strconv.Atoi(ra); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(ra); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return def
}

// jitter spreads wait by +/-20%.
func jitter(wait time.Duration) time.Duration {
	j := time.Duration(float64(wait) * 0.2)
	if j <= 0 {
		return wait
	}
	return wait - j + time.Duration(time.Now().UnixNano()%int64(2*j))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
