package xclient

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"tweetminer/internal/model"
)

var mockWords = []string{
	"launch", "great", "terrible", "update", "love", "hate", "fast", "slow",
	"release", "bug", "amazing", "broken", "support", "news", "today",
}

var mockSources = []string{"Twitter Web App", "Twitter for iPhone", "Twitter for Android"}

// MockClient implements XClient but returns fake data.
type MockClient struct {
	// Total caps how many tweets a recent search can page through.
	Total int
	// Interval spaces streamed tweets.
	Interval time.Duration

	mu     sync.Mutex
	rules  []Rule
	nextID int
	rnd    *rand.Rand
}

func NewMockClient() *MockClient {
	return &MockClient{
		Total:    250,
		Interval: 200 * time.Millisecond,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockClient) SearchRecent(ctx context.Context, query string, opts SearchOpts) (SearchPage, error) {
	if err := ctx.Err(); err != nil {
		return SearchPage{}, err
	}
	offset := 0
	if opts.NextToken != "" {
		n, err := strconv.Atoi(opts.NextToken)
		if err != nil {
			return SearchPage{}, &APIError{StatusCode: 400, Title: "Invalid Request", Detail: "bad next_token", kind: ErrInvalidQuery}
		}
		offset = n
	}
	size := clamp(opts.MaxResults, 10, 100)
	if offset+size > m.Total {
		size = m.Total - offset
	}
	page := SearchPage{}
	for i := 0; i < size; i++ {
		page.Records = append(page.Records, m.fakeTweet(query, offset+i))
	}
	page.ResultCount = len(page.Records)
	if offset+size < m.Total {
		page.NextToken = strconv.Itoa(offset + size)
	}
	return page, nil
}

func (m *MockClient) LookupUser(ctx context.Context, id string, userFields []string) (model.AuthorInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.AuthorInfo{
		"id":          id,
		"username":    "mock_user_" + id,
		"name":        "Mock User " + id,
		"created_at":  time.Now().AddDate(-2, 0, 0).UTC().Format(time.RFC3339),
		"description": "simulated account",
		"location":    "localhost",
		"verified":    false,
		"public_metrics": map[string]any{
			"followers_count": m.rnd.Intn(5000),
			"following_count": m.rnd.Intn(1000),
			"tweet_count":     m.rnd.Intn(20000),
			"listed_count":    m.rnd.Intn(50),
		},
	}, nil
}

func (m *MockClient) Rules(ctx context.Context) ([]Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Rule(nil), m.rules...), nil
}

func (m *MockClient) DeleteRules(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.rules[:0]
	for _, r := range m.rules {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	m.rules = kept
	return nil
}

func (m *MockClient) AddRules(ctx context.Context, rules ...Rule) ([]Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	added := make([]Rule, 0, len(rules))
	for _, r := range rules {
		m.nextID++
		r.ID = strconv.Itoa(m.nextID)
		m.rules = append(m.rules, r)
		added = append(added, r)
	}
	return added, nil
}

// ConnectStream emits one fake tweet per Interval for the first installed rule.
func (m *MockClient) ConnectStream(ctx context.Context, opts StreamOpts) (Stream, error) {
	m.mu.Lock()
	query := "mock"
	if len(m.rules) > 0 {
		query = m.rules[0].Value
	}
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s := &mockStream{records: make(chan model.Record), errs: make(chan error, 1), cancel: cancel}
	go func() {
		defer close(s.records)
		t := time.NewTicker(m.Interval)
		defer t.Stop()
		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			select {
			case s.records <- m.fakeTweet(query, i):
			case <-ctx.Done():
				return
			}
		}
	}()
	return s, nil
}

type mockStream struct {
	records chan model.Record
	errs    chan error
	cancel  context.CancelFunc
	once    sync.Once
}

func (s *mockStream) Records() <-chan model.Record { return s.records }
func (s *mockStream) Err() <-chan error            { return s.errs }
func (s *mockStream) Close()                       { s.once.Do(s.cancel) }

func (m *MockClient) fakeTweet(query string, i int) model.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	w1 := mockWords[m.rnd.Intn(len(mockWords))]
	w2 := mockWords[m.rnd.Intn(len(mockWords))]
	author := strconv.Itoa(1000 + m.rnd.Intn(40))
	return model.Record{
		"id":        fmt.Sprintf("mock_%d_%d", time.Now().UnixNano(), i),
		"text":      fmt.Sprintf("%s is %s, so %s #%s @user%s", query, w1, w2, w1, author),
		"author_id": author,
		"created_at": time.Now().Add(-time.Duration(m.rnd.Intn(6*24)) * time.Hour).
			UTC().Format(time.RFC3339),
		"lang":   "en",
		"source": mockSources[m.rnd.Intn(len(mockSources))],
		"public_metrics": map[string]any{
			"retweet_count": m.rnd.Intn(100),
			"reply_count":   m.rnd.Intn(30),
			"like_count":    m.rnd.Intn(500),
			"quote_count":   m.rnd.Intn(10),
		},
	}
}
