package collector

import (
	"context"
	"sync"

	"tweetminer/internal/model"
	"tweetminer/internal/xclient"
)

// fakeClient scripts search pages, user lookups and a stream.
type fakeClient struct {
	mu sync.Mutex

	pages    []xclient.SearchPage
	searches []xclient.SearchOpts
	queries  []string

	users   map[string]model.AuthorInfo
	lookups []string
	// lookupErrs is consumed front to back before users is consulted
	lookupErrs []error

	rules      []xclient.Rule
	deleted    []string
	added      []xclient.Rule
	addErr     error
	connectErr error
	stream     *fakeStream
}

func (f *fakeClient) SearchRecent(ctx context.Context, query string, opts xclient.SearchOpts) (xclient.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.searches = append(f.searches, opts)
	if len(f.pages) == 0 {
		return xclient.SearchPage{}, nil
	}
	p := f.pages[0]
	f.pages = f.pages[1:]
	return p, nil
}

func (f *fakeClient) LookupUser(ctx context.Context, id string, fields []string) (model.AuthorInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, id)
	if len(f.lookupErrs) > 0 {
		err := f.lookupErrs[0]
		f.lookupErrs = f.lookupErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.users[id], nil
}

func (f *fakeClient) Rules(ctx context.Context) ([]xclient.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]xclient.Rule(nil), f.rules...), nil
}

func (f *fakeClient) DeleteRules(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids...)
	f.rules = nil
	return nil
}

func (f *fakeClient) AddRules(ctx context.Context, rules ...xclient.Rule) ([]xclient.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.added = append(f.added, rules...)
	return rules, nil
}

func (f *fakeClient) ConnectStream(ctx context.Context, opts xclient.StreamOpts) (xclient.Stream, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	return f.stream, nil
}

// fakeStream offers queued records one by one and counts Close calls.
type fakeStream struct {
	records chan model.Record
	errs    chan error
	mu      sync.Mutex
	closes  int
	closed  chan struct{}
}

func newFakeStream(recs []model.Record, endErr error) *fakeStream {
	s := &fakeStream{records: make(chan model.Record), errs: make(chan error, 1), closed: make(chan struct{})}
	go func() {
		defer close(s.records)
		for _, r := range recs {
			select {
			case s.records <- r:
			case <-s.closed:
				return
			}
		}
		if endErr != nil {
			s.errs <- endErr
		}
	}()
	return s
}

func (s *fakeStream) Records() <-chan model.Record { return s.records }
func (s *fakeStream) Err() <-chan error            { return s.errs }

func (s *fakeStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	if s.closes == 1 {
		close(s.closed)
	}
}

func (s *fakeStream) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func rec(id, text string) model.Record {
	return model.Record{"id": id, "text": text, "author_id": "a" + id}
}
