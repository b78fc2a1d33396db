package xclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestConnectStreamParsesLines(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tweet.fields") != "created_at" {
			t.Errorf("unexpected query %v", r.URL.Query())
		}
		fl := w.(http.Flusher)
		for i := 1; i <= 3; i++ {
			fmt.Fprintf(w, `{"data":{"id":"%d","text":"tweet %d"},"matching_rules":[{"id":"1"}]}`+"\r\n", i, i)
			// keep-alive
			_, _ = io.WriteString(w, "\r\n")
			fl.Flush()
		}
	}))
	defer ts.Close()

	c := newTestClient(ts)
	s, err := c.ConnectStream(context.Background(), StreamOpts{TweetFields: []string{"created_at"}})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()

	var ids []string
	for r := range s.Records() {
		ids = append(ids, r.ID())
	}
	if fmt.Sprint(ids) != "[1 2 3]" {
		t.Fatalf("unexpected ids %v", ids)
	}
	select {
	case err := <-s.Err():
		t.Fatalf("unexpected stream error %v", err)
	default:
	}
}

func TestConnectStreamOperationalError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"errors":[{"title":"operational-disconnect","detail":"This stream has been disconnected"}]}`+"\r\n")
	}))
	defer ts.Close()

	c := newTestClient(ts)
	s, err := c.ConnectStream(context.Background(), StreamOpts{})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	for range s.Records() {
	}
	select {
	case err := <-s.Err():
		if !errors.Is(err, ErrStreamClosed) {
			t.Fatalf("expected ErrStreamClosed, got %v", err)
		}
	default:
		t.Fatalf("expected an error before records closed")
	}
}

func TestConnectStreamRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"title":"Unauthorized"}`)
	}))
	defer ts.Close()

	c := newTestClient(ts)
	if _, err := c.ConnectStream(context.Background(), StreamOpts{}); !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("expected ErrAuthExpired, got %v", err)
	}
}

func TestStreamCloseStopsReader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fl := w.(http.Flusher)
		for i := 0; ; i++ {
			if _, err := fmt.Fprintf(w, `{"data":{"id":"%d","text":"t"}}`+"\r\n", i); err != nil {
				return
			}
			fl.Flush()
			select {
			case <-r.Context().Done():
				return
			case <-time.After(5 * time.Millisecond):
			}
		}
	}))
	defer ts.Close()

	c := newTestClient(ts)
	s, err := c.ConnectStream(context.Background(), StreamOpts{})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	<-s.Records()
	s.Close()
	s.Close()

	done := make(chan struct{})
	go func() {
		for range s.Records() {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("reader did not stop after Close")
	}
}

func TestMockClientPagesAndStreams(t *testing.T) {
	m := NewMockClient()
	m.Total = 25
	m.Interval = time.Millisecond
	ctx := context.Background()

	var total int
	token := ""
	for {
		page, err := m.SearchRecent(ctx, "golang", SearchOpts{MaxResults: 10, NextToken: token})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		total += len(page.Records)
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}
	if total != 25 {
		t.Fatalf("expected 25 mock tweets, got %d", total)
	}

	if _, err := m.AddRules(ctx, Rule{Value: "golang"}); err != nil {
		t.Fatalf("add rule: %v", err)
	}
	s, err := m.ConnectStream(ctx, StreamOpts{})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	r := <-s.Records()
	s.Close()
	if r.AuthorID() == "" || r.Text() == "" {
		t.Fatalf("unexpected mock record %v", r)
	}
}
