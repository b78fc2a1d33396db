package sqlitestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"tweetminer/internal/model"
)

func TestRunsIndex(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()

	if err := db.PutRun(ctx, Run{ID: "a", CollectionType: model.CollectionRecent, Query: "golang", Count: 3, Path: "x.json", CollectedAt: 100}); err != nil {
		t.Fatal(err)
	}
	if err := db.PutRun(ctx, Run{ID: "b", CollectionType: model.CollectionStreaming, Query: "rust", Count: 5, CollectedAt: 200.5}); err != nil {
		t.Fatal(err)
	}
	runs, err := db.ListRuns(ctx, 0)
	if err != nil || len(runs) != 2 {
		t.Fatalf("list runs: %v %d", err, len(runs))
	}
	if runs[0].ID != "b" || runs[0].Path != "" || runs[1].CollectionType != model.CollectionRecent {
		t.Fatalf("unexpected order or content: %+v", runs)
	}
	limited, err := db.ListRuns(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limited list: %v %d", err, len(limited))
	}
	r, err := db.GetRun(ctx, "a")
	if err != nil || r.Count != 3 || r.Path != "x.json" {
		t.Fatalf("get run: %v %+v", err, r)
	}
	if _, err := db.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAuthorCache(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()

	if _, ok, err := db.GetAuthor(ctx, "1"); err != nil || ok {
		t.Fatalf("expected cache miss: %v %v", ok, err)
	}
	info := model.AuthorInfo{"id": "1", "username": "gopher", "public_metrics": map[string]any{"followers_count": 7}}
	if err := db.PutAuthor(ctx, info, time.Now()); err != nil {
		t.Fatal(err)
	}
	got, ok, err := db.GetAuthor(ctx, "1")
	if err != nil || !ok || got.Username() != "gopher" || got.InfluenceScore() != 7 {
		t.Fatalf("cache hit mismatch: %v %v %v", got, ok, err)
	}
	if err := db.PutAuthor(ctx, nil, time.Now()); err == nil {
		t.Fatalf("expected error for nil author")
	}
}

func TestEvents(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	now := time.Now().UTC()
	if err := db.PutEvent(ctx, now, "rate_limited", map[string]any{"author_id": "1"}); err != nil {
		t.Fatal(err)
	}
	_ = db.PutEvent(ctx, now, "other", nil)
	evs, err := db.LoadEventsRange(ctx, now.Add(-time.Minute), now.Add(time.Minute), "rate_limited")
	if err != nil || len(evs) != 1 || evs[0].Payload != `{"author_id":"1"}` {
		t.Fatalf("events mismatch: %v %+v", err, evs)
	}
}
