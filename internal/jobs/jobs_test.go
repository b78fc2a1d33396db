package jobs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tweetminer/internal/analysis"
	"tweetminer/internal/collector"
	"tweetminer/internal/logging"
	"tweetminer/internal/persist"
	"tweetminer/internal/store/sqlitestore"
	"tweetminer/internal/xclient"
)

func newRunner(t *testing.T) (*Runner, *sqlitestore.DB, *xclient.MockClient) {
	t.Helper()
	db, err := sqlitestore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	mock := xclient.NewMockClient()
	mock.Total = 30
	mock.Interval = time.Millisecond
	ids := 0
	r := &Runner{
		Collector: collector.New(collector.StaticClient(mock), collector.WithAuthorCache(db)),
		Streamer:  collector.NewStreamer(mock, nil),
		Index:     db,
		NewID: func() string {
			ids++
			return "run-" + string(rune('0'+ids))
		},
	}
	return r, db, mock
}

func TestRunRecentSavesAndIndexes(t *testing.T) {
	r, db, _ := newRunner(t)
	ctx := context.Background()
	dir := t.TempDir()

	out, err := r.RunRecent(ctx, collector.RecentOpts{Query: "golang lang:en", Count: 25}, SaveOpts{Save: true, Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if out.Result.Count != 25 {
		t.Fatalf("expected 25 records, got %d", out.Result.Count)
	}
	if want := filepath.Join(dir, "recent_post_golang lang-en_25.json"); out.Path != want {
		t.Fatalf("path = %s, want %s", out.Path, want)
	}
	run, err := db.GetRun(ctx, "run-1")
	if err != nil || run.Count != 25 || run.Path != out.Path {
		t.Fatalf("indexed run mismatch: %v %+v", err, run)
	}
}

func TestRunRecentExhaustedKeepsTargetInName(t *testing.T) {
	r, _, mock := newRunner(t)
	mock.Total = 1
	dir := t.TempDir()

	out, err := r.RunRecent(context.Background(), collector.RecentOpts{Query: "a:b", Count: 3}, SaveOpts{Save: true, Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if out.Result.Count != 1 {
		t.Fatalf("expected 1 record, got %d", out.Result.Count)
	}
	if want := filepath.Join(dir, "recent_post_a-b_3.json"); out.Path != want {
		t.Fatalf("path = %s, want %s", out.Path, want)
	}
}

func TestRunLogsCollectionTime(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	defer logging.SetOutput(os.Stderr)

	r, _, _ := newRunner(t)
	out, err := r.RunRecent(context.Background(), collector.RecentOpts{Query: "q", Count: 2}, SaveOpts{})
	if err != nil {
		t.Fatal(err)
	}
	want := `"at":"` + out.Result.CollectedAt().Format(time.RFC3339) + `"`
	if log := buf.String(); !strings.Contains(log, `"msg":"collection_done"`) || !strings.Contains(log, want) {
		t.Fatalf("missing collection_done with %s in %s", want, log)
	}
}

func TestRunRecentWithoutSave(t *testing.T) {
	r, db, _ := newRunner(t)
	out, err := r.RunRecent(context.Background(), collector.RecentOpts{Query: "q", Count: 5}, SaveOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Path != "" {
		t.Fatalf("expected no path, got %s", out.Path)
	}
	runs, _ := db.ListRuns(context.Background(), 0)
	if len(runs) != 1 || runs[0].Path != "" {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

func TestRunStream(t *testing.T) {
	r, db, _ := newRunner(t)
	dir := t.TempDir()
	out, err := r.RunStream(context.Background(), collector.StreamOpts{Query: "golang", Count: 4, SaveResult: true, SaveDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if out.Result.Count != 4 || out.Path != filepath.Join(dir, "streaminggolang_4.json") {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if _, err := db.GetRun(context.Background(), out.RunID); err != nil {
		t.Fatalf("stream run not indexed: %v", err)
	}
}

func TestRunAuthorsAndAnalyze(t *testing.T) {
	r, db, _ := newRunner(t)
	ctx := context.Background()
	dir := t.TempDir()
	out, err := r.RunRecent(ctx, collector.RecentOpts{Query: "golang", Count: 12}, SaveOpts{Save: true, Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	authorsPath := filepath.Join(dir, "author_info_list.json")
	authors, err := r.RunAuthors(ctx, out.Path, authorsPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(authors) == 0 {
		t.Fatalf("expected authors")
	}
	loaded, err := persist.LoadAuthors(authorsPath)
	if err != nil || len(loaded) != len(authors) {
		t.Fatalf("authors file mismatch: %v %d", err, len(loaded))
	}
	if _, ok, _ := db.GetAuthor(ctx, authors[0].ID()); !ok {
		t.Fatalf("expected author cached")
	}

	rep, err := Analyze(out.Path, authorsPath, analysis.Options{TopN: 3})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Tweets != 12 || len(rep.TopInfluencers) == 0 {
		t.Fatalf("unexpected report %+v", rep)
	}

	// a missing author list is fine
	if _, err := Analyze(out.Path, filepath.Join(dir, "none.json"), analysis.Options{}); err != nil {
		t.Fatalf("analyze without authors: %v", err)
	}
}
