package main

import (
	"testing"
	"time"

	"tweetminer/internal/config"
)

func TestParseTime(t *testing.T) {
	got, err := parseTime("2024-03-01T10:00:00Z")
	if err != nil || !got.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("rfc3339: %v %v", got, err)
	}
	got, err = parseTime("2024-03-01 10:00:00")
	if err != nil || got.Hour() != 10 || got.Location() != time.Local {
		t.Fatalf("local layout: %v %v", got, err)
	}
	if got, err := parseTime("  "); err != nil || !got.IsZero() {
		t.Fatalf("blank should be zero: %v %v", got, err)
	}
	if _, err := parseTime("yesterday"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestClientOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.API.Mode = "mock"
	cfg.API.BaseBackoffMS = 250
	cfg.API.TimeoutSeconds = 3
	opts := clientOptions(cfg)
	if opts.Mode != "mock" || opts.BaseBackoff != 250*time.Millisecond || opts.Timeout != 3*time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestAnalysisOptionsTopN(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.ExtraStopwords = []string{"rt"}
	if got := analysisOptions(cfg, 0); got.TopN != cfg.Analysis.TopN || len(got.ExtraStopwords) != 1 {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if got := analysisOptions(cfg, 3); got.TopN != 3 {
		t.Fatalf("flag not applied: %+v", got)
	}
}

func TestTruncateCollapsesWhitespace(t *testing.T) {
	if got := truncate("a\n  b   c", 80); got != "a b c" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("got %q", got)
	}
}
