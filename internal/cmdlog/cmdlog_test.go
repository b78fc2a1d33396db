package cmdlog

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"tweetminer/internal/logging"
	"tweetminer/internal/metrics"
)

func TestRunCountsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	defer logging.SetOutput(os.Stderr)

	before := testutil.ToFloat64(metrics.CommandErrors.WithLabelValues("probe"))
	if err := Run("probe", func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	if err := Run("probe", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := testutil.ToFloat64(metrics.CommandRuns.WithLabelValues("probe")); got < 2 {
		t.Fatalf("expected 2 runs, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.CommandErrors.WithLabelValues("probe")); got != before+1 {
		t.Fatalf("expected one more error, got %v", got)
	}
	out := buf.String()
	if !strings.Contains(out, `"msg":"probe_ok"`) || !strings.Contains(out, `"msg":"probe_error"`) {
		t.Fatalf("missing log lines: %s", out)
	}
}
