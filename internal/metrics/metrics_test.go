package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsExposure(t *testing.T) {
	ObserveCollection("recent", time.Now().Add(-1500*time.Millisecond), 3, nil)
	ObserveCollection("streaming", time.Now(), 0, errors.New("boom"))
	IncAPIRetry("/tweets/search/recent")
	IncRateLimited("/users/:id")
	IncCommandRun("recent")
	IncCommandError("recent")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, m := range []string{
		"tweetminer_collection_runs_total",
		"tweetminer_collection_errors_total",
		"tweetminer_records_collected_total",
		"tweetminer_collection_duration_seconds",
		"tweetminer_api_retries_total",
		"tweetminer_rate_limited_total",
		"tweetminer_command_runs_total",
		"tweetminer_command_errors_total",
	} {
		if !strings.Contains(body, m) {
			t.Fatalf("expected metric %s in body", m)
		}
	}
}
