package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetminer/internal/analysis"
	"tweetminer/internal/model"
)

func sampleReport() analysis.Report {
	res := model.NewCollectionResult(model.CollectionRecent, "born pink", []model.Record{
		{"id": "1", "author_id": "u1", "created_at": "2022-09-28T10:00:00Z", "text": "Shutdown is amazing #bornpink"},
		{"id": "2", "author_id": "u2", "created_at": "2022-09-29T10:00:00Z", "text": "Pink venom is great #bornpink"},
	}, time.Unix(1664500000, 0))
	return analysis.Run(res, nil, analysis.Options{})
}

func TestRenderContainsCharts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport()))
	html := buf.String()
	assert.Contains(t, html, "Keywords")
	assert.Contains(t, html, "Tweets per day")
	assert.Contains(t, html, "Polarity")
	assert.Contains(t, html, "shutdown")
	assert.Contains(t, html, "westeros")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.html")
	require.NoError(t, WriteFile(path, sampleReport()))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestHandler(t *testing.T) {
	h := Handler(func() (analysis.Report, error) { return sampleReport(), nil })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Top hashtags")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "born pink", got["query"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	failing := Handler(func() (analysis.Report, error) { return analysis.Report{}, errors.New("missing file") })
	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
