package persist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetminer/internal/model"
)

func TestDefaultFileName(t *testing.T) {
	assert.Equal(t, `recent_post_"X" -is-retweet lang-en_3.json`,
		DefaultFileName(model.CollectionRecent, `"X" -is:retweet lang:en`, 3))
	assert.Equal(t, "streaminggolang OR rust_100.json",
		DefaultFileName(model.CollectionStreaming, "golang OR rust", 100))
	assert.Equal(t, "recent_post_a-b-c_1.json", DefaultFileName(model.CollectionRecent, `a/b\c`, 1))
}

func TestFileNameSuffix(t *testing.T) {
	assert.Equal(t, "queen.json", FileName(model.CollectionRecent, "q", 1, "queen"))
	assert.Equal(t, "queen.json", FileName(model.CollectionRecent, "q", 1, "queen.json"))
	assert.Equal(t, "recent_post_q_1.json", FileName(model.CollectionRecent, "q", 1, ""))
}

func TestSaveCreatesDirAndRoundTrips(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	records := []model.Record{
		{"id": "1", "text": "a <b> & c", "public_metrics": map[string]any{"like_count": 2}},
		{"id": "2", "text": "b"},
	}
	res := model.NewCollectionResult(model.CollectionRecent, "golang", records, time.Unix(1663250000, 0))

	path, err := Save(res, 0, dir, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "recent_post_golang_2.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n    \"collection_type\": \"recent\"")
	assert.Contains(t, string(raw), "a <b> & c")

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, "golang", got.Query)
	assert.Equal(t, "1", got.Records[0].ID())
	assert.Equal(t, 2, got.Records[0].EngagementTotal())
	assert.InDelta(t, 1663250000, got.Timestamp, 0.001)
}

func TestSaveNamesFileAfterTarget(t *testing.T) {
	dir := t.TempDir()
	res := model.NewCollectionResult(model.CollectionRecent, "a:b", []model.Record{{"id": "1"}}, time.Unix(1663250000, 0))

	path, err := Save(res, 3, dir, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "recent_post_a-b_3.json"), path)

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Count)
}

func TestLoadRejectsCountMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	body := `{"collection_type":"recent post","collection_timestamp":1,"query":"q","tweet_cnt":2,"tweets":[{"id":"1"}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrCountMismatch)
}

func TestLoadLegacyType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	body := `{"collection_type":"recent post","collection_timestamp":1.5,"query":"q","tweet_cnt":1,"tweets":[{"id":"1"}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.CollectionRecent, got.CollectionType)
}

func TestAuthorsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authors.json")
	in := []model.AuthorInfo{
		{"id": "1", "username": "a", "public_metrics": map[string]any{"followers_count": 10, "listed_count": 1}},
		nil,
	}
	require.NoError(t, SaveAuthors(path, in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "null"))

	out, err := LoadAuthors(path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 11, out[0].InfluenceScore())
	assert.Nil(t, out[1])
}
