// Package persist reads and writes collection results and author lists as
// indented JSON files.
package persist

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tweetminer/internal/model"
)

const (
	recentPrefix    = "recent_post_"
	streamingPrefix = "streaming"
)

var unsafeChars = strings.NewReplacer(":", "-", "/", "-", `\`, "-")

// DefaultFileName derives a file name from the collection type, the query
// and the tweet count, e.g. recent_post_golang lang-en_100.json.
func DefaultFileName(typ model.CollectionType, query string, count int) string {
	prefix := recentPrefix
	if typ == model.CollectionStreaming {
		prefix = streamingPrefix
	}
	return prefix + unsafeChars.Replace(query) + "_" + strconv.Itoa(count) + ".json"
}

// FileName returns name with a .json suffix, or the default name when name
// is empty.
func FileName(typ model.CollectionType, query string, count int, name string) string {
	if name == "" {
		return DefaultFileName(typ, query, count)
	}
	if !strings.HasSuffix(strings.ToLower(name), ".json") {
		name += ".json"
	}
	return name
}

// Save writes res under dir (created when missing). An empty name selects
// DefaultFileName built from the requested count target; target <= 0 falls
// back to the number of records. It returns the path written.
func Save(res model.CollectionResult, target int, dir, name string) (string, error) {
	if err := res.Validate(); err != nil {
		return "", err
	}
	if target <= 0 {
		target = res.Count
	}
	path := FileName(res.CollectionType, res.Query, target, name)
	if dir != "" {
		path = filepath.Join(dir, path)
	}
	if err := writeJSON(path, res); err != nil {
		return "", fmt.Errorf("save result: %w", err)
	}
	return path, nil
}

// Load reads a result file and checks tweet_cnt against the tweets array.
func Load(path string) (model.CollectionResult, error) {
	var res model.CollectionResult
	if err := readJSON(path, &res); err != nil {
		return model.CollectionResult{}, fmt.Errorf("load result %s: %w", path, err)
	}
	if res.Records == nil {
		res.Records = []model.Record{}
	}
	if err := res.Validate(); err != nil {
		return model.CollectionResult{}, fmt.Errorf("load result %s: %w", path, err)
	}
	return res, nil
}

// SaveAuthors writes the author info list. Nil entries are kept as null.
func SaveAuthors(path string, authors []model.AuthorInfo) error {
	if authors == nil {
		authors = []model.AuthorInfo{}
	}
	if err := writeJSON(path, authors); err != nil {
		return fmt.Errorf("save authors: %w", err)
	}
	return nil
}

func LoadAuthors(path string) ([]model.AuthorInfo, error) {
	var authors []model.AuthorInfo
	if err := readJSON(path, &authors); err != nil {
		return nil, fmt.Errorf("load authors %s: %w", path, err)
	}
	return authors, nil
}

// Encode writes v as 4-space indented JSON without HTML escaping.
func Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// writeJSON truncates and rewrites path in place.
func writeJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, v); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.UseNumber()
	return dec.Decode(v)
}
