package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

func (r Record) str(key string) string {
	if r == nil {
		return ""
	}
	switch v := r[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

func (r Record) ID() string       { return r.str("id") }
func (r Record) Text() string     { return r.str("text") }
func (r Record) AuthorID() string { return r.str("author_id") }
func (r Record) Source() string   { return r.str("source") }

// CreatedAt parses created_at (RFC 3339, as the API returns it).
func (r Record) CreatedAt() (time.Time, bool) {
	s := r.str("created_at")
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Day is the date part of created_at, e.g. "2022-09-28".
func (r Record) Day() string {
	s := r.str("created_at")
	if s == "" {
		return ""
	}
	day, _, _ := strings.Cut(s, "T")
	return day
}

// PublicMetrics returns the numeric counters under public_metrics.
func (r Record) PublicMetrics() map[string]int {
	if r == nil {
		return nil
	}
	return counters(r["public_metrics"])
}

func (a AuthorInfo) str(key string) string { return Record(a).str(key) }

func (a AuthorInfo) ID() string       { return a.str("id") }
func (a AuthorInfo) Username() string { return a.str("username") }

func (a AuthorInfo) PublicMetrics() map[string]int {
	if a == nil {
		return nil
	}
	return counters(a["public_metrics"])
}

func counters(v any) map[string]int {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, raw := range m {
		if n, ok := toInt(raw); ok {
			out[k] = n
		}
	}
	return out
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}
