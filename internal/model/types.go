package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// RecentLookback is how far back the recent search endpoint can reach.
const RecentLookback = 7 * 24 * time.Hour

// CollectionType tells how a CollectionResult was gathered.
type CollectionType string

const (
	CollectionRecent    CollectionType = "recent"
	CollectionStreaming CollectionType = "streaming"
)

// legacyRecent is what older result files carry for recent searches.
const legacyRecent = "recent post"

// ParseCollectionType maps a stored collection type onto the known values.
func ParseCollectionType(s string) (CollectionType, error) {
	switch s {
	case string(CollectionRecent), legacyRecent:
		return CollectionRecent, nil
	case string(CollectionStreaming):
		return CollectionStreaming, nil
	}
	return "", fmt.Errorf("unknown collection type %q", s)
}

func (t *CollectionType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	ct, err := ParseCollectionType(s)
	if err != nil {
		return err
	}
	*t = ct
	return nil
}

// Record is one platform post. Fields are passed through untouched.
type Record map[string]any

// AuthorInfo is a user profile as returned by the platform. A nil
// AuthorInfo means the lookup came back empty.
type AuthorInfo map[string]any

// CollectionResult is the bundle written once per collection run.
type CollectionResult struct {
	CollectionType CollectionType `json:"collection_type"`
	Timestamp      float64        `json:"collection_timestamp"`
	Query          string         `json:"query"`
	Count          int            `json:"tweet_cnt"`
	Records        []Record       `json:"tweets"`
}

var ErrCountMismatch = errors.New("tweet_cnt does not match number of tweets")

// NewCollectionResult builds a result whose Count always equals len(records).
func NewCollectionResult(typ CollectionType, query string, records []Record, now time.Time) CollectionResult {
	if records == nil {
		records = []Record{}
	}
	return CollectionResult{
		CollectionType: typ,
		Timestamp:      float64(now.UnixNano()) / 1e9,
		Query:          query,
		Count:          len(records),
		Records:        records,
	}
}

// Validate checks that tweet_cnt matches the number of records.
func (r CollectionResult) Validate() error {
	if r.Count != len(r.Records) {
		return fmt.Errorf("%w: tweet_cnt=%d tweets=%d", ErrCountMismatch, r.Count, len(r.Records))
	}
	return nil
}

// CollectedAt converts the epoch-seconds timestamp back to a time.
func (r CollectionResult) CollectedAt() time.Time {
	return EpochTime(r.Timestamp)
}

// EpochTime converts fractional epoch seconds to a UTC time.
func EpochTime(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
