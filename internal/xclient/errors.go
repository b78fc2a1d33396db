package xclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

var (
	ErrRateLimited  = errors.New("rate limited")
	ErrAuthExpired  = errors.New("authentication expired")
	ErrInvalidQuery = errors.New("invalid query")
	ErrNotFound     = errors.New("not found")
	ErrStreamClosed = errors.New("stream closed")
)

// APIError is a non-success answer from the API. It unwraps to one of the
// sentinel errors above when the failure is recognised.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
	// Reset is when a rate-limited endpoint opens up again.
	Reset time.Time
	kind  error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("x api status %d", e.StatusCode)
	if e.Title != "" {
		msg += ": " + e.Title
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.kind }

// problem is the v2 error envelope; v1-style numeric codes still show up
// under errors[].code on some endpoints.
type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Title   string `json:"title"`
		Detail  string `json:"detail"`
	} `json:"errors"`
}

// classifyResponse maps a status code, body and headers onto an APIError.
func classifyResponse(status int, body []byte, header http.Header) *APIError {
	e := &APIError{StatusCode: status}
	var p problem
	if json.Unmarshal(body, &p) == nil {
		e.Title, e.Detail = p.Title, p.Detail
		if e.Detail == "" && len(p.Errors) > 0 {
			e.Detail = firstNonEmpty(p.Errors[0].Message, p.Errors[0].Detail)
		}
		for _, pe := range p.Errors {
			switch pe.Code {
			case 88:
				e.kind = ErrRateLimited
			case 32:
				e.kind = ErrAuthExpired
			}
		}
	}
	if e.kind == nil {
		e.kind = kindForStatus(status)
	}
	if errors.Is(e.kind, ErrRateLimited) {
		e.Reset = parseRateLimitReset(header.Get("x-rate-limit-reset"))
	}
	return e
}

func kindForStatus(status int) error {
	switch status {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusUnauthorized:
		return ErrAuthExpired
	case http.StatusBadRequest:
		return ErrInvalidQuery
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// parseRateLimitReset parses the x-rate-limit-reset unix timestamp header.
// Falls back to 15 minutes from now if missing or invalid.
func parseRateLimitReset(v string) time.Time {
	if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(ts, 0)
	}
	return time.Now().Add(15 * time.Minute)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
