package xclient

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	ModeHTTP = "http"
	ModeSDK  = "sdk"
	ModeMock = "mock"
)

// Options tunes a client. Zero values fall back to defaults.
type Options struct {
	Mode        string
	BaseURL     string
	RPS         float64
	Burst       int
	MaxAttempts int
	BaseBackoff time.Duration
	Timeout     time.Duration
	// Limiter, when set, is shared by every client built from these options
	// so renewed clients keep one request budget. Otherwise each client gets
	// its own limiter from RPS and Burst.
	Limiter *rate.Limiter
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = ModeHTTP
	}
	if o.BaseURL == "" {
		o.BaseURL = "https://api.twitter.com/2"
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 1
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = 500 * time.Millisecond
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	return o
}

func (o Options) limiter() *rate.Limiter {
	if o.Limiter != nil {
		return o.Limiter
	}
	return NewLimiter(o.RPS, o.Burst)
}

// NewClient builds the client selected by opts.Mode.
func NewClient(bearerToken string, opts Options) (XClient, error) {
	opts = opts.withDefaults()
	switch strings.ToLower(opts.Mode) {
	case ModeHTTP:
		if bearerToken == "" {
			return nil, fmt.Errorf("%w: bearer token is required for mode %q", ErrAuthExpired, opts.Mode)
		}
		return NewHTTPClient(bearerToken, opts), nil
	case ModeSDK:
		if bearerToken == "" {
			return nil, fmt.Errorf("%w: bearer token is required for mode %q", ErrAuthExpired, opts.Mode)
		}
		return NewSDKClient(bearerToken, opts), nil
	case ModeMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown client mode: %s", opts.Mode)
	}
}
