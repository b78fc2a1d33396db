package collector

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"tweetminer/internal/logging"
	"tweetminer/internal/model"
	"tweetminer/internal/persist"
	"tweetminer/internal/xclient"
)

var (
	StreamExpansions  = []string{"author_id", "referenced_tweets.id", "attachments.media_keys", "in_reply_to_user_id"}
	StreamTweetFields = []string{"created_at", "lang", "possibly_sensitive", "source", "entities", "public_metrics"}
)

// State is where a Streamer is in its run.
type State int

const (
	Idle State = iota
	RuleConfigured
	Connected
	Accumulating
	Finalized
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RuleConfigured:
		return "rule_configured"
	case Connected:
		return "connected"
	case Accumulating:
		return "accumulating"
	case Finalized:
		return "finalized"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// StreamClient is the part of the API a Streamer needs.
type StreamClient interface {
	xclient.RuleManager
	xclient.StreamConnector
}

// StreamOpts describes one streaming run.
type StreamOpts struct {
	Query        string
	Count        int
	ShowProgress bool
	SaveResult   bool
	SaveDir      string
	FileName     string
	Expansions   []string
	TweetFields  []string
}

// Streamer collects tweets from the filtered stream until a target count.
// Collect blocks; records arrive over the Stream's channel.
type Streamer struct {
	client   StreamClient
	progress io.Writer
	now      func() time.Time

	mu        sync.Mutex
	state     State
	buffer    []model.Record
	result    *model.CollectionResult
	savedPath string
}

// NewStreamer returns an idle Streamer. progress receives one line per
// tweet when ShowProgress is set; nil discards it.
func NewStreamer(client StreamClient, progress io.Writer) *Streamer {
	if progress == nil {
		progress = io.Discard
	}
	return &Streamer{client: client, progress: progress, now: time.Now}
}

func (s *Streamer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Buffered returns a copy of the records gathered so far.
func (s *Streamer) Buffered() []model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Record(nil), s.buffer...)
}

// Result returns the finalized result, or nil before finalization.
func (s *Streamer) Result() *model.CollectionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// SavedPath is where the last result was written, if it was.
func (s *Streamer) SavedPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savedPath
}

func (s *Streamer) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Collect clears existing rules, installs one rule for opts.Query, opens
// the stream and gathers records until opts.Count is reached. The stream
// is closed as soon as the target is met. Any failure before that yields
// no result.
func (s *Streamer) Collect(ctx context.Context, opts StreamOpts) (model.CollectionResult, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return model.CollectionResult{}, ErrEmptyQuery
	}
	if opts.Count <= 0 {
		return model.CollectionResult{}, ErrInvalidCount
	}
	s.mu.Lock()
	s.state = Idle
	s.result = nil
	s.savedPath = ""
	s.mu.Unlock()

	if err := s.clearRules(ctx); err != nil {
		return s.fail("clear_rules", err)
	}
	s.mu.Lock()
	s.buffer = make([]model.Record, 0, opts.Count)
	s.mu.Unlock()

	if _, err := s.client.AddRules(ctx, xclient.Rule{Value: opts.Query}); err != nil {
		return s.fail("add_rule", err)
	}
	s.setState(RuleConfigured)

	stream, err := s.client.ConnectStream(ctx, xclient.StreamOpts{
		Expansions:  orDefault(opts.Expansions, StreamExpansions),
		TweetFields: orDefault(opts.TweetFields, StreamTweetFields),
	})
	if err != nil {
		return s.fail("connect", err)
	}
	defer stream.Close()
	s.setState(Connected)
	logging.Info("stream_connected", map[string]any{"query": opts.Query, "target": opts.Count})

	for {
		select {
		case <-ctx.Done():
			return s.fail("receive", ctx.Err())
		case err := <-stream.Err():
			return s.fail("receive", err)
		case rec, ok := <-stream.Records():
			if !ok {
				select {
				case err := <-stream.Err():
					return s.fail("receive", err)
				default:
					return s.fail("receive", xclient.ErrStreamClosed)
				}
			}
			if n := s.append(rec, opts.ShowProgress); n == opts.Count {
				// the deferred Close disconnects once the result is saved
				return s.finalize(opts)
			}
		}
	}
}

func (s *Streamer) clearRules(ctx context.Context) error {
	rules, err := s.client.Rules(ctx)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	return s.client.DeleteRules(ctx, ids)
}

// append adds rec to the buffer and returns the new length.
func (s *Streamer) append(rec model.Record, showProgress bool) int {
	s.mu.Lock()
	s.buffer = append(s.buffer, rec)
	s.state = Accumulating
	n := len(s.buffer)
	s.mu.Unlock()
	if showProgress {
		fmt.Fprintf(s.progress, "Tweet No.%d %s\n", n, rec.Text())
	}
	return n
}

func (s *Streamer) finalize(opts StreamOpts) (model.CollectionResult, error) {
	s.mu.Lock()
	res := model.NewCollectionResult(model.CollectionStreaming, opts.Query, append([]model.Record(nil), s.buffer...), s.now())
	s.result = &res
	s.state = Finalized
	s.mu.Unlock()
	logging.Info("stream_finalized", map[string]any{"query": opts.Query, "records": res.Count})

	if !opts.SaveResult {
		return res, nil
	}
	path, err := persist.Save(res, opts.Count, opts.SaveDir, opts.FileName)
	if err != nil {
		logging.Error("stream_save_failed", map[string]any{"error": err.Error()})
		return res, err
	}
	s.mu.Lock()
	s.savedPath = path
	s.mu.Unlock()
	return res, nil
}

func (s *Streamer) fail(stage string, err error) (model.CollectionResult, error) {
	s.setState(Failed)
	logging.Error("stream_failed", map[string]any{"stage": stage, "error": err.Error()})
	return model.CollectionResult{}, fmt.Errorf("stream %s: %w", stage, err)
}
