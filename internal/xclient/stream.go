package xclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"tweetminer/internal/model"
)

// ConnectStream opens the filtered stream. The returned Stream delivers
// one record per matching tweet until Close is called or ctx ends.
func (c *HTTPClient) ConnectStream(ctx context.Context, opts StreamOpts) (Stream, error) {
	q := url.Values{}
	setList(q, "expansions", opts.Expansions)
	setList(q, "tweet.fields", opts.TweetFields)
	u := c.baseURL + "/tweets/search/stream"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	c.auth(req)
	if err := c.limiter.Wait(ctx); err != nil {
		cancel()
		return nil, err
	}
	resp, err := c.streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("connect stream: %w", err)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		cancel()
		return nil, classifyResponse(resp.StatusCode, body, resp.Header)
	}

	s := &httpStream{
		records: make(chan model.Record),
		errs:    make(chan error, 1),
		cancel:  cancel,
	}
	go s.read(ctx, resp.Body)
	return s, nil
}

type httpStream struct {
	records chan model.Record
	errs    chan error
	cancel  context.CancelFunc
	once    sync.Once
}

func (s *httpStream) Records() <-chan model.Record { return s.records }
func (s *httpStream) Err() <-chan error            { return s.errs }
func (s *httpStream) Close()                       { s.once.Do(s.cancel) }

// streamMessage is one line of the stream: a tweet, or an operational error.
type streamMessage struct {
	Data   model.Record `json:"data"`
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (s *httpStream) read(ctx context.Context, body io.ReadCloser) {
	defer close(s.records)
	defer body.Close()

	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			// keep-alive
			continue
		}
		var msg streamMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			s.fail(fmt.Errorf("decode stream message: %w", err))
			return
		}
		if msg.Data == nil {
			if len(msg.Errors) > 0 {
				s.fail(fmt.Errorf("%w: %s: %s", ErrStreamClosed, msg.Errors[0].Title, msg.Errors[0].Detail))
				return
			}
			continue
		}
		select {
		case s.records <- msg.Data:
		case <-ctx.Done():
			return
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		s.fail(fmt.Errorf("read stream: %w", err))
	}
}

func (s *httpStream) fail(err error) {
	select {
	case s.errs <- err:
	default:
	}
}
