package loadgen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeDuplicate
	outcomeRejected
	outcomeFailed
)

// client wraps http.Client with the base URL.
type client struct {
	base string
	http *http.Client
}

func newClient(base string, timeout time.Duration) *client {
	return &client{base: base, http: &http.Client{Timeout: timeout}}
}

func (c *client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil && resp.StatusCode < http.StatusInternalServerError {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}

// post submits one event. A 503 with Retry-After is retried once after
// the advertised delay.
func (c *client) post(ctx context.Context, e Event) outcome {
	for attempt := 0; attempt < 2; attempt++ {
		var ack struct {
			Duplicate bool `json:"duplicate"`
		}
		status, err := c.do(ctx, http.MethodPost, "/events", e, &ack)
		switch {
		case err != nil:
			return outcomeFailed
		case status == http.StatusAccepted:
			return outcomeAccepted
		case status == http.StatusOK && ack.Duplicate:
			return outcomeDuplicate
		case status == http.StatusBadRequest:
			return outcomeRejected
		case status == http.StatusServiceUnavailable && attempt == 0:
			select {
			case <-ctx.Done():
				return outcomeFailed
			case <-time.After(time.Second):
			}
		default:
			return outcomeFailed
		}
	}
	return outcomeFailed
}
