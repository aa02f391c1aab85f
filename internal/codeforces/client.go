package codeforces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sirdesai22/cf-tracker/internal/logger"
)

// Fetcher is the read-only view of the rating service the sync pipeline needs.
type Fetcher interface {
	FetchContestHistory(ctx context.Context, handle string) ([]RawContest, error)
	FetchSubmissions(ctx context.Context, handle string) ([]RawSubmission, error)
}

type Client struct {
	baseURL    string
	count      int
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, count int) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		count:   count,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: logger.Named("codeforces"),
	}
}

// FetchContestHistory returns the rated contests of handle in chronological order.
func (c *Client) FetchContestHistory(ctx context.Context, handle string) ([]RawContest, error) {
	q := url.Values{}
	q.Set("handle", handle)

	var out []RawContest
	if err := c.get(ctx, handle, "/user.rating", q, &out); err != nil {
		return nil, err
	}
	c.log.Debug().Str("handle", handle).Int("contests", len(out)).Msg("Fetched contest history")
	return out, nil
}

// FetchSubmissions returns up to count most recent submissions of handle, newest first.
func (c *Client) FetchSubmissions(ctx context.Context, handle string) ([]RawSubmission, error) {
	q := url.Values{}
	q.Set("handle", handle)
	q.Set("from", "1")
	q.Set("count", strconv.Itoa(c.count))

	var out []RawSubmission
	if err := c.get(ctx, handle, "/user.status", q, &out); err != nil {
		return nil, err
	}
	c.log.Debug().Str("handle", handle).Int("submissions", len(out)).Msg("Fetched submissions")
	return out, nil
}

func (c *Client) get(ctx context.Context, handle, method string, q url.Values, result any) error {
	if strings.TrimSpace(handle) == "" {
		return &FetchFailedError{Handle: handle, Err: ErrEmptyHandle}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+method+"?"+q.Encode(), nil)
	if err != nil {
		return &FetchFailedError{Handle: handle, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchFailedError{Handle: handle, Err: fmt.Errorf("request %s: %w", method, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchFailedError{Handle: handle, Err: fmt.Errorf("read %s: %w", method, err)}
	}

	// Unknown handles come back as 400 with status FAILED and a comment, so the
	// envelope is decoded before the status code is judged.
	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	switch {
	case decodeErr == nil && env.Status == statusFailed:
		return &FetchFailedError{Handle: handle, Err: fmt.Errorf("%w: %s", ErrRejected, env.Comment)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &FetchFailedError{Handle: handle, Err: fmt.Errorf("%w: HTTP %d", ErrBadStatus, resp.StatusCode)}
	case decodeErr != nil:
		return &FetchFailedError{Handle: handle, Err: fmt.Errorf("decode %s: %w", method, decodeErr)}
	case env.Status != statusOK:
		return &FetchFailedError{Handle: handle, Err: fmt.Errorf("%w: status %q", ErrRejected, env.Status)}
	}

	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return &FetchFailedError{Handle: handle, Err: fmt.Errorf("decode %s result: %w", method, err)}
	}
	return nil
}

// IsFetchFailed reports whether err came out of the external client.
func IsFetchFailed(err error) bool {
	return errors.Is(err, ErrFetchFailed)
}
