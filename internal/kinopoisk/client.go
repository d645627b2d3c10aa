// Package kinopoisk is a client for the kinopoisk.dev movie search API.
package kinopoisk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
)

// DefaultURL is the movie search endpoint.
const DefaultURL = "https://api.kinopoisk.dev/v1.4/movie/search"

// StatusError is returned for non-200 responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("kinopoisk: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// SearchResponse is the subset of the search payload the catalog uses.
type SearchResponse struct {
	Docs  []Movie `json:"docs"`
	Total int     `json:"total"`
}

// Movie is a single search hit.
type Movie struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Year   int     `json:"year"`
	Rating Ratings `json:"rating"`
}

// Ratings holds the ratings published for a movie.
type Ratings struct {
	KP   float64 `json:"kp"`
	IMDB float64 `json:"imdb"`
}

// Client queries the search endpoint with an API token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	attempts   uint
	delay      time.Duration
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets the number of attempts and the initial backoff delay.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.delay = delay
	}
}

// NewClient creates a client. An empty baseURL means DefaultURL.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		attempts:   3,
		delay:      500 * time.Millisecond,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns the first page of movies matching title, at most limit entries.
func (c *Client) Search(ctx context.Context, title string, limit int) (*SearchResponse, error) {
	return retry.DoWithData(
		func() (*SearchResponse, error) {
			return c.search(ctx, title, limit)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if !retry.IsRecoverable(err) {
				return false
			}
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return statusErr.Temporary()
			}
			return true
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.WarnContext(ctx, "retrying kinopoisk search", slog.String("title", title),
				slog.Uint64("attempt", uint64(n+1)), slog.Any("error", err))
		}),
	)
}

func (c *Client) search(ctx context.Context, title string, limit int) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("page", "1")
	q.Set("limit", fmt.Sprint(limit))
	q.Set("query", title)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("kinopoisk: build request: %w", err))
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("X-API-KEY", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kinopoisk: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// the same payload would fail again
		return nil, retry.Unrecoverable(fmt.Errorf("kinopoisk: decode response: %w", err))
	}
	return &out, nil
}

// Rating returns the Kinopoisk rating of the best match for title, or nil when nothing matches.
func (c *Client) Rating(ctx context.Context, title string) (*float64, error) {
	res, err := c.Search(ctx, title, 1)
	if err != nil {
		return nil, err
	}
	if len(res.Docs) == 0 {
		return nil, nil
	}
	rating := res.Docs[0].Rating.KP
	return &rating, nil
}
