// Package platform talks to the host platform that owns the user-visible posts.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pscheid92/decept/internal/domain"
	"github.com/pscheid92/decept/internal/platform/retry"
)

const (
	retryInitialBackoff   = 500 * time.Millisecond
	retryRateLimitBackoff = 5 * time.Second
	maxErrorBody          = 1 << 10
)

var (
	_ domain.PostPublisher = (*Client)(nil)
	_ domain.PostPublisher = (*LocalPublisher)(nil)
)

// APIError is a non-2xx answer from the platform API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform API returned %d: %s", e.StatusCode, e.Body)
}

type submitRequest struct {
	Title string `json:"title"`
}

type submitResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Client submits posts through the platform's HTTP API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	policy  retry.Policy
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		policy: retry.Policy{
			MaxAttempts:      3,
			InitialBackoff:   retryInitialBackoff,
			RateLimitBackoff: retryRateLimitBackoff,
		},
	}
}

func (c *Client) SubmitPost(ctx context.Context, title string) (domain.PublishedPost, error) {
	p := c.policy
	p.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.WarnContext(ctx, "Platform post submit failed, retrying", "attempt", attempt, "backoff_seconds", backoff.Seconds(), "error", err)
	}

	post, err := retry.Do(ctx, p, classifyAPIError, func(ctx context.Context) (domain.PublishedPost, error) {
		return c.submit(ctx, title)
	})
	if err != nil {
		return domain.PublishedPost{}, fmt.Errorf("submit post: %w", err)
	}
	return post, nil
}

func (c *Client) submit(ctx context.Context, title string) (domain.PublishedPost, error) {
	body, err := json.Marshal(submitRequest{Title: title})
	if err != nil {
		return domain.PublishedPost{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/posts", bytes.NewReader(body))
	if err != nil {
		return domain.PublishedPost{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.PublishedPost{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.PublishedPost{}, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.PublishedPost{}, fmt.Errorf("decode response: %w", err)
	}
	if out.ID == "" {
		return domain.PublishedPost{}, &APIError{StatusCode: resp.StatusCode, Body: "response has no post id"}
	}
	return domain.PublishedPost{ID: out.ID, URL: out.URL}, nil
}

func classifyAPIError(err error) retry.Action {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.Canceled) {
			return retry.Stop
		}
		return retry.Retry
	}

	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return retry.After
	case apiErr.StatusCode >= 500:
		return retry.Retry
	default:
		return retry.Stop
	}
}

// LocalPublisher mints post IDs itself. It stands in for the platform when
// the service runs without one.
type LocalPublisher struct {
	urlPrefix string
}

func NewLocalPublisher(urlPrefix string) *LocalPublisher {
	return &LocalPublisher{urlPrefix: urlPrefix}
}

func (p *LocalPublisher) SubmitPost(context.Context, string) (domain.PublishedPost, error) {
	id := uuid.NewString()
	return domain.PublishedPost{ID: id, URL: p.urlPrefix + id}, nil
}
