// Package spotify drives playback on the user's active Spotify Connect
// device through the Web API. Audio never flows through this process;
// the adapter issues player commands and polls the player state.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tlagarde/chorus/internal/backend"
)

const (
	defaultBaseURL = "https://api.spotify.com/v1"

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// TokenSource supplies a valid OAuth access token for each request,
// refreshing behind the scenes when needed.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Client is a minimal Spotify Web API client covering the player
// endpoints. Transient failures (network errors, 429, 5xx) are retried
// with exponential backoff; everything else returns immediately with a
// classified error.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
}

// NewClient creates a client using the given token source.
func NewClient(tokens TokenSource) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		tokens:     tokens,
	}
}

// Get performs a GET request against the API.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.request(ctx, http.MethodGet, path, nil, result)
}

// Put performs a PUT request against the API.
func (c *Client) Put(ctx context.Context, path string, body, result any) error {
	return c.request(ctx, http.MethodPut, path, body, result)
}

// Post performs a POST request against the API.
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	return c.request(ctx, http.MethodPost, path, body, result)
}

func (c *Client) request(ctx context.Context, method, path string, body, result any) error {
	op := method + " " + path

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return backend.NewError(backend.KindAuth, op, err)
	}

	var jsonBody []byte
	if body != nil {
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	fullURL := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := baseRetryWait * time.Duration(1<<(attempt-1))
			slog.Debug("spotify retry", "attempt", attempt, "wait", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return backend.NewError(backend.KindTransient, op, ctx.Err())
			case <-time.After(wait):
			}
		}

		var bodyReader io.Reader
		if jsonBody != nil {
			bodyReader = strings.NewReader(string(jsonBody))
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if jsonBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue // network error, retry
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNoContent:
			return nil
		case resp.StatusCode >= 400:
			apiErr := apiError(resp.StatusCode, respBody)
			if classify(resp.StatusCode) == backend.KindTransient {
				lastErr = apiErr
				continue
			}
			return backend.NewError(classify(resp.StatusCode), op, apiErr)
		}

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
		}
		return nil
	}

	return backend.NewError(backend.KindTransient, op,
		fmt.Errorf("request failed after %d retries: %w", maxRetries, lastErr))
}

// classify maps an HTTP status to an error kind. 401/403 mean the
// token is bad or lacks scope; 404 means no active device or an
// unplayable track; 429 and 5xx are worth retrying.
func classify(status int) backend.ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return backend.KindAuth
	case status == http.StatusNotFound:
		return backend.KindTrackUnavailable
	case status == http.StatusTooManyRequests || status >= 500:
		return backend.KindTransient
	default:
		return backend.KindFatal
	}
}

func apiError(status int, body []byte) error {
	var parsed struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return fmt.Errorf("spotify API error %d: %s", status, parsed.Error.Message)
	}
	return fmt.Errorf("spotify API error %d", status)
}

// buildURL appends query parameters to a path.
func buildURL(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}
	u, _ := url.Parse(path)
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
