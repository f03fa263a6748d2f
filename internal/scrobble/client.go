// Package scrobble reports listening history to Last.fm: a now-playing
// notice when a track starts and a scrobble once enough of it played.
package scrobble

import (
	"errors"
	"fmt"
	"time"

	"github.com/shkh/lastfm-go/lastfm"
)

// ErrNotAuthenticated is returned when an operation requires a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// Client wraps the Last.fm API for scrobbling operations.
type Client struct {
	api        *lastfm.Api
	apiKey     string
	sessionKey string
}

// NewClient creates a client with the given API credentials.
func NewClient(apiKey, apiSecret string) *Client {
	return &Client{
		api:    lastfm.New(apiKey, apiSecret),
		apiKey: apiKey,
	}
}

// SetSessionKey sets the authenticated session key.
func (c *Client) SetSessionKey(key string) {
	c.sessionKey = key
	c.api.SetSession(key)
}

// IsAuthenticated returns true if a session key is set.
func (c *Client) IsAuthenticated() bool {
	return c.sessionKey != ""
}

// GetToken requests an authentication token from Last.fm.
func (c *Client) GetToken() (string, error) {
	token, err := c.api.GetToken()
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	return token, nil
}

// AuthURL returns the URL the user visits to authorize the token
// (desktop auth flow).
func (c *Client) AuthURL(token string) string {
	return fmt.Sprintf("https://www.last.fm/api/auth/?api_key=%s&token=%s", c.apiKey, token)
}

// GetSession exchanges an authorized token for a session key.
func (c *Client) GetSession(token string) (string, error) {
	if err := c.api.LoginWithToken(token); err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	c.sessionKey = c.api.GetSessionKey()
	return c.sessionKey, nil
}

// UpdateNowPlaying sends a "now playing" notification.
func (c *Client) UpdateNowPlaying(artist, title string, duration time.Duration) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	params := lastfm.P{
		"artist": artist,
		"track":  title,
	}
	if duration > 0 {
		params["duration"] = int(duration.Seconds())
	}
	if _, err := c.api.Track.UpdateNowPlaying(params); err != nil {
		return fmt.Errorf("update now playing: %w", err)
	}
	return nil
}

// Scrobble submits one finished play.
func (c *Client) Scrobble(artist, title string, duration time.Duration, started time.Time) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	params := lastfm.P{
		"artist":    artist,
		"track":     title,
		"timestamp": started.Unix(),
	}
	if duration > 0 {
		params["duration"] = int(duration.Seconds())
	}
	if _, err := c.api.Track.Scrobble(params); err != nil {
		return fmt.Errorf("scrobble: %w", err)
	}
	return nil
}
