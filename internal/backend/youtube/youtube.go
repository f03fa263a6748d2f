// Package youtube plays YouTube tracks. mpv resolves and decodes the
// stream through its ytdl hook; this adapter normalizes track locators
// to watch URLs and hands them to the mpv transport.
package youtube

import (
	"context"
	"strings"

	"github.com/tlagarde/chorus/internal/backend"
	"github.com/tlagarde/chorus/internal/backend/mpv"
	"github.com/tlagarde/chorus/internal/media"
)

const watchURLPrefix = "https://www.youtube.com/watch?v="

// Adapter plays YouTube tracks through an mpv subprocess.
type Adapter struct {
	*mpv.Adapter
}

// New spawns the mpv process backing this adapter.
func New() (*Adapter, error) {
	return NewWithOptions(mpv.Options{})
}

// NewWithOptions is New with explicit mpv launch options.
func NewWithOptions(opts mpv.Options) (*Adapter, error) {
	inner, err := mpv.NewWithOptions(media.SourceYouTube, opts)
	if err != nil {
		return nil, err
	}
	return &Adapter{Adapter: inner}, nil
}

func (a *Adapter) Load(ctx context.Context, t media.Track) error {
	t.Locator = WatchURL(t)
	return a.Adapter.Load(ctx, t)
}

// WatchURL resolves a track to a playable YouTube URL. Locators that
// are already URLs pass through; bare video IDs get the watch prefix.
func WatchURL(t media.Track) string {
	switch {
	case strings.HasPrefix(t.Locator, "http://"), strings.HasPrefix(t.Locator, "https://"):
		return t.Locator
	case t.Locator != "":
		return watchURLPrefix + t.Locator
	default:
		return watchURLPrefix + t.ID
	}
}

var _ backend.Adapter = (*Adapter)(nil)
