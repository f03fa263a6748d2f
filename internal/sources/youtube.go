package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/ytget/ytdlp/v2"

	"github.com/tlagarde/chorus/internal/media"
)

const watchURLTemplate = "https://www.youtube.com/watch?v=%s"

// YouTubePlaylist fetches a playlist's entries and returns them as
// tracks. Accepts a full playlist URL or a bare playlist ID.
func YouTubePlaylist(ctx context.Context, urlOrID string) ([]media.Track, error) {
	id := playlistID(urlOrID)
	if id == "" {
		return nil, fmt.Errorf("no playlist ID in %q", urlOrID)
	}
	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, id, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist %s: %w", id, err)
	}
	tracks := make([]media.Track, 0, len(items))
	for _, it := range items {
		tracks = append(tracks, media.Track{
			ID:      it.VideoID,
			Source:  media.SourceYouTube,
			Title:   it.Title,
			Locator: fmt.Sprintf(watchURLTemplate, it.VideoID),
		})
	}
	return tracks, nil
}

// playlistID pulls the list parameter out of a URL, or passes a bare
// ID through.
func playlistID(urlOrID string) string {
	if !strings.Contains(urlOrID, "list=") {
		if strings.ContainsAny(urlOrID, "/?&=") {
			return ""
		}
		return urlOrID
	}
	part := strings.SplitN(urlOrID, "list=", 2)[1]
	if i := strings.IndexByte(part, '&'); i >= 0 {
		part = part[:i]
	}
	return part
}
