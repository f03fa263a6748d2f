package youtube

import (
	"testing"

	"github.com/tlagarde/chorus/internal/media"
)

func TestWatchURL(t *testing.T) {
	tests := []struct {
		name  string
		track media.Track
		want  string
	}{
		{
			name:  "full URL passes through",
			track: media.Track{Locator: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
			want:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name:  "bare video ID in locator",
			track: media.Track{Locator: "dQw4w9WgXcQ"},
			want:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name:  "falls back to track ID",
			track: media.Track{ID: "dQw4w9WgXcQ"},
			want:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WatchURL(tt.track); got != tt.want {
				t.Errorf("WatchURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
