// Package sources discovers playable tracks: local music folders and
// YouTube playlists. Discovery produces tracks; playing them is the
// backends' job.
package sources

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"github.com/tlagarde/chorus/internal/media"
)

var musicExts = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".m4a":  true,
	".wav":  true,
	".aac":  true,
}

// IsMusicFile reports whether path has a playable audio extension.
func IsMusicFile(path string) bool {
	return musicExts[strings.ToLower(filepath.Ext(path))]
}

// ScanFolder walks root and returns a track per audio file, in lexical
// path order. Files with unreadable tags keep their filename as title.
func ScanFolder(ctx context.Context, root string) ([]media.Track, error) {
	var tracks []media.Track
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !IsMusicFile(path) {
			return nil
		}
		tracks = append(tracks, readTrack(path))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

func readTrack(path string) media.Track {
	t := media.Track{
		ID:      path,
		Source:  media.SourceLocal,
		Title:   filepath.Base(path),
		Locator: path,
	}
	f, err := os.Open(path)
	if err != nil {
		return t
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return t
	}
	if title := m.Title(); title != "" {
		t.Title = title
	}
	t.Artist = m.Artist()
	return t
}
