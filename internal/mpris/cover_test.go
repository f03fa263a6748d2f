package mpris

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindAlbumArt(t *testing.T) {
	dir := t.TempDir()
	coverPath := filepath.Join(dir, "cover.jpg")
	if err := os.WriteFile(coverPath, []byte("fake"), 0o600); err != nil {
		t.Fatal(err)
	}

	got := FindAlbumArt(filepath.Join(dir, "track.mp3"))
	if got != coverPath {
		t.Errorf("FindAlbumArt() = %q, want %q", got, coverPath)
	}
}

func TestFindAlbumArt_NotFound(t *testing.T) {
	dir := t.TempDir()

	got := FindAlbumArt(filepath.Join(dir, "track.mp3"))
	if got != "" {
		t.Errorf("FindAlbumArt() = %q, want empty string", got)
	}
}

func TestFindAlbumArt_Priority(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"folder.jpg", "cover.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("fake"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	got := FindAlbumArt(filepath.Join(dir, "track.mp3"))
	if got != filepath.Join(dir, "cover.jpg") {
		t.Errorf("FindAlbumArt() = %q, want cover.jpg first", got)
	}
}
