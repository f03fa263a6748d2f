// Package config loads user configuration from TOML files.
package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	MusicFolder string `koanf:"music_folder"` // local library root
	ShuffleSeed int64  `koanf:"shuffle_seed"` // 0 = random

	Mpv     MpvConfig     `koanf:"mpv"`
	Spotify SpotifyConfig `koanf:"spotify"`
	YouTube YouTubeConfig `koanf:"youtube"`
	Lastfm  LastfmConfig  `koanf:"lastfm"`
	Log     LogConfig     `koanf:"log"`
}

// MpvConfig tunes how mpv subprocesses are launched.
type MpvConfig struct {
	Path      string   `koanf:"path"` // mpv binary, "mpv" when empty
	ExtraArgs []string `koanf:"extra_args"`
}

// SpotifyConfig enables the Spotify backend when set.
type SpotifyConfig struct {
	AccessToken string `koanf:"access_token"`
	DeviceID    string `koanf:"device_id"` // empty targets the active device
	Market      string `koanf:"market"`    // optional ISO country code
}

// YouTubeConfig lists playlists loaded into the queue at startup.
type YouTubeConfig struct {
	Playlists []string `koanf:"playlists"`
}

// LastfmConfig enables scrobbling when configured.
type LastfmConfig struct {
	APIKey     string `koanf:"api_key"`
	APISecret  string `koanf:"api_secret"`
	SessionKey string `koanf:"session_key"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `koanf:"level"` // debug, info, warn, error
}

// Load reads the config files in priority order (last wins) and
// returns the merged result. Missing files are fine; an empty config
// is valid.
func Load() (*Config, error) {
	return loadPaths(configPaths())
}

func loadPaths(paths []string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.MusicFolder != "" {
		cfg.MusicFolder = expandPath(cfg.MusicFolder)
	}
	return cfg, nil
}

func configPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "chorus", "config.toml"))
	}
	// ./config.toml wins over the home config.
	paths = append(paths, "config.toml")
	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasSpotify returns true if the Spotify backend is configured.
func (c *Config) HasSpotify() bool {
	return c.Spotify.AccessToken != ""
}

// HasLastfm returns true if Last.fm scrobbling is configured.
func (c *Config) HasLastfm() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}
