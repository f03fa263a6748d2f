// Package logging configures the process-wide slog logger.
//
// The TUI owns stdout and stderr, so log output goes to a rotating file
// under the XDG state directory instead of the terminal.
package logging

import (
	"io"
	"log/slog"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	appName     = "chorus"
	logFileName = "chorus.log"

	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 30
)

// Setup installs the default slog logger writing to a rotating log file.
// Returns a closer that flushes and releases the log file.
func Setup(levelName string) (io.Closer, error) {
	logPath, err := xdg.StateFile(filepath.Join(appName, logFileName))
	if err != nil {
		return nil, err
	}
	return SetupPath(logPath, levelName), nil
}

// SetupPath is Setup with an explicit log file path.
func SetupPath(logPath, levelName string) io.Closer {
	writer := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: ParseLevel(levelName),
	})
	slog.SetDefault(slog.New(handler))

	return writer
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}
