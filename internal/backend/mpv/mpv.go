// Package mpv plays local files and stream URLs through a dedicated
// mpv subprocess, controlled over its JSON IPC socket. mpv does the
// decoding and output; this package translates between its property
// and event model and the adapter contract.
package mpv

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tlagarde/chorus/internal/backend"
	"github.com/tlagarde/chorus/internal/media"
)

const (
	ipcTimeout     = 2 * time.Second
	dialRetryEvery = 100 * time.Millisecond
	dialDeadline   = 5 * time.Second
)

// Adapter is the mpv-backed playback adapter. One adapter owns one mpv
// process; the process dies with the adapter.
type Adapter struct {
	source media.Source

	cmd     *exec.Cmd
	conn    *conn
	sockDir string

	events   chan backend.Event
	position atomic.Int64 // nanoseconds

	done      chan struct{}
	closeOnce sync.Once
}

// Options tune how the mpv subprocess is launched.
type Options struct {
	Path      string   // mpv binary, "mpv" when empty
	ExtraArgs []string // appended after the built-in flags
}

// New spawns an mpv subprocess serving the given source and connects
// to its IPC socket. A missing mpv binary is fatal; a socket that
// never comes up is transient (the process may be slow to start).
func New(source media.Source) (*Adapter, error) {
	return NewWithOptions(source, Options{})
}

// NewWithOptions is New with an explicit binary path and extra flags.
func NewWithOptions(source media.Source, opts Options) (*Adapter, error) {
	dir, err := os.MkdirTemp("", "chorus-mpv-")
	if err != nil {
		return nil, backend.Errorf(backend.KindFatal, "mpv start", "socket dir: %v", err)
	}
	sockPath := filepath.Join(dir, "ipc.sock")

	binary := opts.Path
	if binary == "" {
		binary = "mpv"
	}
	args := []string{
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--ytdl=yes",
		"--input-ipc-server=" + sockPath,
	}
	args = append(args, opts.ExtraArgs...)

	cmd := exec.Command(binary, args...)
	if err := cmd.Start(); err != nil {
		_ = os.RemoveAll(dir)
		return nil, backend.Errorf(backend.KindFatal, "mpv start", "spawn mpv: %v", err)
	}
	slog.Debug("mpv spawned", "pid", cmd.Process.Pid, "source", source)

	sock, err := dialWithRetry(sockPath)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		_ = os.RemoveAll(dir)
		return nil, backend.Errorf(backend.KindTransient, "mpv start", "connect ipc: %v", err)
	}

	a := &Adapter{
		source:  source,
		cmd:     cmd,
		conn:    newConn(sock),
		sockDir: dir,
		events:  make(chan backend.Event, 32),
		done:    make(chan struct{}),
	}
	if err := a.observeProperties(); err != nil {
		_ = a.Close()
		return nil, err
	}
	go a.eventLoop()
	return a, nil
}

func dialWithRetry(path string) (net.Conn, error) {
	deadline := time.Now().Add(dialDeadline)
	for {
		sock, err := net.Dial("unix", path)
		if err == nil {
			return sock, nil
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(dialRetryEvery)
	}
}

func (a *Adapter) observeProperties() error {
	ctx, cancel := context.WithTimeout(context.Background(), ipcTimeout)
	defer cancel()
	for i, prop := range []string{"pause", "time-pos"} {
		if _, err := a.conn.command(ctx, "observe_property", i+1, prop); err != nil {
			return backend.Errorf(backend.KindTransient, "mpv start", "observe %s: %v", prop, err)
		}
	}
	return nil
}

func (a *Adapter) Source() media.Source { return a.source }

// Load replaces whatever mpv is playing with the track and unpauses.
// Completion (the started event) arrives on the event stream once mpv
// reports the file loaded.
func (a *Adapter) Load(ctx context.Context, t media.Track) error {
	err := backend.Retry(ctx, func() error {
		if _, err := a.conn.command(ctx, "loadfile", t.Locator, "replace"); err != nil {
			if ctx.Err() != nil {
				return backend.NewError(backend.KindTransient, "mpv load", err)
			}
			return backend.NewError(backend.KindTrackUnavailable, "mpv load", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return a.setProperty("pause", false)
}

func (a *Adapter) Pause() error  { return a.setProperty("pause", true) }
func (a *Adapter) Resume() error { return a.setProperty("pause", false) }

func (a *Adapter) Stop() error {
	return backend.Retry(context.Background(), func() error {
		ctx, cancel := context.WithTimeout(context.Background(), ipcTimeout)
		defer cancel()
		if _, err := a.conn.command(ctx, "stop"); err != nil {
			return backend.NewError(backend.KindTransient, "mpv stop", err)
		}
		return nil
	})
}

func (a *Adapter) Seek(ctx context.Context, pos time.Duration) error {
	if pos < 0 {
		pos = 0
	}
	err := backend.Retry(ctx, func() error {
		if _, err := a.conn.command(ctx, "seek", pos.Seconds(), "absolute"); err != nil {
			return backend.NewError(backend.KindTransient, "mpv seek", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	a.position.Store(int64(pos))
	return nil
}

func (a *Adapter) SetVolume(percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return a.setProperty("volume", percent)
}

func (a *Adapter) Position() time.Duration {
	return time.Duration(a.position.Load())
}

func (a *Adapter) Events() <-chan backend.Event { return a.events }

// Close quits mpv and reaps the process. Safe to call more than once.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		close(a.done)
		ctx, cancel := context.WithTimeout(context.Background(), ipcTimeout)
		_, _ = a.conn.command(ctx, "quit")
		cancel()
		_ = a.conn.close()

		waited := make(chan struct{})
		go func() {
			_ = a.cmd.Wait()
			close(waited)
		}()
		select {
		case <-waited:
		case <-time.After(ipcTimeout):
			slog.Warn("mpv did not quit, killing", "pid", a.cmd.Process.Pid)
			_ = a.cmd.Process.Kill()
			<-waited
		}
		_ = os.RemoveAll(a.sockDir)
	})
	return nil
}

// setProperty issues one set_property command. IPC hiccups are
// transient, so the write is retried before the error surfaces.
func (a *Adapter) setProperty(name string, value any) error {
	return backend.Retry(context.Background(), func() error {
		ctx, cancel := context.WithTimeout(context.Background(), ipcTimeout)
		defer cancel()
		if _, err := a.conn.command(ctx, "set_property", name, value); err != nil {
			return backend.NewError(backend.KindTransient, "mpv set "+name, err)
		}
		return nil
	})
}

// eventLoop translates mpv's event stream into adapter events. It owns
// the outgoing channel and closes it when the IPC connection dies.
func (a *Adapter) eventLoop() {
	defer close(a.events)
	for msg := range a.conn.events {
		switch msg.Event {
		case "file-loaded":
			a.emit(backend.Event{Kind: backend.EventStarted})
		case "end-file":
			a.handleEndFile(msg.Reason)
		case "property-change":
			a.handlePropertyChange(msg)
		}
	}
}

// handleEndFile maps mpv's end-file reasons: eof means the track ran
// out naturally, error means mpv could not play it. Deliberate stops
// (stop, quit, redirect) produce no event; the session initiated them.
func (a *Adapter) handleEndFile(reason string) {
	switch reason {
	case "eof":
		a.emit(backend.Event{Kind: backend.EventFinished})
	case "error":
		a.emit(backend.Event{
			Kind: backend.EventError,
			Err:  backend.Errorf(backend.KindTrackUnavailable, "mpv play", "mpv failed to play the file"),
		})
	}
}

func (a *Adapter) handlePropertyChange(msg message) {
	switch msg.Name {
	case "pause":
		var paused bool
		if err := json.Unmarshal(msg.Data, &paused); err != nil {
			return
		}
		if paused {
			a.emit(backend.Event{Kind: backend.EventPaused})
		} else {
			a.emit(backend.Event{Kind: backend.EventResumed})
		}
	case "time-pos":
		if len(msg.Data) == 0 || string(msg.Data) == "null" {
			return // idle, no position
		}
		var secs float64
		if err := json.Unmarshal(msg.Data, &secs); err != nil {
			return
		}
		pos := time.Duration(secs * float64(time.Second))
		a.position.Store(int64(pos))
		a.emit(backend.Event{Kind: backend.EventPosition, Position: pos})
	}
}

func (a *Adapter) emit(e backend.Event) {
	select {
	case a.events <- e:
	case <-a.done:
	}
}

var _ backend.Adapter = (*Adapter)(nil)
