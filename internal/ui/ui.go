// Package ui implements the terminal interface: a queue panel, a player
// bar and transport key handling on top of a playback session.
package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tlagarde/chorus/internal/errmsg"
	"github.com/tlagarde/chorus/internal/keymap"
	"github.com/tlagarde/chorus/internal/media"
	"github.com/tlagarde/chorus/internal/playback"
	"github.com/tlagarde/chorus/internal/queue"
)

const (
	seekStep   = 5 * time.Second
	volumeStep = 5
)

// Model is the bubbletea model for the whole interface. It mirrors the
// session state locally: commands go to the session, updates come back
// through the subscription, and the view only reads the mirror.
type Model struct {
	session *playback.Session
	sub     *playback.Subscription
	keys    *keymap.Resolver

	state    playback.State
	track    *media.Track
	index    int
	position time.Duration
	volume   int
	repeat   queue.RepeatMode
	shuffle  bool
	tracks   []media.Track

	cursor   int
	width    int
	height   int
	showHelp bool
	status   string
	spinner  spinner.Model
}

// New creates the interface model, seeded from the session's current
// snapshot.
func New(session *playback.Session) Model {
	snap := session.Snapshot()
	return Model{
		session:  session,
		sub:      session.Subscribe(),
		keys:     keymap.NewResolver(keymap.All),
		state:    snap.State,
		track:    snap.Track,
		index:    snap.Index,
		position: snap.Position,
		volume:   snap.Volume,
		repeat:   snap.Repeat,
		shuffle:  snap.Shuffle,
		tracks:   snap.Tracks,
		cursor:   max(snap.Index, 0),
		spinner:  spinner.New(spinner.WithSpinner(spinner.MiniDot)),
	}
}

func (m Model) Init() tea.Cmd {
	return m.watchSession()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateChangedMsg:
		m.state = msg.Current
		if msg.Current != playback.StateError {
			m.status = ""
		}
		if msg.Current == playback.StateLoading {
			return m, tea.Batch(m.watchSession(), m.spinner.Tick)
		}
		return m, m.watchSession()

	case spinner.TickMsg:
		if m.state != playback.StateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case trackChangedMsg:
		m.track = msg.Current
		m.index = msg.Index
		m.position = 0
		return m, m.watchSession()

	case positionChangedMsg:
		m.position = msg.Position
		return m, m.watchSession()

	case volumeChangedMsg:
		m.volume = msg.Volume
		return m, m.watchSession()

	case queueChangedMsg:
		m.tracks = msg.Tracks
		m.index = msg.Index
		m.cursor = clampCursor(m.cursor, len(m.tracks))
		return m, m.watchSession()

	case modeChangedMsg:
		m.repeat = msg.Repeat
		m.shuffle = msg.Shuffle
		return m, m.watchSession()

	case playbackErrorMsg:
		m.status = errmsg.FormatWith(statusOp(msg.Op), trackName(msg.Track), msg.Err)
		return m, m.watchSession()

	case sessionClosedMsg:
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch m.keys.Resolve(msg.String()) {
	case keymap.ActionQuit:
		return m, tea.Quit
	case keymap.ActionHelp:
		m.showHelp = true

	case keymap.ActionPlayPause:
		if m.state == playback.StateStopped && len(m.tracks) > 0 {
			m.session.PlayIndex(max(m.index, 0))
		} else {
			m.session.Toggle()
		}
	case keymap.ActionStop:
		m.session.Stop()
	case keymap.ActionNextTrack:
		m.session.Next()
	case keymap.ActionPrevTrack:
		m.session.Previous()
	case keymap.ActionSeekForward:
		m.session.SeekBy(seekStep)
	case keymap.ActionSeekBack:
		m.session.SeekBy(-seekStep)
	case keymap.ActionVolumeUp:
		m.session.SetVolume(m.volume + volumeStep)
	case keymap.ActionVolumeDown:
		m.session.SetVolume(m.volume - volumeStep)
	case keymap.ActionCycleRepeat:
		m.session.CycleRepeat()
	case keymap.ActionToggleShuffle:
		m.session.ToggleShuffle()

	case keymap.ActionMoveDown:
		m.cursor = clampCursor(m.cursor+1, len(m.tracks))
	case keymap.ActionMoveUp:
		m.cursor = clampCursor(m.cursor-1, len(m.tracks))
	case keymap.ActionJumpStart:
		m.cursor = 0
	case keymap.ActionJumpEnd:
		m.cursor = clampCursor(len(m.tracks)-1, len(m.tracks))
	case keymap.ActionSelect:
		if m.cursor < len(m.tracks) {
			m.session.PlayIndex(m.cursor)
		}
	case keymap.ActionDelete:
		if m.cursor < len(m.tracks) {
			m.session.RemoveFromQueue(m.cursor)
		}
	case keymap.ActionClear:
		m.session.ClearQueue()
	case keymap.ActionMoveItemDown:
		if m.cursor < len(m.tracks)-1 {
			m.session.MoveInQueue(m.cursor, m.cursor+1)
			m.cursor++
		}
	case keymap.ActionMoveItemUp:
		if m.cursor > 0 {
			m.session.MoveInQueue(m.cursor, m.cursor-1)
			m.cursor--
		}
	}

	return m, nil
}

func clampCursor(cursor, count int) int {
	if count == 0 {
		return 0
	}
	if cursor < 0 {
		return 0
	}
	if cursor >= count {
		return count - 1
	}
	return cursor
}

func trackName(t *media.Track) string {
	if t == nil {
		return ""
	}
	return t.Display()
}

// statusOp translates the session's failed-operation label into the
// matching status-line phrasing. Unknown labels read as a start
// failure, the most common case.
func statusOp(op string) errmsg.Op {
	switch op {
	case "pause":
		return errmsg.OpPlaybackPause
	case "resume":
		return errmsg.OpPlaybackResume
	case "seek":
		return errmsg.OpPlaybackSeek
	case "set volume":
		return errmsg.OpPlaybackVolume
	default:
		return errmsg.OpPlaybackStart
	}
}
