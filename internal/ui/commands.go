package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tlagarde/chorus/internal/playback"
)

// Session event messages. One subscription channel maps to one message
// type so Update can route without re-dispatching on the payload.
type (
	stateChangedMsg    playback.StateChange
	trackChangedMsg    playback.TrackChange
	positionChangedMsg playback.PositionChange
	volumeChangedMsg   playback.VolumeChange
	queueChangedMsg    playback.QueueChange
	modeChangedMsg     playback.ModeChange
	playbackErrorMsg   playback.ErrorEvent
	sessionClosedMsg   struct{}
)

// watchSession returns a command that waits for the next session event.
// The command is re-armed after every delivered message.
func (m Model) watchSession() tea.Cmd {
	if m.sub == nil {
		return nil
	}
	sub := m.sub
	return func() tea.Msg {
		select {
		case e := <-sub.StateChanged:
			return stateChangedMsg(e)
		case e := <-sub.TrackChanged:
			return trackChangedMsg(e)
		case e := <-sub.PositionChanged:
			return positionChangedMsg(e)
		case e := <-sub.VolumeChanged:
			return volumeChangedMsg(e)
		case e := <-sub.QueueChanged:
			return queueChangedMsg(e)
		case e := <-sub.ModeChanged:
			return modeChangedMsg(e)
		case e := <-sub.Error:
			return playbackErrorMsg(e)
		case <-sub.Done:
			return sessionClosedMsg{}
		}
	}
}
