package playback

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tlagarde/chorus/internal/backend"
	"github.com/tlagarde/chorus/internal/media"
	"github.com/tlagarde/chorus/internal/queue"
)

const eventWait = 2 * time.Second

// adapterLog hands out fresh mocks through a registry and remembers
// them so tests can inspect the adapter a session attached.
type adapterLog struct {
	mu       sync.Mutex
	bySource map[media.Source][]*backend.Mock
	prepare  map[media.Source]func(*backend.Mock)
}

func newTestRegistry(sources ...media.Source) (*backend.Registry, *adapterLog) {
	log := &adapterLog{
		bySource: make(map[media.Source][]*backend.Mock),
		prepare:  make(map[media.Source]func(*backend.Mock)),
	}
	reg := backend.NewRegistry()
	for _, src := range sources {
		src := src
		reg.Register(src, func() (backend.Adapter, error) {
			m := backend.NewMock(src)
			log.mu.Lock()
			if p := log.prepare[src]; p != nil {
				p(m)
			}
			log.bySource[src] = append(log.bySource[src], m)
			log.mu.Unlock()
			return m, nil
		})
	}
	return reg, log
}

func (l *adapterLog) onCreate(src media.Source, fn func(*backend.Mock)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prepare[src] = fn
}

func (l *adapterLog) latest(src media.Source) *backend.Mock {
	l.mu.Lock()
	defer l.mu.Unlock()
	ms := l.bySource[src]
	if len(ms) == 0 {
		return nil
	}
	return ms[len(ms)-1]
}

func (l *adapterLog) count(src media.Source) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.bySource[src])
}

func localTrack(id string, d time.Duration) media.Track {
	return media.Track{ID: id, Source: media.SourceLocal, Title: id, Duration: d, Locator: "/" + id + ".flac"}
}

func spotifyTrack(id string) media.Track {
	return media.Track{ID: id, Source: media.SourceSpotify, Title: id, Locator: "spotify:track:" + id}
}

func nextStateChange(t *testing.T, sub *Subscription) StateChange {
	t.Helper()
	select {
	case e := <-sub.StateChanged:
		return e
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for StateChange")
		return StateChange{}
	}
}

func waitForState(t *testing.T, sub *Subscription, want State) {
	t.Helper()
	deadline := time.After(eventWait)
	for {
		select {
		case e := <-sub.StateChanged:
			if e.Current == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %v", want)
		}
	}
}

func nextTrackChange(t *testing.T, sub *Subscription) TrackChange {
	t.Helper()
	select {
	case e := <-sub.TrackChanged:
		return e
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for TrackChange")
		return TrackChange{}
	}
}

func expectNoStateChange(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case e := <-sub.StateChanged:
		t.Fatalf("unexpected StateChange %v -> %v", e.Previous, e.Current)
	case <-time.After(150 * time.Millisecond):
	}
}

func newSession(t *testing.T, reg *backend.Registry) *Session {
	t.Helper()
	s := New(reg, queue.New(nil), 100)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSession_PlayEmitsLoadingThenTrackThenPlaying(t *testing.T) {
	reg, _ := newTestRegistry(media.SourceLocal)
	s := newSession(t, reg)
	sub := s.Subscribe()

	a := localTrack("a", 3*time.Minute)
	s.Play(a)

	if e := nextStateChange(t, sub); e.Current != StateLoading {
		t.Errorf("first state = %v, want Loading", e.Current)
	}
	if e := nextTrackChange(t, sub); e.Current == nil || e.Current.ID != "a" {
		t.Errorf("TrackChange = %v, want track a", e.Current)
	}
	if e := nextStateChange(t, sub); e.Current != StatePlaying {
		t.Errorf("second state = %v, want Playing", e.Current)
	}
}

func TestSession_PauseIsIdempotent(t *testing.T) {
	reg, _ := newTestRegistry(media.SourceLocal)
	s := newSession(t, reg)
	sub := s.Subscribe()

	s.Play(localTrack("a", 0))
	waitForState(t, sub, StatePlaying)

	s.Pause()
	waitForState(t, sub, StatePaused)

	// Second pause must not produce a new StateChange.
	s.Pause()
	expectNoStateChange(t, sub)
}

func TestSession_ResumeWhilePlayingIsNoOp(t *testing.T) {
	reg, _ := newTestRegistry(media.SourceLocal)
	s := newSession(t, reg)
	sub := s.Subscribe()

	s.Play(localTrack("a", 0))
	waitForState(t, sub, StatePlaying)

	s.Resume()
	expectNoStateChange(t, sub)
}

func TestSession_NextSwitchesBackends(t *testing.T) {
	reg, log := newTestRegistry(media.SourceLocal, media.SourceSpotify)
	s := newSession(t, reg)
	sub := s.Subscribe()

	a := localTrack("a", 0)
	b := spotifyTrack("b")
	s.Replace(a, b)
	waitForState(t, sub, StatePlaying)
	first := log.latest(media.SourceLocal)

	s.Next()

	if e := nextTrackChange(t, sub); e.Current == nil || e.Current.ID != "a" {
		t.Fatalf("unexpected first TrackChange %v", e.Current)
	}
	if e := nextTrackChange(t, sub); e.Current == nil || e.Current.ID != "b" {
		t.Errorf("TrackChange = %v, want track b", e.Current)
	}
	waitForState(t, sub, StatePlaying)

	second := log.latest(media.SourceSpotify)
	if second == nil {
		t.Fatal("no spotify adapter was attached")
	}
	if got := second.LoadCalls(); len(got) != 1 || got[0].ID != "b" {
		t.Errorf("spotify load calls = %v, want [b]", got)
	}
	// The outgoing local adapter was torn down (best-effort stop + close).
	waitFor(t, func() bool { return first.Closed() }, "local adapter closed")
}

func TestSession_NextAtQueueEndStops(t *testing.T) {
	reg, _ := newTestRegistry(media.SourceLocal)
	s := newSession(t, reg)
	sub := s.Subscribe()

	s.Replace(localTrack("a", 0))
	waitForState(t, sub, StatePlaying)

	s.Next()

	waitForState(t, sub, StateStopped)
	if got := s.State(); got != StateStopped {
		t.Errorf("State() = %v, want Stopped", got)
	}
}

func TestSession_SeekClampsNegativeToZero(t *testing.T) {
	reg, log := newTestRegistry(media.SourceLocal)
	s := newSession(t, reg)
	sub := s.Subscribe()

	s.Play(localTrack("a", 200*time.Second))
	waitForState(t, sub, StatePlaying)

	s.Seek(-5 * time.Second)

	m := log.latest(media.SourceLocal)
	waitFor(t, func() bool { return len(m.SeekCalls()) == 1 }, "seek call")
	if got := m.SeekCalls()[0]; got != 0 {
		t.Errorf("seek position = %v, want 0", got)
	}
}

func TestSession_SeekClampsToKnownDuration(t *testing.T) {
	reg, log := newTestRegistry(media.SourceLocal)
	s := newSession(t, reg)
	sub := s.Subscribe()

	s.Play(localTrack("a", 200*time.Second))
	waitForState(t, sub, StatePlaying)

	s.Seek(10 * time.Minute)

	m := log.latest(media.SourceLocal)
	waitFor(t, func() bool { return len(m.SeekCalls()) == 1 }, "seek call")
	if got := m.SeekCalls()[0]; got != 200*time.Second {
		t.Errorf("seek position = %v, want 200s", got)
	}
}

func TestSession_SeekWhileStoppedIsIgnored(t *testing.T) {
	reg, log := newTestRegistry(media.SourceLocal)
	s := newSession(t, reg)

	s.Seek(10 * time.Second)

	time.Sleep(100 * time.Millisecond)
	if m := log.latest(media.SourceLocal); m != nil {
		t.Error("no adapter should have been attached")
	}
	if got := s.State(); got != StateStopped {
		t.Errorf("State() = %v, want Stopped", got)
	}
}

func TestSession_VolumeSurvivesBackendSwitch(t *testing.T) {
	reg, log := newTestRegistry(media.SourceLocal, media.SourceSpotify)
	s := newSession(t, reg)
	sub := s.Subscribe()

	s.SetVolume(70)
	s.Replace(localTrack("a", 0), spotifyTrack("b"))
	waitForState(t, sub, StatePlaying)

	s.Next()
	waitForState(t, sub, StatePlaying)

	m := log.latest(media.SourceSpotify)
	if m == nil {
		t.Fatal("no spotify adapter was attached")
	}
	calls := m.VolumeCalls()
	if len(calls) == 0 || calls[0] != 70 {
		t.Errorf("spotify volume calls = %v, want [70]", calls)
	}
	if s.Volume() != 70 {
		t.Errorf("Volume() = %d, want 70", s.Volume())
	}
}

func TestSession_ExplicitPlayFailureDoesNotAdvance(t *testing.T) {
	reg, log := newTestRegistry(media.SourceLocal)
	log.onCreate(media.SourceLocal, func(m *backend.Mock) {
		m.SetLoadError(backend.NewError(backend.KindTrackUnavailable, "load", errors.New("gone")))
	})
	s := newSession(t, reg)
	sub := s.Subscribe()

	s.Enqueue(localTrack("a", 0), localTrack("b", 0))
	s.Play(localTrack("a", 0))

	waitForState(t, sub, StateError)
	m := log.latest(media.SourceLocal)
	if got := m.LoadCalls(); len(got) != 1 {
		t.Errorf("load calls = %v, want just the explicit track", got)
	}
}

func TestSession_BackendErrorSkipsToNextTrack(t *testing.T) {
	reg, log := newTestRegistry(media.SourceLocal)
	s := newSession(t, reg)
	sub := s.Subscribe()

	s.Replace(localTrack("a", 0), localTrack("b", 0))
	waitForState(t, sub, StatePlaying)

	m := log.latest(media.SourceLocal)
	m.Emit(backend.Event{Kind: backend.EventError, Err: backend.NewError(backend.KindTrackUnavailable, "play", errors.New("corrupt"))})

	// Error surfaced, then the session skips to b.
	select {
	case e := <-sub.Error:
		if backend.KindOf(e.Err) != backend.KindTrackUnavailable {
			t.Errorf("error kind = %v, want track unavailable", backend.KindOf(e.Err))
		}
	case <-time.After(eventWait):
		t.Fatal("timed out waiting for ErrorEvent")
	}
	waitFor(t, func() bool {
		cur := s.CurrentTrack()
		return cur != nil && cur.ID == "b" && s.State() == StatePlaying
	}, "skip to track b")
}

func TestSession_RepeatOneSingleBrokenTrackStops(t *testing.T) {
	reg, log := newTestRegistry(media.SourceLocal)
	s := newSession(t, reg)
	sub := s.Subscribe()

	s.Replace(localTrack("a", 0))
	s.SetRepeat(queue.RepeatOne)
	waitForState(t, sub, StatePlaying)

	// The track turns out to be broken: every further load fails too.
	m := log.latest(media.SourceLocal)
	m.SetLoadError(backend.NewError(backend.KindTrackUnavailable, "load", errors.New("corrupt")))
	m.Emit(backend.Event{Kind: backend.EventError, Err: backend.NewError(backend.KindTrackUnavailable, "play", errors.New("corrupt"))})

	// No infinite skip loop: the session ends up Stopped.
	waitForState(t, sub, StateStopped)
}

func TestSession_NewPlayCancelsInFlightLoad(t *testing.T) {
	reg, log := newTestRegistry(media.SourceLocal, media.SourceSpotify)
	log.onCreate(media.SourceLocal, func(m *backend.Mock) {
		m.SetBlockLoad(true)
	})
	s := newSession(t, reg)
	sub := s.Subscribe()

	s.Play(localTrack("slow", 0))
	waitForState(t, sub, StateLoading)

	// Supersede the pending load; its eventual result must be discarded.
	s.Play(spotifyTrack("fast"))

	waitForState(t, sub, StatePlaying)
	if cur := s.CurrentTrack(); cur == nil || cur.ID != "fast" {
		t.Errorf("CurrentTrack() = %v, want fast", cur)
	}
	waitFor(t, func() bool { return log.latest(media.SourceLocal).Closed() }, "stale adapter closed")
	if got := s.State(); got != StatePlaying {
		t.Errorf("State() = %v, want Playing (stale load result discarded)", got)
	}
}

func TestSession_TrackFinishedAdvancesQueue(t *testing.T) {
	reg, log := newTestRegistry(media.SourceLocal)
	s := newSession(t, reg)
	sub := s.Subscribe()

	s.Replace(localTrack("a", 0), localTrack("b", 0))
	waitForState(t, sub, StatePlaying)

	log.latest(media.SourceLocal).Emit(backend.Event{Kind: backend.EventFinished})

	waitFor(t, func() bool {
		cur := s.CurrentTrack()
		return cur != nil && cur.ID == "b"
	}, "advance to track b")
}

func TestSession_TrackFinishedAtEndStops(t *testing.T) {
	reg, log := newTestRegistry(media.SourceLocal)
	s := newSession(t, reg)
	sub := s.Subscribe()

	s.Replace(localTrack("a", 0))
	waitForState(t, sub, StatePlaying)

	log.latest(media.SourceLocal).Emit(backend.Event{Kind: backend.EventFinished})

	waitForState(t, sub, StateStopped)
}

func TestSession_StateAlwaysDefined(t *testing.T) {
	reg, _ := newTestRegistry(media.SourceLocal)
	s := newSession(t, reg)

	// An arbitrary command barrage never yields an undefined state.
	s.Play(localTrack("a", 0))
	s.Pause()
	s.Pause()
	s.Seek(-time.Minute)
	s.Next()
	s.Previous()
	s.SetVolume(300)
	s.Resume()
	s.Stop()
	s.Toggle()
	s.Next()

	waitFor(t, func() bool {
		switch s.State() {
		case StateStopped, StateLoading, StatePlaying, StatePaused, StateError:
			return true
		}
		return false
	}, "defined state")
	if v := s.Volume(); v < 0 || v > 100 {
		t.Errorf("Volume() = %d, outside [0,100]", v)
	}
}

func TestSession_CloseClosesSubscriptions(t *testing.T) {
	reg, _ := newTestRegistry(media.SourceLocal)
	s := New(reg, queue.New(nil), 50)
	sub := s.Subscribe()

	_ = s.Close()

	select {
	case <-sub.Done:
	case <-time.After(eventWait):
		t.Fatal("Done channel not closed on session close")
	}
}

// waitFor polls cond until it holds or the wait budget runs out.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(eventWait)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
