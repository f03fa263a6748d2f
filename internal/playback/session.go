// Package playback implements the playback session: the single
// authoritative state machine that drives one backend adapter at a
// time, owns the queue and the volume, and fans state changes out to
// subscribers.
//
// All mutable state lives inside one goroutine. Commands go in through
// a channel and are fire-and-observe: callers never block on backend
// completion, they watch the outcome arrive on their Subscription.
package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tlagarde/chorus/internal/backend"
	"github.com/tlagarde/chorus/internal/media"
	"github.com/tlagarde/chorus/internal/queue"
)

const (
	commandBufferSize = 32
	positionInterval  = 500 * time.Millisecond
	seekTimeout       = 2 * time.Second
	teardownGrace     = 2 * time.Second
)

type cmdKind int

const (
	cmdPlay cmdKind = iota
	cmdPlayIndex
	cmdPause
	cmdResume
	cmdToggle
	cmdStop
	cmdSeek
	cmdNext
	cmdPrevious
	cmdSetVolume
	cmdEnqueue
	cmdReplace
	cmdRemove
	cmdMove
	cmdClear
	cmdSetRepeat
	cmdCycleRepeat
	cmdSetShuffle
	cmdToggleShuffle
)

type command struct {
	kind    cmdKind
	track   media.Track
	tracks  []media.Track
	index   int
	from    int
	to      int
	pos     time.Duration
	volume  int
	repeat  queue.RepeatMode
	shuffle bool
}

// playCause records why a load was issued, so failure policy can tell a
// user-targeted play (no automatic advance) from queue-driven advances
// (skip past the broken track).
type playCause int

const (
	causeExplicit playCause = iota
	causeAdvance
)

type loadResult struct {
	gen int
	err error
}

// Snapshot is a consistent read of the session for pull-style consumers
// (MPRIS property getters, UI rendering).
type Snapshot struct {
	State    State
	Track    *media.Track
	Index    int
	Position time.Duration
	Volume   int
	Repeat   queue.RepeatMode
	Shuffle  bool
	Tracks   []media.Track
	HasNext  bool
}

// Session is the playback session. Create one with New, stop it with
// Close.
type Session struct {
	registry *backend.Registry

	cmds chan command
	done chan struct{}

	closeOnce sync.Once

	subsMu sync.Mutex
	subs   []*Subscription

	snapMu sync.RWMutex
	snap   Snapshot

	// Everything below is owned by the run goroutine.
	queue         *queue.Queue
	adapter       backend.Adapter
	adapterEvents <-chan backend.Event
	state         State
	current       *media.Track
	currentIndex  int
	position      time.Duration
	volume        int
	loadCancel    context.CancelFunc
	loadGen       int
	loadCause     playCause
	loadResults   chan loadResult
	skipBudget    int // -1 when no skip chain is active
}

// New creates a session around the given registry and queue and starts
// its goroutine. The queue must not be touched by anyone else
// afterwards; volume is the initial volume in percent.
func New(registry *backend.Registry, q *queue.Queue, volume int) *Session {
	s := &Session{
		registry:     registry,
		queue:        q,
		cmds:         make(chan command, commandBufferSize),
		done:         make(chan struct{}),
		loadResults:  make(chan loadResult),
		state:        StateStopped,
		currentIndex: q.CurrentIndex(),
		volume:       clampVolume(volume),
		skipBudget:   -1,
	}
	s.updateSnapshot()
	go s.run()
	return s
}

// --- Command interface (fire-and-observe) ---

// Play starts playback of the given track, attaching its source's
// backend. The track does not need to be in the queue.
func (s *Session) Play(t media.Track) { s.post(command{kind: cmdPlay, track: t}) }

// PlayIndex jumps the queue to index and plays that track.
func (s *Session) PlayIndex(index int) { s.post(command{kind: cmdPlayIndex, index: index}) }

// Pause pauses playback; a no-op unless Playing.
func (s *Session) Pause() { s.post(command{kind: cmdPause}) }

// Resume resumes playback; a no-op unless Paused.
func (s *Session) Resume() { s.post(command{kind: cmdResume}) }

// Toggle switches between Playing and Paused.
func (s *Session) Toggle() { s.post(command{kind: cmdToggle}) }

// Stop halts playback and tears the adapter down.
func (s *Session) Stop() { s.post(command{kind: cmdStop}) }

// Seek moves to an absolute position in the current track; valid while
// Playing or Paused, ignored otherwise. The position is clamped to the
// track duration when it is known.
func (s *Session) Seek(pos time.Duration) { s.post(command{kind: cmdSeek, pos: pos}) }

// SeekBy moves by a relative amount from the latest known position.
func (s *Session) SeekBy(delta time.Duration) {
	s.post(command{kind: cmdSeek, pos: s.PositionNow() + delta})
}

// Next advances the queue per the repeat/shuffle policy and plays the
// new current track; at the end with RepeatOff the session stops.
func (s *Session) Next() { s.post(command{kind: cmdNext}) }

// Previous steps the queue backwards and plays the new current track.
func (s *Session) Previous() { s.post(command{kind: cmdPrevious}) }

// SetVolume sets the session volume (0-100). The value survives
// backend switches; every newly attached adapter receives it.
func (s *Session) SetVolume(percent int) { s.post(command{kind: cmdSetVolume, volume: percent}) }

// Enqueue appends tracks to the queue.
func (s *Session) Enqueue(tracks ...media.Track) { s.post(command{kind: cmdEnqueue, tracks: tracks}) }

// Replace swaps the queue contents and plays the first track.
func (s *Session) Replace(tracks ...media.Track) { s.post(command{kind: cmdReplace, tracks: tracks}) }

// RemoveFromQueue removes the track at index.
func (s *Session) RemoveFromQueue(index int) { s.post(command{kind: cmdRemove, index: index}) }

// MoveInQueue moves a track between queue positions.
func (s *Session) MoveInQueue(from, to int) { s.post(command{kind: cmdMove, from: from, to: to}) }

// ClearQueue removes all queued tracks.
func (s *Session) ClearQueue() { s.post(command{kind: cmdClear}) }

// SetRepeat sets the repeat mode.
func (s *Session) SetRepeat(mode queue.RepeatMode) { s.post(command{kind: cmdSetRepeat, repeat: mode}) }

// CycleRepeat advances Off -> All -> One -> Off.
func (s *Session) CycleRepeat() { s.post(command{kind: cmdCycleRepeat}) }

// SetShuffle enables or disables shuffle.
func (s *Session) SetShuffle(enabled bool) { s.post(command{kind: cmdSetShuffle, shuffle: enabled}) }

// ToggleShuffle flips shuffle mode.
func (s *Session) ToggleShuffle() { s.post(command{kind: cmdToggleShuffle}) }

func (s *Session) post(cmd command) {
	select {
	case s.cmds <- cmd:
	case <-s.done:
	}
}

// --- Queries (pull-style, read a snapshot) ---

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// State returns the current playback state.
func (s *Session) State() State { return s.Snapshot().State }

// CurrentTrack returns the current track, or nil if none.
func (s *Session) CurrentTrack() *media.Track { return s.Snapshot().Track }

// PositionNow returns the latest known playback position.
func (s *Session) PositionNow() time.Duration { return s.Snapshot().Position }

// Volume returns the session volume in percent.
func (s *Session) Volume() int { return s.Snapshot().Volume }

// Subscribe creates a new event subscription.
func (s *Session) Subscribe() *Subscription {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	sub := newSubscription()
	s.subs = append(s.subs, sub)
	return sub
}

// Close shuts the session down: the adapter is torn down and all
// subscriptions are closed.
func (s *Session) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// --- Run loop ---

func (s *Session) run() {
	ticker := time.NewTicker(positionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			s.teardownAdapter()
			s.closeSubs()
			return
		case cmd := <-s.cmds:
			s.handleCommand(cmd)
		case res := <-s.loadResults:
			s.handleLoadResult(res)
		case ev, ok := <-s.adapterEvents:
			if !ok {
				s.adapterEvents = nil
				continue
			}
			s.handleAdapterEvent(ev)
		case <-ticker.C:
			s.tickPosition()
		}
	}
}

func (s *Session) closeSubs() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, sub := range s.subs {
		sub.close()
	}
	s.subs = nil
}

func (s *Session) handleCommand(cmd command) {
	switch cmd.kind {
	case cmdPlay:
		s.skipBudget = -1
		s.playTrack(cmd.track, causeExplicit)
	case cmdPlayIndex:
		if t := s.queue.JumpTo(cmd.index); t != nil {
			s.skipBudget = -1
			s.playTrack(*t, causeExplicit)
			s.emitQueue()
		}
	case cmdPause:
		s.pause()
	case cmdResume:
		s.resume()
	case cmdToggle:
		if s.state == StatePlaying {
			s.pause()
		} else {
			s.resume()
		}
	case cmdStop:
		s.stop(false)
	case cmdSeek:
		s.seek(cmd.pos)
	case cmdNext:
		s.advance(1)
	case cmdPrevious:
		s.advance(-1)
	case cmdSetVolume:
		s.setVolume(cmd.volume)
	case cmdEnqueue:
		s.queue.Append(cmd.tracks...)
		s.emitQueue()
	case cmdReplace:
		if t := s.queue.Replace(cmd.tracks...); t != nil {
			s.playTrack(*t, causeExplicit)
		} else {
			s.stop(true)
		}
		s.emitQueue()
	case cmdRemove:
		s.removeFromQueue(cmd.index)
	case cmdMove:
		if s.queue.Move(cmd.from, cmd.to) {
			s.emitQueue()
		}
	case cmdClear:
		s.queue.Clear()
		s.emitQueue()
	case cmdSetRepeat:
		s.queue.SetRepeat(cmd.repeat)
		s.emitMode()
	case cmdCycleRepeat:
		s.queue.CycleRepeat()
		s.emitMode()
	case cmdSetShuffle:
		s.queue.SetShuffle(cmd.shuffle)
		s.emitMode()
	case cmdToggleShuffle:
		s.queue.SetShuffle(!s.queue.Shuffle())
		s.emitMode()
	}
	s.updateSnapshot()
}

// playTrack attaches the right adapter for the track's source and
// issues the load. Any in-flight load is cancelled first; its eventual
// result is discarded via the generation counter.
func (s *Session) playTrack(t media.Track, cause playCause) {
	s.cancelLoad()

	if s.adapter != nil && s.adapter.Source() != t.Source {
		s.teardownAdapter()
	}
	if s.adapter == nil {
		a, err := s.registry.New(t.Source)
		if err != nil {
			s.surfaceError("attach", &t, err)
			s.failLoad(cause, err)
			return
		}
		s.adapter = a
		s.adapterEvents = a.Events()
		// Session volume survives backend switches: the fresh adapter
		// hears about it before the track starts.
		if verr := a.SetVolume(s.volume); verr != nil {
			slog.Warn("set volume on attach", "source", t.Source, "error", verr)
		}
	}

	prev := s.current
	prevIndex := s.currentIndex
	track := t
	s.current = &track
	s.currentIndex = s.trackQueueIndex(track)
	s.position = 0
	s.setState(StateLoading)
	s.emitTrack(prev, prevIndex)

	s.loadGen++
	s.loadCause = cause
	gen := s.loadGen
	ctx, cancel := context.WithCancel(context.Background())
	s.loadCancel = cancel
	adapter := s.adapter
	go func() {
		err := adapter.Load(ctx, track)
		select {
		case s.loadResults <- loadResult{gen: gen, err: err}:
		case <-s.done:
		}
	}()
}

// trackQueueIndex resolves where the track sits in the queue, if it
// does; tracks played directly without being queued report -1.
func (s *Session) trackQueueIndex(t media.Track) int {
	if cur := s.queue.Current(); cur != nil && cur.ID == t.ID && cur.Source == t.Source {
		return s.queue.CurrentIndex()
	}
	return -1
}

func (s *Session) handleLoadResult(res loadResult) {
	if res.gen != s.loadGen {
		// Superseded by a newer command; discard.
		return
	}
	if s.loadCancel != nil {
		s.loadCancel() // load finished, release its context
		s.loadCancel = nil
	}
	if res.err == nil {
		// Loaded; the Playing transition arrives with the adapter's
		// started event.
		return
	}
	s.surfaceError("load", s.current, res.err)
	s.failLoad(s.loadCause, res.err)
	s.updateSnapshot()
}

// failLoad applies the failure policy: user-targeted plays stay in
// Error without advancing the queue; queue-driven plays skip past the
// broken track, bounded by the skip budget.
func (s *Session) failLoad(cause playCause, err error) {
	s.setState(StateError)
	if cause == causeAdvance && backend.ShouldSkip(err) {
		s.startSkipChain()
		s.skipNext()
	}
}

func (s *Session) handleAdapterEvent(ev backend.Event) {
	switch ev.Kind {
	case backend.EventStarted:
		s.skipBudget = -1
		s.setState(StatePlaying)
	case backend.EventPaused:
		if s.state == StatePlaying {
			s.setState(StatePaused)
		}
	case backend.EventResumed:
		if s.state == StatePaused {
			s.setState(StatePlaying)
		}
	case backend.EventFinished:
		s.advanceAuto()
	case backend.EventPosition:
		s.position = ev.Position
	case backend.EventError:
		s.handleBackendError(ev.Err)
	}
	s.updateSnapshot()
}

// handleBackendError applies the central retry/skip policy to an error
// event from the attached adapter. Adapters only classify and report;
// the decision happens here.
func (s *Session) handleBackendError(err error) {
	s.surfaceError("backend", s.current, err)
	kind := backend.KindOf(err)

	if kind == backend.KindFatal || kind == backend.KindAuth {
		s.teardownAdapter()
		s.setState(StateError)
		return
	}
	s.setState(StateError)
	if backend.ShouldSkip(err) {
		s.startSkipChain()
		s.skipNext()
	}
}

// startSkipChain arms the skip budget: at most one automatic skip per
// queued track, so a queue of broken tracks ends Stopped instead of
// spinning forever (RepeatOne with a single broken track included).
func (s *Session) startSkipChain() {
	if s.skipBudget < 0 {
		s.skipBudget = s.queue.Len()
	}
}

func (s *Session) skipNext() {
	if s.skipBudget <= 0 {
		s.stop(true)
		return
	}
	s.skipBudget--
	next := s.queue.Advance(1)
	if next == nil {
		s.stop(true)
		return
	}
	s.emitQueue()
	s.playTrack(*next, causeAdvance)
}

// advance handles the user-facing Next/Previous commands.
func (s *Session) advance(dir int) {
	s.skipBudget = -1
	t := s.queue.Advance(dir)
	if t == nil {
		// Queue exhausted with RepeatOff.
		s.stop(true)
		s.emitQueue()
		return
	}
	s.emitQueue()
	s.playTrack(*t, causeAdvance)
}

// advanceAuto handles a track finishing on its own.
func (s *Session) advanceAuto() {
	t := s.queue.Advance(1)
	if t == nil {
		s.stop(true)
		s.emitQueue()
		return
	}
	s.emitQueue()
	s.playTrack(*t, causeAdvance)
}

func (s *Session) pause() {
	if s.state != StatePlaying {
		return
	}
	if s.adapter != nil {
		if err := s.adapter.Pause(); err != nil {
			s.surfaceError("pause", s.current, err)
			return
		}
	}
	s.setState(StatePaused)
}

func (s *Session) resume() {
	if s.state != StatePaused {
		return
	}
	if s.adapter != nil {
		if err := s.adapter.Resume(); err != nil {
			s.surfaceError("resume", s.current, err)
			return
		}
	}
	s.setState(StatePlaying)
}

// stop halts playback. clearTrack distinguishes queue exhaustion and
// skip-chain stops (current cleared, no TrackChange noise) from a user
// stop, which keeps the current selection for a later Play.
func (s *Session) stop(clearTrack bool) {
	s.cancelLoad()
	s.teardownAdapter()
	s.position = 0
	if clearTrack {
		s.current = nil
		s.currentIndex = -1
	}
	s.setState(StateStopped)
}

func (s *Session) seek(pos time.Duration) {
	if s.state != StatePlaying && s.state != StatePaused {
		return
	}
	if pos < 0 {
		pos = 0
	}
	if s.current != nil && s.current.HasDuration() && pos > s.current.Duration {
		pos = s.current.Duration
	}
	if s.adapter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), seekTimeout)
	defer cancel()
	if err := s.adapter.Seek(ctx, pos); err != nil {
		s.surfaceError("seek", s.current, err)
		return
	}
	s.position = pos
	s.emitPosition()
}

func (s *Session) setVolume(percent int) {
	percent = clampVolume(percent)
	if percent == s.volume {
		return
	}
	s.volume = percent
	if s.adapter != nil {
		if err := s.adapter.SetVolume(percent); err != nil {
			s.surfaceError("set volume", s.current, err)
		}
	}
	s.emitVolume()
}

func (s *Session) removeFromQueue(index int) {
	removedCurrent := index == s.queue.CurrentIndex()
	if !s.queue.RemoveAt(index) {
		return
	}
	s.emitQueue()
	if removedCurrent && s.state.IsActive() {
		// The playing track left the queue; move on to whatever now
		// occupies its slot, or stop at the end.
		if t := s.queue.Current(); t != nil {
			s.playTrack(*t, causeAdvance)
		} else {
			s.stop(true)
		}
	}
}

func (s *Session) tickPosition() {
	if s.state != StatePlaying || s.adapter == nil {
		return
	}
	s.position = s.adapter.Position()
	s.emitPosition()
	s.updateSnapshot()
}

func (s *Session) cancelLoad() {
	if s.loadCancel != nil {
		s.loadCancel()
		s.loadCancel = nil
	}
	s.loadGen++ // any in-flight result is now stale
}

// teardownAdapter detaches the current adapter and finishes it in the
// background: best-effort stop bounded by a grace period, then close.
// Teardown never blocks the session loop.
func (s *Session) teardownAdapter() {
	if s.adapter == nil {
		return
	}
	a := s.adapter
	s.adapter = nil
	s.adapterEvents = nil
	go func() {
		stopped := make(chan struct{})
		go func() {
			if err := a.Stop(); err != nil {
				slog.Debug("adapter stop during teardown", "error", err)
			}
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(teardownGrace):
			slog.Warn("adapter stop timed out, tearing down anyway")
		}
		_ = a.Close()
	}()
}

// --- State & event emission ---

func (s *Session) setState(next State) {
	if s.state == next {
		return
	}
	prev := s.state
	s.state = next
	s.updateSnapshot()
	s.forEachSub(func(sub *Subscription) {
		sub.sendState(StateChange{Previous: prev, Current: next})
	})
}

func (s *Session) emitTrack(prev *media.Track, prevIndex int) {
	cur := s.current
	idx := s.currentIndex
	s.forEachSub(func(sub *Subscription) {
		sub.sendTrack(TrackChange{Previous: prev, Current: cur, PreviousIndex: prevIndex, Index: idx})
	})
}

func (s *Session) emitPosition() {
	pos := s.position
	s.forEachSub(func(sub *Subscription) {
		sub.sendPosition(pos)
	})
}

func (s *Session) emitVolume() {
	v := s.volume
	s.forEachSub(func(sub *Subscription) {
		sub.sendVolume(VolumeChange{Volume: v})
	})
}

func (s *Session) emitQueue() {
	tracks := s.queue.Tracks()
	idx := s.queue.CurrentIndex()
	s.forEachSub(func(sub *Subscription) {
		sub.sendQueue(QueueChange{Tracks: tracks, Index: idx})
	})
}

func (s *Session) emitMode() {
	e := ModeChange{Repeat: s.queue.Repeat(), Shuffle: s.queue.Shuffle()}
	s.forEachSub(func(sub *Subscription) {
		sub.sendMode(e)
	})
}

func (s *Session) surfaceError(op string, track *media.Track, err error) {
	slog.Error("playback error", "op", op, "error", err)
	e := ErrorEvent{Op: op, Track: track, Err: err}
	s.forEachSub(func(sub *Subscription) {
		sub.sendError(e)
	})
}

func (s *Session) forEachSub(fn func(*Subscription)) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, sub := range s.subs {
		fn(sub)
	}
}

func (s *Session) updateSnapshot() {
	snap := Snapshot{
		State:    s.state,
		Track:    s.current,
		Index:    s.currentIndex,
		Position: s.position,
		Volume:   s.volume,
		Repeat:   s.queue.Repeat(),
		Shuffle:  s.queue.Shuffle(),
		Tracks:   s.queue.Tracks(),
		HasNext:  s.queue.HasNext(),
	}
	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
