// Package queue implements the playback queue: an ordered list of tracks
// plus the repeat/shuffle policy that decides what plays next.
package queue

import (
	"math/rand"
	"time"

	"github.com/tlagarde/chorus/internal/media"
)

// RepeatMode defines the repeat behavior.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

// String returns the repeat mode name.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "Off"
	case RepeatAll:
		return "All"
	case RepeatOne:
		return "One"
	default:
		return "Unknown"
	}
}

// Queue is an ordered track list with a current position and an
// ordering policy. It is not safe for concurrent use; the playback
// session is its single owner.
type Queue struct {
	tracks  []media.Track
	current int // -1 if nothing current
	repeat  RepeatMode
	shuffle bool
	order   []int // shuffle permutation over track indices
	rng     *rand.Rand
}

// New creates an empty queue. rng drives the shuffle permutation; pass
// a fixed-seed source for deterministic behavior, or nil for a
// time-seeded one.
func New(rng *rand.Rand) *Queue {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Queue{
		tracks:  make([]media.Track, 0),
		current: -1,
		rng:     rng,
	}
}

// Current returns the current track, or nil if none.
func (q *Queue) Current() *media.Track {
	if q.current < 0 || q.current >= len(q.tracks) {
		return nil
	}
	t := q.tracks[q.current]
	return &t
}

// CurrentIndex returns the index of the current track (-1 if none).
func (q *Queue) CurrentIndex() int {
	return q.current
}

// Append adds tracks to the end of the queue without changing the
// current position.
func (q *Queue) Append(tracks ...media.Track) {
	q.tracks = append(q.tracks, tracks...)
	if q.shuffle {
		q.reshuffle()
	}
}

// Replace clears the queue, adds tracks and sets the position to the
// first one. Returns the track to play, or nil when tracks is empty.
func (q *Queue) Replace(tracks ...media.Track) *media.Track {
	q.tracks = q.tracks[:0]
	q.current = -1
	q.order = nil
	if len(tracks) == 0 {
		return nil
	}
	q.tracks = append(q.tracks, tracks...)
	q.current = 0
	if q.shuffle {
		q.reshuffle()
	}
	return q.Current()
}

// RemoveAt removes the track at the given index, adjusting the current
// position the way the removal moved it. Returns false if index is out
// of bounds.
func (q *Queue) RemoveAt(index int) bool {
	if index < 0 || index >= len(q.tracks) {
		return false
	}
	q.tracks = append(q.tracks[:index], q.tracks[index+1:]...)

	if q.current > index {
		q.current--
	} else if q.current == index {
		// Removed the current track: stay in place, which now points
		// to the next track. Clamp at the end.
		if q.current >= len(q.tracks) {
			q.current = len(q.tracks) - 1
		}
	}
	if q.shuffle {
		q.reshuffle()
	}
	return true
}

// Move moves the track at from to position to. Returns false if either
// index is out of bounds.
func (q *Queue) Move(from, to int) bool {
	if from < 0 || from >= len(q.tracks) || to < 0 || to >= len(q.tracks) {
		return false
	}
	if from == to {
		return true
	}
	t := q.tracks[from]
	q.tracks = append(q.tracks[:from], q.tracks[from+1:]...)
	rest := append(q.tracks[:to:to], append([]media.Track{t}, q.tracks[to:]...)...)
	q.tracks = rest

	switch {
	case q.current == from:
		q.current = to
	case from < q.current && to >= q.current:
		q.current--
	case from > q.current && to <= q.current:
		q.current++
	}
	if q.shuffle {
		q.reshuffle()
	}
	return true
}

// Clear removes all tracks and resets the position.
func (q *Queue) Clear() {
	q.tracks = q.tracks[:0]
	q.current = -1
	q.order = nil
}

// JumpTo sets the current position. Returns the track at that position,
// or nil if the index is invalid.
func (q *Queue) JumpTo(index int) *media.Track {
	if index < 0 || index >= len(q.tracks) {
		return nil
	}
	q.current = index
	return q.Current()
}

// Advance moves the current position one step in the given direction
// (+1 next, -1 previous) following the repeat and shuffle policy, and
// returns the new current track. A nil return means the queue is
// exhausted (end reached with RepeatOff) and the position was reset.
//
// With RepeatOne the position never moves: the current track is
// returned again. Previous at the first position with RepeatOff stays
// on the first track rather than falling off the front.
func (q *Queue) Advance(dir int) *media.Track {
	if len(q.tracks) == 0 {
		q.current = -1
		return nil
	}
	if q.current < 0 {
		return q.advanceFromStopped(dir)
	}
	if q.repeat == RepeatOne {
		return q.Current()
	}
	if q.shuffle {
		return q.advanceShuffled(dir)
	}
	return q.advanceLinear(dir)
}

func (q *Queue) advanceFromStopped(dir int) *media.Track {
	if q.shuffle {
		q.reshuffle()
		if dir >= 0 {
			q.current = q.order[0]
		} else {
			q.current = q.order[len(q.order)-1]
		}
		return q.Current()
	}
	if dir >= 0 {
		q.current = 0
	} else {
		q.current = len(q.tracks) - 1
	}
	return q.Current()
}

func (q *Queue) advanceLinear(dir int) *media.Track {
	next := q.current + dir
	switch {
	case next >= len(q.tracks):
		if q.repeat != RepeatAll {
			q.current = -1
			return nil
		}
		next = 0
	case next < 0:
		if q.repeat != RepeatAll {
			next = 0
		} else {
			next = len(q.tracks) - 1
		}
	}
	q.current = next
	return q.Current()
}

// HasNext reports whether Advance(+1) would yield a track.
func (q *Queue) HasNext() bool {
	if len(q.tracks) == 0 {
		return false
	}
	if q.repeat == RepeatAll || q.repeat == RepeatOne {
		return true
	}
	if q.current < 0 {
		return true
	}
	if q.shuffle {
		return q.orderPos(q.current) < len(q.order)-1
	}
	return q.current < len(q.tracks)-1
}

// Tracks returns a copy of all tracks in natural (unshuffled) order.
func (q *Queue) Tracks() []media.Track {
	result := make([]media.Track, len(q.tracks))
	copy(result, q.tracks)
	return result
}

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// IsEmpty reports whether the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return len(q.tracks) == 0
}

// Repeat returns the current repeat mode.
func (q *Queue) Repeat() RepeatMode {
	return q.repeat
}

// SetRepeat sets the repeat mode. The current position never moves.
func (q *Queue) SetRepeat(mode RepeatMode) {
	q.repeat = mode
}

// CycleRepeat advances Off -> All -> One -> Off and returns the new mode.
func (q *Queue) CycleRepeat() RepeatMode {
	switch q.repeat {
	case RepeatOff:
		q.repeat = RepeatAll
	case RepeatAll:
		q.repeat = RepeatOne
	case RepeatOne:
		q.repeat = RepeatOff
	}
	return q.repeat
}

// Shuffle reports whether shuffle is enabled.
func (q *Queue) Shuffle() bool {
	return q.shuffle
}

// SetShuffle toggles shuffle mode. Turning it on regenerates the
// permutation with the current track pinned first, so the playing track
// is position 0 of the new order. Turning it off resumes linear order
// from the current track's natural index.
func (q *Queue) SetShuffle(enabled bool) {
	if q.shuffle == enabled {
		return
	}
	q.shuffle = enabled
	if enabled {
		q.reshuffle()
	} else {
		q.order = nil
	}
}
