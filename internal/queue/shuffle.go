package queue

import "github.com/tlagarde/chorus/internal/media"

// reshuffle regenerates the shuffle permutation. The current track, if
// any, is pinned to the front so a regeneration never interrupts what
// is playing; every other track appears exactly once after it.
func (q *Queue) reshuffle() {
	n := len(q.tracks)
	q.order = make([]int, n)
	for i := range q.order {
		q.order[i] = i
	}
	q.rng.Shuffle(n, func(i, j int) {
		q.order[i], q.order[j] = q.order[j], q.order[i]
	})
	if q.current >= 0 && q.current < n {
		pos := q.orderPos(q.current)
		if pos > 0 {
			q.order[0], q.order[pos] = q.order[pos], q.order[0]
		}
	}
}

// orderPos returns the position of track index in the permutation, or
// -1 if the permutation does not contain it.
func (q *Queue) orderPos(index int) int {
	for pos, idx := range q.order {
		if idx == index {
			return pos
		}
	}
	return -1
}

// advanceShuffled walks the permutation one step. At the end of a full
// cycle, RepeatAll wraps to the front of the same permutation so every
// track is visited exactly once per cycle; RepeatOff exhausts the queue.
func (q *Queue) advanceShuffled(dir int) *media.Track {
	pos := q.orderPos(q.current)
	if pos < 0 {
		// Current track no longer in the permutation; start over.
		q.reshuffle()
		q.current = q.order[0]
		return q.Current()
	}
	next := pos + dir
	switch {
	case next >= len(q.order):
		if q.repeat != RepeatAll {
			q.current = -1
			return nil
		}
		next = 0
	case next < 0:
		if q.repeat != RepeatAll {
			next = 0
		} else {
			next = len(q.order) - 1
		}
	}
	q.current = q.order[next]
	return q.Current()
}
