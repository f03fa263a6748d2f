package queue

import (
	"math/rand"
	"testing"
)

func newSeeded(seed int64) *Queue {
	return New(rand.New(rand.NewSource(seed)))
}

func TestShuffle_VisitsAllTracksOnce(t *testing.T) {
	q := newSeeded(42)
	q.Replace(tracks("a", "b", "c", "d", "e")...)
	q.SetShuffle(true)

	seen := map[string]int{q.Current().ID: 1}
	for {
		next := q.Advance(1)
		if next == nil {
			break
		}
		seen[next.ID]++
	}

	if len(seen) != 5 {
		t.Fatalf("visited %d distinct tracks, want 5", len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("track %s visited %d times, want 1", id, n)
		}
	}
}

func TestShuffle_Deterministic(t *testing.T) {
	run := func() []string {
		q := newSeeded(7)
		q.Replace(tracks("a", "b", "c", "d", "e", "f")...)
		q.SetShuffle(true)
		order := []string{q.Current().ID}
		for {
			next := q.Advance(1)
			if next == nil {
				break
			}
			order = append(order, next.ID)
		}
		return order
	}

	first := run()
	second := run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("order differs at %d: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestShuffle_CurrentTrackPinnedOnToggle(t *testing.T) {
	q := newSeeded(3)
	q.Replace(tracks("a", "b", "c", "d")...)
	q.JumpTo(2)

	q.SetShuffle(true)

	// Toggling shuffle on keeps the playing track playing.
	if cur := q.Current(); cur == nil || cur.ID != "c" {
		t.Errorf("Current() = %v, want track c", cur)
	}
	// And it is position 0 of the permutation: a full cycle visits the
	// remaining three tracks after it.
	visited := 0
	for q.Advance(1) != nil {
		visited++
	}
	if visited != 3 {
		t.Errorf("visited %d tracks after pinned current, want 3", visited)
	}
}

func TestShuffle_OffResumesLinearOrder(t *testing.T) {
	q := newSeeded(9)
	q.Replace(tracks("a", "b", "c", "d")...)
	q.SetShuffle(true)
	q.Advance(1)

	cur := q.Current()
	q.SetShuffle(false)

	if got := q.Current(); got == nil || got.ID != cur.ID {
		t.Errorf("Current() = %v, want %v (unchanged)", got, cur)
	}
	// Next advance follows natural order from the current index.
	idx := q.CurrentIndex()
	next := q.Advance(1)
	if idx < q.Len()-1 {
		if next == nil || next.ID != q.Tracks()[idx+1].ID {
			t.Errorf("Advance(1) = %v, want natural successor of index %d", next, idx)
		}
	}
}

func TestShuffle_RepeatAllWrapsToPermutationStart(t *testing.T) {
	q := newSeeded(11)
	q.Replace(tracks("a", "b", "c")...)
	q.SetRepeat(RepeatAll)
	q.SetShuffle(true)

	first := q.Current().ID
	q.Advance(1)
	q.Advance(1)

	// End of the cycle: wraps to the front of the same permutation.
	got := q.Advance(1)
	if got == nil || got.ID != first {
		t.Errorf("Advance(1) after full cycle = %v, want %s", got, first)
	}
}

func TestShuffle_RegeneratedOnContentChange(t *testing.T) {
	q := newSeeded(5)
	q.Replace(tracks("a", "b", "c")...)
	q.SetShuffle(true)

	q.Append(track("d"))

	// The new track must be reachable within one cycle.
	seen := map[string]bool{q.Current().ID: true}
	for {
		next := q.Advance(1)
		if next == nil {
			break
		}
		seen[next.ID] = true
	}
	if !seen["d"] {
		t.Error("appended track not reachable after permutation regeneration")
	}
	if len(seen) != 4 {
		t.Errorf("visited %d distinct tracks, want 4", len(seen))
	}
}
