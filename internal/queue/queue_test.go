package queue

import (
	"testing"

	"github.com/tlagarde/chorus/internal/media"
)

func track(id string) media.Track {
	return media.Track{ID: id, Source: media.SourceLocal, Title: id, Locator: "/" + id + ".mp3"}
}

func tracks(ids ...string) []media.Track {
	result := make([]media.Track, len(ids))
	for i, id := range ids {
		result[i] = track(id)
	}
	return result
}

func TestNew(t *testing.T) {
	q := New(nil)

	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
	if q.CurrentIndex() != -1 {
		t.Errorf("CurrentIndex() = %d, want -1", q.CurrentIndex())
	}
	if q.Current() != nil {
		t.Error("Current() should be nil for empty queue")
	}
}

func TestQueue_Append(t *testing.T) {
	q := New(nil)

	q.Append(tracks("a", "b")...)

	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
	// Append doesn't change current index
	if q.CurrentIndex() != -1 {
		t.Errorf("CurrentIndex() = %d, want -1 (unchanged)", q.CurrentIndex())
	}
}

func TestQueue_Replace(t *testing.T) {
	q := New(nil)
	q.Append(track("old"))

	first := q.Replace(tracks("a", "b")...)

	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
	if q.CurrentIndex() != 0 {
		t.Errorf("CurrentIndex() = %d, want 0", q.CurrentIndex())
	}
	if first == nil || first.ID != "a" {
		t.Errorf("Replace() = %v, want track a", first)
	}
}

func TestQueue_Replace_Empty(t *testing.T) {
	q := New(nil)
	q.Append(track("old"))

	if q.Replace() != nil {
		t.Error("Replace() with no tracks should return nil")
	}
	if q.CurrentIndex() != -1 {
		t.Errorf("CurrentIndex() = %d, want -1", q.CurrentIndex())
	}
}

func TestQueue_RemoveAt_BeforeCurrent(t *testing.T) {
	q := New(nil)
	q.Replace(tracks("a", "b", "c")...)
	q.JumpTo(2)

	if !q.RemoveAt(0) {
		t.Fatal("RemoveAt(0) failed")
	}

	if q.CurrentIndex() != 1 {
		t.Errorf("CurrentIndex() = %d, want 1", q.CurrentIndex())
	}
	if cur := q.Current(); cur == nil || cur.ID != "c" {
		t.Errorf("Current() = %v, want track c", cur)
	}
}

func TestQueue_RemoveAt_Current(t *testing.T) {
	q := New(nil)
	q.Replace(tracks("a", "b", "c")...)
	q.JumpTo(2)

	q.RemoveAt(2)

	// Clamped to new last index
	if q.CurrentIndex() != 1 {
		t.Errorf("CurrentIndex() = %d, want 1", q.CurrentIndex())
	}
}

func TestQueue_RemoveAt_OutOfBounds(t *testing.T) {
	q := New(nil)
	q.Append(track("a"))

	if q.RemoveAt(5) {
		t.Error("RemoveAt(5) should fail")
	}
	if q.RemoveAt(-1) {
		t.Error("RemoveAt(-1) should fail")
	}
}

func TestQueue_Move(t *testing.T) {
	q := New(nil)
	q.Replace(tracks("a", "b", "c")...)

	if !q.Move(0, 2) {
		t.Fatal("Move(0, 2) failed")
	}

	got := q.Tracks()
	want := []string{"b", "c", "a"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("Tracks()[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
	// Current was a at index 0, follows to index 2
	if q.CurrentIndex() != 2 {
		t.Errorf("CurrentIndex() = %d, want 2", q.CurrentIndex())
	}
}

func TestQueue_Advance_Linear(t *testing.T) {
	q := New(nil)
	q.Replace(tracks("a", "b", "c")...)

	next := q.Advance(1)
	if next == nil || next.ID != "b" {
		t.Errorf("Advance(1) = %v, want track b", next)
	}

	prev := q.Advance(-1)
	if prev == nil || prev.ID != "a" {
		t.Errorf("Advance(-1) = %v, want track a", prev)
	}
}

func TestQueue_Advance_EndOfQueue_RepeatOff(t *testing.T) {
	q := New(nil)
	q.Replace(tracks("a", "b")...)
	q.JumpTo(1)

	if got := q.Advance(1); got != nil {
		t.Errorf("Advance(1) past end = %v, want nil", got)
	}
	if q.CurrentIndex() != -1 {
		t.Errorf("CurrentIndex() = %d, want -1 after exhaustion", q.CurrentIndex())
	}
}

func TestQueue_Advance_EndOfQueue_RepeatAll(t *testing.T) {
	q := New(nil)
	q.Replace(tracks("a", "b")...)
	q.SetRepeat(RepeatAll)
	q.JumpTo(1)

	got := q.Advance(1)
	if got == nil || got.ID != "a" {
		t.Errorf("Advance(1) = %v, want wrap to track a", got)
	}
}

func TestQueue_Advance_RepeatOne_StaysPut(t *testing.T) {
	q := New(nil)
	q.Replace(tracks("a", "b")...)
	q.SetRepeat(RepeatOne)

	got := q.Advance(1)
	if got == nil || got.ID != "a" {
		t.Errorf("Advance(1) with RepeatOne = %v, want track a again", got)
	}
	if q.CurrentIndex() != 0 {
		t.Errorf("CurrentIndex() = %d, want 0", q.CurrentIndex())
	}
}

func TestQueue_Advance_PreviousAtStart_RepeatOff(t *testing.T) {
	q := New(nil)
	q.Replace(tracks("a", "b")...)

	got := q.Advance(-1)
	if got == nil || got.ID != "a" {
		t.Errorf("Advance(-1) at start = %v, want track a (stay)", got)
	}
}

func TestQueue_Advance_PreviousAtStart_RepeatAll(t *testing.T) {
	q := New(nil)
	q.Replace(tracks("a", "b")...)
	q.SetRepeat(RepeatAll)

	got := q.Advance(-1)
	if got == nil || got.ID != "b" {
		t.Errorf("Advance(-1) at start = %v, want wrap to track b", got)
	}
}

func TestQueue_Advance_Empty(t *testing.T) {
	q := New(nil)

	if q.Advance(1) != nil {
		t.Error("Advance on empty queue should return nil")
	}
}

func TestQueue_HasNext(t *testing.T) {
	q := New(nil)
	if q.HasNext() {
		t.Error("empty queue should not have next")
	}

	q.Replace(tracks("a", "b")...)
	if !q.HasNext() {
		t.Error("queue at index 0 of 2 should have next")
	}

	q.JumpTo(1)
	if q.HasNext() {
		t.Error("last index with RepeatOff should not have next")
	}

	q.SetRepeat(RepeatAll)
	if !q.HasNext() {
		t.Error("RepeatAll should always have next")
	}
}

func TestQueue_CycleRepeat(t *testing.T) {
	q := New(nil)

	if got := q.CycleRepeat(); got != RepeatAll {
		t.Errorf("CycleRepeat() = %v, want All", got)
	}
	if got := q.CycleRepeat(); got != RepeatOne {
		t.Errorf("CycleRepeat() = %v, want One", got)
	}
	if got := q.CycleRepeat(); got != RepeatOff {
		t.Errorf("CycleRepeat() = %v, want Off", got)
	}
}

func TestQueue_SetRepeat_KeepsPosition(t *testing.T) {
	q := New(nil)
	q.Replace(tracks("a", "b", "c")...)
	q.JumpTo(1)

	q.SetRepeat(RepeatAll)
	q.SetRepeat(RepeatOne)
	q.SetRepeat(RepeatOff)

	if q.CurrentIndex() != 1 {
		t.Errorf("CurrentIndex() = %d, want 1 (repeat changes never move it)", q.CurrentIndex())
	}
}
