package backend

import (
	"context"
	"sync"
	"time"

	"github.com/tlagarde/chorus/internal/media"
)

// Mock is a test double for Adapter.
type Mock struct {
	mu sync.Mutex

	source   media.Source
	position time.Duration
	volume   int
	closed   bool

	loadErr   error
	blockLoad bool // Load blocks until its context is cancelled

	loadCalls   []media.Track
	seekCalls   []time.Duration
	volumeCalls []int
	stopCalls   int
	pauseCalls  int
	resumeCalls int

	events chan Event
}

// NewMock creates a mock adapter for the given source.
func NewMock(src media.Source) *Mock {
	return &Mock{
		source: src,
		events: make(chan Event, 32),
	}
}

func (m *Mock) Source() media.Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.source
}

func (m *Mock) Load(ctx context.Context, t media.Track) error {
	m.mu.Lock()
	m.loadCalls = append(m.loadCalls, t)
	block := m.blockLoad
	err := m.loadErr
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return NewError(KindTransient, "load", ctx.Err())
	}
	if err != nil {
		return err
	}
	m.Emit(Event{Kind: EventStarted})
	return nil
}

func (m *Mock) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseCalls++
	return nil
}

func (m *Mock) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumeCalls++
	return nil
}

func (m *Mock) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	return nil
}

func (m *Mock) Seek(_ context.Context, pos time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekCalls = append(m.seekCalls, pos)
	m.position = pos
	return nil
}

func (m *Mock) SetVolume(percent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volumeCalls = append(m.volumeCalls, percent)
	m.volume = percent
	return nil
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Events() <-chan Event {
	return m.events
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.events)
	return nil
}

// Test helpers

// Emit pushes an event onto the adapter's stream. No-op once closed.
func (m *Mock) Emit(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	select {
	case m.events <- e:
	default:
	}
}

// SetLoadError makes subsequent Load calls fail with err.
func (m *Mock) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// SetBlockLoad makes subsequent Load calls block until cancelled.
func (m *Mock) SetBlockLoad(block bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blockLoad = block
}

// SetPosition sets the reported position.
func (m *Mock) SetPosition(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = pos
}

func (m *Mock) LoadCalls() []media.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]media.Track(nil), m.loadCalls...)
}

func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seekCalls...)
}

func (m *Mock) VolumeCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.volumeCalls...)
}

func (m *Mock) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}

func (m *Mock) PauseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauseCalls
}

func (m *Mock) ResumeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resumeCalls
}

func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Verify Mock implements Adapter at compile time.
var _ Adapter = (*Mock)(nil)
