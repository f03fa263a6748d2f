package playback

import "time"

const eventBufferSize = 16

// Subscription provides per-subscriber event channels. Delivery is
// independent per subscriber: a slow consumer never blocks the session
// or its peers. Within one channel events arrive in emission order.
//
// Backpressure policy: position samples are coalesced (newest dropped
// when the buffer is full); every other channel drops its oldest queued
// event to make room, so the latest fact always lands even behind a
// stalled reader.
type Subscription struct {
	StateChanged    <-chan StateChange
	TrackChanged    <-chan TrackChange
	PositionChanged <-chan PositionChange
	VolumeChanged   <-chan VolumeChange
	QueueChanged    <-chan QueueChange
	ModeChanged     <-chan ModeChange
	Error           <-chan ErrorEvent
	Done            <-chan struct{}

	// Internal write channels
	stateCh    chan StateChange
	trackCh    chan TrackChange
	positionCh chan PositionChange
	volumeCh   chan VolumeChange
	queueCh    chan QueueChange
	modeCh     chan ModeChange
	errorCh    chan ErrorEvent
	doneCh     chan struct{}
}

// newSubscription creates a new subscription with buffered channels.
func newSubscription() *Subscription {
	s := &Subscription{
		stateCh:    make(chan StateChange, eventBufferSize),
		trackCh:    make(chan TrackChange, eventBufferSize),
		positionCh: make(chan PositionChange, eventBufferSize),
		volumeCh:   make(chan VolumeChange, eventBufferSize),
		queueCh:    make(chan QueueChange, eventBufferSize),
		modeCh:     make(chan ModeChange, eventBufferSize),
		errorCh:    make(chan ErrorEvent, eventBufferSize),
		doneCh:     make(chan struct{}),
	}
	s.StateChanged = s.stateCh
	s.TrackChanged = s.trackCh
	s.PositionChanged = s.positionCh
	s.VolumeChanged = s.volumeCh
	s.QueueChanged = s.queueCh
	s.ModeChanged = s.modeCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

// close signals subscribers to stop by closing doneCh.
func (s *Subscription) close() {
	close(s.doneCh)
}

// sendState delivers a state change, evicting the oldest queued one if
// the subscriber is behind. Only the session goroutine writes here, so
// the evict-then-send pair cannot race another writer.
func (s *Subscription) sendState(e StateChange) {
	for {
		select {
		case s.stateCh <- e:
			return
		default:
			select {
			case <-s.stateCh:
			default:
			}
		}
	}
}

func (s *Subscription) sendTrack(e TrackChange) {
	for {
		select {
		case s.trackCh <- e:
			return
		default:
			select {
			case <-s.trackCh:
			default:
			}
		}
	}
}

// sendPosition delivers a position sample, dropping it if the
// subscriber is behind; the next tick supersedes it anyway.
func (s *Subscription) sendPosition(pos time.Duration) {
	select {
	case s.positionCh <- PositionChange{Position: pos}:
	default:
	}
}

func (s *Subscription) sendVolume(e VolumeChange) {
	for {
		select {
		case s.volumeCh <- e:
			return
		default:
			select {
			case <-s.volumeCh:
			default:
			}
		}
	}
}

func (s *Subscription) sendQueue(e QueueChange) {
	for {
		select {
		case s.queueCh <- e:
			return
		default:
			select {
			case <-s.queueCh:
			default:
			}
		}
	}
}

func (s *Subscription) sendMode(e ModeChange) {
	for {
		select {
		case s.modeCh <- e:
			return
		default:
			select {
			case <-s.modeCh:
			default:
			}
		}
	}
}

func (s *Subscription) sendError(e ErrorEvent) {
	for {
		select {
		case s.errorCh <- e:
			return
		default:
			select {
			case <-s.errorCh:
			default:
			}
		}
	}
}
