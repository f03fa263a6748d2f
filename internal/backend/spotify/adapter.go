package spotify

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tlagarde/chorus/internal/backend"
	"github.com/tlagarde/chorus/internal/media"
)

const (
	pollInterval    = time.Second
	pollTimeout     = 5 * time.Second
	commandTimeout  = 10 * time.Second
	finishThreshold = 2 * time.Second
)

// playerState is the subset of the /me/player response the adapter
// cares about.
type playerState struct {
	IsPlaying  bool `json:"is_playing"`
	ProgressMS int  `json:"progress_ms"`
	Item       *struct {
		ID         string `json:"id"`
		DurationMS int    `json:"duration_ms"`
	} `json:"item"`
}

type playRequest struct {
	URIs []string `json:"uris,omitempty"`
}

// Adapter drives the user's active Spotify Connect device. The Web API
// has no push channel, so the adapter polls the player state while a
// track is loaded and synthesizes events from the observed changes.
type Adapter struct {
	client   *Client
	deviceID string
	market   string

	events   chan backend.Event
	position atomic.Int64 // nanoseconds

	mu           sync.Mutex
	currentID    string
	playing      bool
	lastProgress time.Duration
	lastDuration time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// New creates an adapter around the given token source. deviceID may
// be empty, in which case commands target whatever device is active.
// market is an optional ISO country code forwarded on state reads.
func New(tokens TokenSource, deviceID, market string) *Adapter {
	a := &Adapter{
		client:   NewClient(tokens),
		deviceID: deviceID,
		market:   market,
		events:   make(chan backend.Event, 32),
		done:     make(chan struct{}),
	}
	go a.pollLoop()
	return a
}

func (a *Adapter) Source() media.Source { return media.SourceSpotify }

// Load starts the track on the Connect device. The Web API confirms
// synchronously, so the started event fires as soon as the play call
// succeeds; the poll loop takes over from there.
func (a *Adapter) Load(ctx context.Context, t media.Track) error {
	uri := trackURI(t)
	path := a.withDevice("/me/player/play")
	if err := a.client.Put(ctx, path, playRequest{URIs: []string{uri}}, nil); err != nil {
		return err
	}
	a.mu.Lock()
	a.currentID = idFromURI(uri)
	a.playing = true
	a.lastProgress = 0
	a.lastDuration = t.Duration
	a.mu.Unlock()
	a.position.Store(0)
	a.emit(backend.Event{Kind: backend.EventStarted})
	return nil
}

func (a *Adapter) Pause() error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := a.client.Put(ctx, a.withDevice("/me/player/pause"), nil, nil); err != nil {
		return err
	}
	a.mu.Lock()
	a.playing = false
	a.mu.Unlock()
	return nil
}

func (a *Adapter) Resume() error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := a.client.Put(ctx, a.withDevice("/me/player/play"), playRequest{}, nil); err != nil {
		return err
	}
	a.mu.Lock()
	a.playing = true
	a.mu.Unlock()
	return nil
}

// Stop pauses the device and forgets the track; Connect has no harder
// stop than that.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	a.currentID = ""
	a.playing = false
	a.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return a.client.Put(ctx, a.withDevice("/me/player/pause"), nil, nil)
}

func (a *Adapter) Seek(ctx context.Context, pos time.Duration) error {
	if pos < 0 {
		pos = 0
	}
	params := map[string]string{"position_ms": strconv.Itoa(int(pos / time.Millisecond))}
	if a.deviceID != "" {
		params["device_id"] = a.deviceID
	}
	if err := a.client.Put(ctx, buildURL("/me/player/seek", params), nil, nil); err != nil {
		return err
	}
	a.position.Store(int64(pos))
	a.mu.Lock()
	a.lastProgress = pos
	a.mu.Unlock()
	return nil
}

func (a *Adapter) SetVolume(percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	params := map[string]string{"volume_percent": strconv.Itoa(percent)}
	if a.deviceID != "" {
		params["device_id"] = a.deviceID
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return a.client.Put(ctx, buildURL("/me/player/volume", params), nil, nil)
}

func (a *Adapter) Position() time.Duration {
	return time.Duration(a.position.Load())
}

func (a *Adapter) Events() <-chan backend.Event { return a.events }

func (a *Adapter) Close() error {
	a.closeOnce.Do(func() { close(a.done) })
	return nil
}

func (a *Adapter) pollLoop() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	defer close(a.events)
	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			a.poll()
		}
	}
}

func (a *Adapter) poll() {
	a.mu.Lock()
	current := a.currentID
	a.mu.Unlock()
	if current == "" {
		return // nothing loaded, leave the API alone
	}

	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()
	path := "/me/player"
	if a.market != "" {
		path = buildURL(path, map[string]string{"market": a.market})
	}
	var st playerState
	if err := a.client.Get(ctx, path, &st); err != nil {
		if backend.KindOf(err) == backend.KindAuth {
			a.mu.Lock()
			a.currentID = ""
			a.mu.Unlock()
			a.emit(backend.Event{Kind: backend.EventError, Err: err})
		}
		return // transient, try again next tick
	}
	a.apply(st)
}

// apply folds one observed player state into events. Pause and resume
// initiated through this adapter were already recorded, so only
// external changes (another Connect client, the phone) surface here.
// Events are sent after the mutex is released so a slow consumer
// never wedges Pause, Resume or Stop behind a blocked send.
func (a *Adapter) apply(st playerState) {
	for _, e := range a.fold(st) {
		a.emit(e)
	}
}

// fold updates the tracked player state under a.mu and returns the
// events the observation produced, in order.
func (a *Adapter) fold(st playerState) []backend.Event {
	a.mu.Lock()
	defer a.mu.Unlock()

	if st.Item == nil || st.Item.ID != a.currentID {
		// Our track left the player. Near the end that means it
		// finished; otherwise another client took over.
		if a.nearEnd() {
			a.currentID = ""
			a.playing = false
			return []backend.Event{{Kind: backend.EventFinished}}
		}
		return nil
	}

	progress := time.Duration(st.ProgressMS) * time.Millisecond
	a.lastProgress = progress
	if st.Item.DurationMS > 0 {
		a.lastDuration = time.Duration(st.Item.DurationMS) * time.Millisecond
	}
	a.position.Store(int64(progress))
	events := []backend.Event{{Kind: backend.EventPosition, Position: progress}}

	if st.IsPlaying != a.playing {
		a.playing = st.IsPlaying
		switch {
		case st.IsPlaying:
			events = append(events, backend.Event{Kind: backend.EventResumed})
		case a.nearEnd():
			a.currentID = ""
			events = append(events, backend.Event{Kind: backend.EventFinished})
		default:
			events = append(events, backend.Event{Kind: backend.EventPaused})
		}
	}
	return events
}

// nearEnd reports whether the last observed progress was close enough
// to the track's end to call a disappearance a natural finish.
// Callers hold a.mu.
func (a *Adapter) nearEnd() bool {
	return a.lastDuration > 0 && a.lastDuration-a.lastProgress <= finishThreshold
}

func (a *Adapter) emit(e backend.Event) {
	select {
	case a.events <- e:
	case <-a.done:
	}
}

func (a *Adapter) withDevice(path string) string {
	if a.deviceID == "" {
		return path
	}
	return buildURL(path, map[string]string{"device_id": a.deviceID})
}

func trackURI(t media.Track) string {
	if strings.HasPrefix(t.Locator, "spotify:") {
		return t.Locator
	}
	return "spotify:track:" + t.ID
}

func idFromURI(uri string) string {
	if i := strings.LastIndexByte(uri, ':'); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

var _ backend.Adapter = (*Adapter)(nil)
