package playback

import (
	"context"
	"math"
	"sync"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/metrics"
)

// Option configures a Controller
type Option func(*Controller)

// WithAutoplay starts playback as soon as metadata is ready
func WithAutoplay(autoplay bool) Option {
	return func(c *Controller) {
		c.autoplay = autoplay
	}
}

// Controller owns the playback state of one session and drives a MediaElement.
//
// Subscribers are called with the controller locked, they must not call back into it.
type Controller struct {
	el       MediaElement
	autoplay bool

	mu            sync.Mutex
	state         State
	durationKnown bool
	playPending   bool
	subs          map[int]func(State)
	nextSub       int
}

func NewController(el MediaElement, opts ...Option) *Controller {
	c := &Controller{el: el, subs: make(map[int]func(State))}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetAutoplay applies to the next source
func (c *Controller) SetAutoplay(autoplay bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoplay = autoplay
}

// State a snapshot of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn for state changes, fn only sees states that differ from the previous one
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Controller) publish(prev State) {
	if prev.equal(c.state) {
		return
	}
	for _, fn := range c.subs {
		fn(c.state)
	}
}

// SetSource switches to url, events of earlier sources are ignored from now on
func (c *Controller) SetSource(url string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.state
	c.load(url)
	c.publish(prev)
	return c.state.Generation
}

func (c *Controller) load(url string) {
	c.state = State{
		Status:      Loading,
		IsMuted:     c.state.IsMuted,
		PlayableURL: url,
		Generation:  c.state.Generation + 1,
	}
	c.durationKnown = false
	c.playPending = false
	c.el.Load(url, c.state.Generation)
}

// Retry reloads the current source, a no-op while already loading
func (c *Controller) Retry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status == Idle || c.state.Status == Loading {
		return
	}
	prev := c.state
	c.load(c.state.PlayableURL)
	c.publish(prev)
}

// HandleLoadedMetadata moves a loading session to paused, or starts it when autoplay is set
func (c *Controller) HandleLoadedMetadata(ctx context.Context, gen uint64, duration float64) error {
	c.mu.Lock()
	if gen != c.state.Generation || c.state.Status != Loading {
		c.mu.Unlock()
		return nil
	}
	prev := c.state
	// NaN and infinite durations (live streams) leave the duration unknown
	known := !math.IsNaN(duration) && !math.IsInf(duration, 0)
	if !known || duration < 0 {
		duration = 0
	}
	c.state.DurationSeconds = duration
	c.state.Status = Paused
	c.durationKnown = known
	c.publish(prev)
	autoplay := c.autoplay
	c.mu.Unlock()

	if autoplay {
		return c.play(ctx, gen)
	}
	return nil
}

// HandleTimeUpdate ...
func (c *Controller) HandleTimeUpdate(gen uint64, position float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.state.Generation || (c.state.Status != Playing && c.state.Status != Paused) {
		return
	}
	prev := c.state
	c.state.PositionSeconds = c.clamp(position)
	c.publish(prev)
}

// HandleEnded is terminal until the next source, duplicates are ignored
func (c *Controller) HandleEnded(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.state.Generation || (c.state.Status != Playing && c.state.Status != Paused) {
		return
	}
	prev := c.state
	c.state.Status = Ended
	c.state.PositionSeconds = c.state.DurationSeconds
	c.playPending = false
	c.publish(prev)
}

// HandleError records a media load failure of generation gen
func (c *Controller) HandleError(gen uint64, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case gen != c.state.Generation:
		return
	case c.state.Status != Loading && c.state.Status != Playing && c.state.Status != Paused:
		return
	}
	c.fail(MediaLoadFailure, MessageMediaLoadFailure, message)
}

func (c *Controller) fail(kind ErrorKind, message, detail string) {
	prev := c.state
	c.state.Status = Errored
	c.state.LastError = &ErrorInfo{Kind: kind, Message: message, URL: c.state.PlayableURL, Detail: detail}
	c.playPending = false
	metrics.PlaybackErrors.WithLabelValues(kind.String()).Inc()
	c.publish(prev)
}

// TogglePlay pauses a playing session or starts a paused one.
// Starting blocks until the element accepted or rejected playback.
func (c *Controller) TogglePlay(ctx context.Context) error {
	c.mu.Lock()
	switch c.state.Status {
	case Playing:
		prev := c.state
		c.el.Pause()
		c.state.Status = Paused
		c.publish(prev)
		c.mu.Unlock()
		return nil
	case Paused:
		gen := c.state.Generation
		c.mu.Unlock()
		return c.play(ctx, gen)
	}
	c.mu.Unlock()
	return nil
}

func (c *Controller) play(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	if gen != c.state.Generation || c.state.Status != Paused || c.playPending {
		c.mu.Unlock()
		return nil
	}
	c.playPending = true
	c.mu.Unlock()

	err := c.el.Play(ctx, gen)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.state.Generation || c.state.Status != Paused || !c.playPending {
		return nil
	}
	c.playPending = false
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.fail(PlaybackStartRejected, MessagePlaybackStartRejected, err.Error())
		return nil
	}
	prev := c.state
	c.state.Status = Playing
	c.publish(prev)
	return nil
}

// Seek moves the position by delta seconds, clamped to the media duration.
// Without a known duration it does nothing.
func (c *Controller) Seek(delta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.durationKnown {
		return
	}
	prev := c.state
	c.state.PositionSeconds = c.clamp(c.state.PositionSeconds + delta)
	c.el.SetCurrentTime(c.state.PositionSeconds)
	c.publish(prev)
}

func (c *Controller) clamp(pos float64) float64 {
	if pos < 0 || math.IsNaN(pos) || math.IsInf(pos, 0) {
		return 0
	}
	if c.durationKnown && pos > c.state.DurationSeconds {
		return c.state.DurationSeconds
	}
	return pos
}

// ToggleMute valid in any state
func (c *Controller) ToggleMute() {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.state
	c.state.IsMuted = !c.state.IsMuted
	c.el.SetMuted(c.state.IsMuted)
	c.publish(prev)
}

// Close drops every subscriber
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = make(map[int]func(State))
}
