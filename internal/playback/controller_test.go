package playback

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type call struct {
	op  string
	url string
	gen uint64
	pos float64
	on  bool
}

type fakeElement struct {
	mu      sync.Mutex
	calls   []call
	playErr error
	gate    chan struct{} // when set, Play blocks until it is closed
}

func (fe *fakeElement) record(c call) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	fe.calls = append(fe.calls, c)
}

func (fe *fakeElement) Load(url string, gen uint64) { fe.record(call{op: "load", url: url, gen: gen}) }
func (fe *fakeElement) Pause()                      { fe.record(call{op: "pause"}) }
func (fe *fakeElement) SetCurrentTime(pos float64)  { fe.record(call{op: "seek", pos: pos}) }
func (fe *fakeElement) SetMuted(muted bool)         { fe.record(call{op: "mute", on: muted}) }

func (fe *fakeElement) Play(ctx context.Context, gen uint64) error {
	fe.record(call{op: "play", gen: gen})
	if fe.gate != nil {
		select {
		case <-fe.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fe.playErr
}

func (fe *fakeElement) ops() []string {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	result := make([]string, 0, len(fe.calls))
	for _, c := range fe.calls {
		result = append(result, c.op)
	}
	return result
}

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) observe(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Status, 0, len(r.states))
	for _, s := range r.states {
		result = append(result, s.Status)
	}
	return result
}

func newTestController(opts ...Option) (*Controller, *fakeElement, *recorder) {
	el := &fakeElement{}
	c := NewController(el, opts...)
	rec := &recorder{}
	c.Subscribe(rec.observe)
	return c, el, rec
}

func TestController_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c, el, rec := newTestController()
	assert.Equal(t, Idle, c.State().Status)

	gen := c.SetSource("https://cdn.example.com/a.mp4")
	assert.Equal(t, Loading, c.State().Status)

	require.NoError(t, c.HandleLoadedMetadata(ctx, gen, 120))
	st := c.State()
	assert.Equal(t, Paused, st.Status)
	assert.Equal(t, 120.0, st.DurationSeconds)

	require.NoError(t, c.TogglePlay(ctx))
	assert.Equal(t, Playing, c.State().Status)

	c.HandleTimeUpdate(gen, 30)
	assert.Equal(t, 30.0, c.State().PositionSeconds)

	require.NoError(t, c.TogglePlay(ctx))
	assert.Equal(t, Paused, c.State().Status)
	require.NoError(t, c.TogglePlay(ctx))

	c.HandleEnded(gen)
	c.HandleEnded(gen)
	st = c.State()
	assert.Equal(t, Ended, st.Status)
	assert.Equal(t, 120.0, st.PositionSeconds)

	// ended is terminal until a new source
	require.NoError(t, c.TogglePlay(ctx))
	assert.Equal(t, Ended, c.State().Status)

	assert.Equal(t, []Status{Loading, Paused, Playing, Playing, Paused, Playing, Ended}, rec.statuses())
	assert.Equal(t, []string{"load", "play", "pause", "play"}, el.ops())
}

func TestController_Autoplay(t *testing.T) {
	c, _, rec := newTestController(WithAutoplay(true))
	gen := c.SetSource("https://cdn.example.com/a.mp4")
	require.NoError(t, c.HandleLoadedMetadata(context.Background(), gen, 60))
	assert.Equal(t, Playing, c.State().Status)
	assert.Equal(t, []Status{Loading, Paused, Playing}, rec.statuses())
}

func TestController_PlaybackRejected(t *testing.T) {
	ctx := context.Background()
	c, el, _ := newTestController()
	el.playErr = errors.New("NotAllowedError")
	gen := c.SetSource("https://cdn.example.com/a.mp4")
	require.NoError(t, c.HandleLoadedMetadata(ctx, gen, 60))

	require.NoError(t, c.TogglePlay(ctx))
	st := c.State()
	assert.Equal(t, Errored, st.Status)
	require.NotNil(t, st.LastError)
	assert.Equal(t, PlaybackStartRejected, st.LastError.Kind)
	assert.Equal(t, MessagePlaybackStartRejected, st.LastError.Message)
	assert.Equal(t, "NotAllowedError", st.LastError.Detail)
	assert.Equal(t, "https://cdn.example.com/a.mp4", st.LastError.URL)
}

func TestController_LoadFailureAndRetry(t *testing.T) {
	c, el, rec := newTestController()
	gen := c.SetSource("https://cdn.example.com/broken.mp4")

	c.HandleError(gen, "MEDIA_ERR_SRC_NOT_SUPPORTED")
	c.HandleError(gen, "MEDIA_ERR_SRC_NOT_SUPPORTED")
	st := c.State()
	assert.Equal(t, Errored, st.Status)
	require.NotNil(t, st.LastError)
	assert.Equal(t, MediaLoadFailure, st.LastError.Kind)
	assert.Equal(t, MessageMediaLoadFailure, st.LastError.Message)
	assert.Equal(t, "https://cdn.example.com/broken.mp4", st.LastError.URL)

	c.Retry()
	retried := c.State()
	assert.Equal(t, Loading, retried.Status)
	assert.Nil(t, retried.LastError)
	assert.Equal(t, "https://cdn.example.com/broken.mp4", retried.PlayableURL)

	// retrying while loading changes nothing
	for i := 0; i < 3; i++ {
		c.Retry()
	}
	assert.Equal(t, retried, c.State())

	// a late error of the first load belongs to a superseded generation
	c.HandleError(gen, "late")
	assert.Equal(t, Loading, c.State().Status)

	assert.Equal(t, []Status{Loading, Errored, Loading}, rec.statuses())
	assert.Equal(t, []string{"load", "load"}, el.ops())
}

func TestController_StaleEventsIgnored(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestController()
	old := c.SetSource("https://cdn.example.com/old.mp4")
	gen := c.SetSource("https://cdn.example.com/new.mp4")
	require.NotEqual(t, old, gen)

	require.NoError(t, c.HandleLoadedMetadata(ctx, old, 999))
	c.HandleError(old, "boom")
	c.HandleEnded(old)
	c.HandleTimeUpdate(old, 10)

	st := c.State()
	assert.Equal(t, Loading, st.Status)
	assert.Equal(t, "https://cdn.example.com/new.mp4", st.PlayableURL)
	assert.Zero(t, st.DurationSeconds)
	assert.Nil(t, st.LastError)
}

func TestController_SourceChangeDuringPlay(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()
	c, el, _ := newTestController()
	el.gate = make(chan struct{})
	gen := c.SetSource("https://cdn.example.com/a.mp4")
	require.NoError(t, c.HandleLoadedMetadata(ctx, gen, 60))

	done := make(chan error)
	go func() { done <- c.TogglePlay(ctx) }()
	require.Eventually(t, func() bool {
		ops := el.ops()
		return len(ops) > 0 && ops[len(ops)-1] == "play"
	}, time.Second, time.Millisecond)

	c.SetSource("https://cdn.example.com/b.mp4")
	close(el.gate)
	require.NoError(t, <-done)
	assert.Equal(t, Loading, c.State().Status)
}

func TestController_Seek(t *testing.T) {
	ctx := context.Background()
	c, el, _ := newTestController()

	// unknown duration
	c.Seek(10)
	assert.Empty(t, el.ops())

	gen := c.SetSource("https://cdn.example.com/a.mp4")
	c.Seek(10)
	assert.Zero(t, c.State().PositionSeconds)

	require.NoError(t, c.HandleLoadedMetadata(ctx, gen, 100))
	for _, tt := range []struct {
		delta float64
		want  float64
	}{
		{10, 10},
		{-25, 0},
		{250, 100},
		{-0.5, 99.5},
		{1e9, 100},
		{-1e9, 0},
	} {
		c.Seek(tt.delta)
		pos := c.State().PositionSeconds
		assert.Equal(t, tt.want, pos)
		assert.True(t, pos >= 0 && pos <= 100)
	}
}

func TestController_NonFiniteDuration(t *testing.T) {
	ctx := context.Background()
	for _, duration := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		c, el, _ := newTestController()
		gen := c.SetSource("https://cdn.example.com/live.m3u8")
		require.NoError(t, c.HandleLoadedMetadata(ctx, gen, duration))

		state := c.State()
		assert.Equal(t, Paused, state.Status)
		assert.Zero(t, state.DurationSeconds)

		c.Seek(30)
		assert.Zero(t, c.State().PositionSeconds)
		assert.NotContains(t, el.ops(), "seek")

		c.HandleTimeUpdate(gen, math.Inf(1))
		assert.Zero(t, c.State().PositionSeconds)
		c.HandleTimeUpdate(gen, 12)
		assert.Equal(t, 12.0, c.State().PositionSeconds)

		_, err := json.Marshal(c.State())
		assert.NoError(t, err)
	}
}

func TestController_ToggleMute(t *testing.T) {
	c, el, rec := newTestController()
	c.ToggleMute()
	assert.True(t, c.State().IsMuted)
	assert.Equal(t, Idle, c.State().Status)

	c.SetSource("https://cdn.example.com/a.mp4")
	assert.True(t, c.State().IsMuted, "mute survives a source change")
	c.ToggleMute()
	assert.False(t, c.State().IsMuted)

	assert.Len(t, rec.states, 3)
	assert.Equal(t, []string{"mute", "load", "mute"}, el.ops())
}

func TestController_Unsubscribe(t *testing.T) {
	c, _, rec := newTestController()
	other := &recorder{}
	cancel := c.Subscribe(other.observe)

	c.SetSource("a")
	cancel()
	c.ToggleMute()

	assert.Len(t, rec.states, 2)
	assert.Len(t, other.states, 1)
}
