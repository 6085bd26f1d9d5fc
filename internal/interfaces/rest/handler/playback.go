package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	infra "github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/logging"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/metrics"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/uuid"
	"github.com/Jojopunk/elevate360-skill-builder/internal/playback"
	"github.com/Jojopunk/elevate360-skill-builder/internal/video"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// playback protocol message types
const (
	// client to server
	msgSource         = "source"
	msgTogglePlay     = "toggle_play"
	msgSeek           = "seek"
	msgToggleMute     = "toggle_mute"
	msgRetry          = "retry"
	msgLoadedMetadata = "loadedmetadata"
	msgTimeUpdate     = "timeupdate"
	msgEnded          = "ended"
	msgError          = "error"
	msgPlayResult     = "play_result"

	// server to client
	msgResolved = "resolved"
	msgState    = "state"
	msgCommand  = "command"
)

// media element commands
const (
	cmdLoad  = "load"
	cmdPlay  = "play"
	cmdPause = "pause"
	cmdSeek  = "seek"
	cmdMute  = "mute"
)

type clientMessage struct {
	Type       string   `json:"type"`
	Ref        string   `json:"ref"`
	Categories []string `json:"categories"`
	Autoplay   *bool    `json:"autoplay"`
	Delta      float64  `json:"delta"`
	Gen        uint64   `json:"gen"`
	Duration   float64  `json:"duration"`
	Position   float64  `json:"position"`
	Message    string   `json:"message"`
	OK         bool     `json:"ok"`
}

type serverMessage struct {
	Type     string                `json:"type"`
	Session  string                `json:"session,omitempty"`
	Source   *video.ResolvedSource `json:"source,omitempty"`
	Notice   *video.Error          `json:"notice,omitempty"`
	State    *playback.State       `json:"state,omitempty"`
	Cmd      string                `json:"cmd,omitempty"`
	Gen      uint64                `json:"gen,omitempty"`
	URL      string                `json:"url,omitempty"`
	Position *float64              `json:"position,omitempty"`
	Muted    *bool                 `json:"muted,omitempty"`
}

// errPlayRejected the client refused to start playback without saying why
var errPlayRejected = errors.New("playback rejected by the client")

// DefaultPlayTimeout how long a play command waits for its play_result
const DefaultPlayTimeout = 15 * time.Second

// sessionQueueSize frames buffered for the session worker, frames beyond it are dropped
const sessionQueueSize = 32

// wsElement the client side media element, driven through command frames
type wsElement struct {
	conn        *infra.WSConn
	playTimeout time.Duration

	mu      sync.Mutex
	pending map[uint64]chan error // play requests waiting for a play_result
}

var _ playback.MediaElement = &wsElement{}

func newWSElement(conn *infra.WSConn, playTimeout time.Duration) *wsElement {
	return &wsElement{conn: conn, playTimeout: playTimeout, pending: make(map[uint64]chan error)}
}

func (el *wsElement) command(msg serverMessage) error {
	msg.Type = msgCommand
	return el.conn.WriteJSON(msg)
}

func (el *wsElement) Load(url string, generation uint64) {
	el.command(serverMessage{Cmd: cmdLoad, Gen: generation, URL: url})
}

// Play asks the client to start playing and waits for its play_result, a silent client counts as a rejection
func (el *wsElement) Play(ctx context.Context, generation uint64) error {
	ch := make(chan error, 1)
	el.mu.Lock()
	el.pending[generation] = ch
	el.mu.Unlock()
	defer func() {
		el.mu.Lock()
		delete(el.pending, generation)
		el.mu.Unlock()
	}()

	if err := el.command(serverMessage{Cmd: cmdPlay, Gen: generation}); err != nil {
		return err
	}
	timer := time.NewTimer(el.playTimeout)
	defer timer.Stop()
	select {
	case err := <-ch:
		return err
	case <-timer.C:
		return fmt.Errorf("no play_result within %s", el.playTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// settle delivers a play_result to the waiting Play call, results nobody waits for are dropped
func (el *wsElement) settle(generation uint64, ok bool, message string) {
	el.mu.Lock()
	ch := el.pending[generation]
	el.mu.Unlock()
	if ch == nil {
		return
	}
	var err error
	if !ok {
		err = errPlayRejected
		if message != "" {
			err = errors.New(message)
		}
	}
	select {
	case ch <- err:
	default:
	}
}

func (el *wsElement) Pause() {
	el.command(serverMessage{Cmd: cmdPause})
}

func (el *wsElement) SetCurrentTime(seconds float64) {
	el.command(serverMessage{Cmd: cmdSeek, Position: &seconds})
}

func (el *wsElement) SetMuted(muted bool) {
	el.command(serverMessage{Cmd: cmdMute, Muted: &muted})
}

// PlaybackHandler opens playback sessions over websocket
type PlaybackHandler struct {
	Resolver    video.SourceResolver
	IDGenerator uuid.Generator
	PlayTimeout time.Duration
}

// NewPlaybackHandler ...
func NewPlaybackHandler(Resolver video.SourceResolver, IDGenerator uuid.Generator) *PlaybackHandler {
	return &PlaybackHandler{Resolver, IDGenerator, DefaultPlayTimeout}
}

// PlaybackSession one websocket connection driving one Controller.
//
// play_result frames are settled by the reader directly, source frames resolve concurrently so a
// newer reference supersedes an older lookup, every other frame is handled in order by one worker.
// The reader never waits on the worker: while the queue is full incoming frames are dropped.
type PlaybackSession struct {
	ID string

	conn        *infra.WSConn
	element     *wsElement
	controller  *playback.Controller
	sources     *video.Session
	logger      *zap.Logger
	unsubscribe func()

	ctx    context.Context
	cancel context.CancelFunc
	jobs   chan clientMessage
	wg     sync.WaitGroup
}

var _ infra.WSHandler = &PlaybackSession{}

// NewSession is the per connection factory of Websocket.WithHeartbeat, ?autoplay=false disables autoplay
func (ph *PlaybackHandler) NewSession(c echo.Context, conn *infra.WSConn) infra.WSHandler {
	id, err := ph.IDGenerator.Generate()
	if err != nil {
		id = "unknown"
	}
	// the session outlives the upgrade request
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request().Context()))
	logger := logging.ExtractLoggerFromContext(ctx).With(zap.String("session.id", id))

	playTimeout := ph.PlayTimeout
	if playTimeout <= 0 {
		playTimeout = DefaultPlayTimeout
	}
	el := newWSElement(conn, playTimeout)
	s := &PlaybackSession{
		ID:         id,
		conn:       conn,
		element:    el,
		controller: playback.NewController(el, playback.WithAutoplay(c.QueryParam("autoplay") != "false")),
		sources:    video.NewSession(ph.Resolver),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		jobs:       make(chan clientMessage, sessionQueueSize),
	}
	s.unsubscribe = s.controller.Subscribe(func(state playback.State) {
		s.send(serverMessage{Type: msgState, State: &state})
	})

	state := s.controller.State()
	s.send(serverMessage{Type: msgState, Session: id, State: &state})

	s.wg.Add(1)
	go s.work()
	metrics.PlaybackSessions.Inc()
	logger.Debug("playback session opened")
	return s
}

func (s *PlaybackSession) send(msg serverMessage) {
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Debug("failed to write playback frame", zap.String("type", msg.Type), zap.Error(err))
	}
}

// HandleMessage implements infra.WSHandler
func (s *PlaybackSession) HandleMessage(conn *infra.WSConn) error {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Debug("malformed playback frame", zap.Error(err))
		return nil
	}

	switch msg.Type {
	case msgPlayResult:
		s.element.settle(msg.Gen, msg.OK, msg.Message)
	case msgSource:
		s.resolve(msg)
	default:
		select {
		case s.jobs <- msg:
		default:
			s.logger.Warn("playback queue full, frame dropped", zap.String("type", msg.Type))
		}
	}
	return nil
}

func (s *PlaybackSession) resolve(msg clientMessage) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sources.Resolve(s.ctx, msg.Ref, video.Options{Categories: msg.Categories}, func(res video.Resolution) {
			s.send(serverMessage{Type: msgResolved, Source: &res.Source, Notice: res.Notice})
			if msg.Autoplay != nil {
				s.controller.SetAutoplay(*msg.Autoplay)
			}
			// youtube sources play in the client's embedded player
			if res.Source.Kind == video.NativeMedia {
				s.controller.SetSource(res.Source.PlayableURL)
			}
		})
	}()
}

func (s *PlaybackSession) work() {
	defer s.wg.Done()
	for msg := range s.jobs {
		if err := s.dispatch(msg); err != nil && s.ctx.Err() == nil {
			s.logger.Debug("playback command failed", zap.String("type", msg.Type), zap.Error(err))
		}
	}
}

func (s *PlaybackSession) dispatch(msg clientMessage) error {
	ctrl := s.controller
	switch msg.Type {
	case msgTogglePlay:
		return ctrl.TogglePlay(s.ctx)
	case msgSeek:
		ctrl.Seek(msg.Delta)
	case msgToggleMute:
		ctrl.ToggleMute()
	case msgRetry:
		ctrl.Retry()
	case msgLoadedMetadata:
		return ctrl.HandleLoadedMetadata(s.ctx, msg.Gen, msg.Duration)
	case msgTimeUpdate:
		ctrl.HandleTimeUpdate(msg.Gen, msg.Position)
	case msgEnded:
		ctrl.HandleEnded(msg.Gen)
	case msgError:
		ctrl.HandleError(msg.Gen, msg.Message)
	default:
		s.logger.Debug("unknown playback frame", zap.String("type", msg.Type))
	}
	return nil
}

// Close implements infra.WSHandler, it returns once every goroutine of the session exited
func (s *PlaybackSession) Close() {
	s.cancel()
	s.sources.Close()
	close(s.jobs)
	s.wg.Wait()
	s.unsubscribe()
	s.controller.Close()
	metrics.PlaybackSessions.Dec()
	s.logger.Debug("playback session closed")
}
