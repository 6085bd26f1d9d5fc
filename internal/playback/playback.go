package playback

import (
	"context"
)

// Status of a playback session
type Status int

const (
	Idle Status = iota
	Loading
	Playing
	Paused
	Ended
	Errored
)

var statusNames = [...]string{"idle", "loading", "playing", "paused", "ended", "errored"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// MarshalText ...
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrorKind closed set of playback failures, both recoverable through Retry
type ErrorKind int

const (
	// MediaLoadFailure the media element reported a load error
	MediaLoadFailure ErrorKind = iota + 1
	// PlaybackStartRejected the host refused to start playback
	PlaybackStartRejected
)

func (k ErrorKind) String() string {
	switch k {
	case MediaLoadFailure:
		return "media_load_failure"
	case PlaybackStartRejected:
		return "playback_start_rejected"
	}
	return "unknown"
}

// MarshalText ...
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// user facing messages
const (
	MessageMediaLoadFailure      = "Failed to load video. Please check your connection or try a different video."
	MessagePlaybackStartRejected = "Could not start video playback. Try clicking play again."
)

// ErrorInfo last failure of a session, URL keeps the failing source for diagnostics
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	URL     string    `json:"url"`
	Detail  string    `json:"detail,omitempty"`
}

func (e *ErrorInfo) Error() string {
	if e.Detail != "" {
		return e.Message + " (" + e.Detail + ")"
	}
	return e.Message
}

// State observable playback state.
// PositionSeconds and DurationSeconds are only meaningful once Status has left Loading.
type State struct {
	Status          Status     `json:"status"`
	IsMuted         bool       `json:"is_muted"`
	PositionSeconds float64    `json:"position"`
	DurationSeconds float64    `json:"duration"`
	PlayableURL     string     `json:"playable_url"`
	Generation      uint64     `json:"generation"`
	LastError       *ErrorInfo `json:"last_error,omitempty"`
}

func (s State) equal(o State) bool {
	if s.LastError != o.LastError && (s.LastError == nil || o.LastError == nil || *s.LastError != *o.LastError) {
		return false
	}
	s.LastError, o.LastError = nil, nil
	return s == o
}

// MediaElement the media player driven by a Controller.
// Every load is tagged with a generation, the element reports events with the generation they belong to.
type MediaElement interface {
	Load(url string, generation uint64)
	// Play starts playback and blocks until the host accepted or rejected it
	Play(ctx context.Context, generation uint64) error
	Pause()
	SetCurrentTime(seconds float64)
	SetMuted(muted bool)
}
