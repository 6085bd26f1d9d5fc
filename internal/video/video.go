package video

import (
	"context"
	"errors"
	"time"
)

// SourceKind how a resolved source is rendered
type SourceKind string

const (
	// YouTubeEmbed played through the youtube iframe player
	YouTubeEmbed SourceKind = "youtube_embed"
	// NativeMedia played by a native media element
	NativeMedia SourceKind = "native_media"
)

// ResolvedSource concrete playable source of a video reference, never mutated once produced
type ResolvedSource struct {
	Kind        SourceKind `json:"kind"`
	PlayableURL string     `json:"playable_url"`
	EmbedID     string     `json:"embed_id,omitempty"`
}

// Origin where a video record came from
type Origin string

const (
	OriginRemote Origin = "remote"
	OriginLocal  Origin = "local"
)

// Meta normalized projection shared by every video variant
type Meta struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	DurationSeconds int      `json:"duration"`
	Categories      []string `json:"categories"`
	PlayableRef     string   `json:"playable_ref"`
	ThumbnailURL    string   `json:"thumbnail_url"`
	Origin          Origin   `json:"origin"`
	IsDownloaded    bool     `json:"is_downloaded"`
}

// Video is either a *RemoteVideo or a *LocalVideo
type Video interface {
	Meta() Meta
	isVideo()
}

// RemoteVideo a record of the remote media catalog
type RemoteVideo struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	VideoURL        string    `json:"video_url"`
	ThumbnailURL    *string   `json:"thumbnail_url"`
	Duration        int       `json:"duration"`
	SkillCategories []string  `json:"skill_categories"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (*RemoteVideo) isVideo() {}

// Meta ...
func (v *RemoteVideo) Meta() Meta {
	m := Meta{
		ID:              v.ID,
		Title:           v.Title,
		Description:     v.Description,
		DurationSeconds: v.Duration,
		Categories:      v.SkillCategories,
		PlayableRef:     v.VideoURL,
		Origin:          OriginRemote,
	}
	if v.ThumbnailURL != nil {
		m.ThumbnailURL = *v.ThumbnailURL
	}
	if m.Categories == nil {
		m.Categories = []string{}
	}
	return m
}

// LocalVideo a record of the local video store, seeded or downloaded
type LocalVideo struct {
	ID              string   `json:"id" yaml:"id" validate:"required"`
	Title           string   `json:"title" yaml:"title" validate:"required"`
	Description     string   `json:"description" yaml:"description"`
	VideoURL        string   `json:"video_url" yaml:"video_url" validate:"required"`
	ThumbnailURL    string   `json:"thumbnail_url" yaml:"thumbnail_url"`
	Duration        int      `json:"duration" yaml:"duration" validate:"gte=0"`
	SkillCategories []string `json:"skill_categories" yaml:"skill_categories"`
	LocalFilePath   string   `json:"local_file_path,omitempty" yaml:"-"`
	IsDownloaded    bool     `json:"is_downloaded" yaml:"-"`
	CreatedAt       int64    `json:"created_at" yaml:"-"`
}

func (*LocalVideo) isVideo() {}

// Meta prefers the downloaded copy over the original url
func (v *LocalVideo) Meta() Meta {
	m := Meta{
		ID:              v.ID,
		Title:           v.Title,
		Description:     v.Description,
		DurationSeconds: v.Duration,
		Categories:      v.SkillCategories,
		PlayableRef:     v.VideoURL,
		ThumbnailURL:    v.ThumbnailURL,
		Origin:          OriginLocal,
		IsDownloaded:    v.IsDownloaded,
	}
	if v.IsDownloaded && v.LocalFilePath != "" {
		m.PlayableRef = v.LocalFilePath
	}
	if m.Categories == nil {
		m.Categories = []string{}
	}
	return m
}

// ErrorKind closed set of video failures surfaced to users
type ErrorKind int

const (
	// SourceResolutionFailure storage lookup failed or the key is missing
	SourceResolutionFailure ErrorKind = iota + 1
)

func (k ErrorKind) String() string {
	switch k {
	case SourceResolutionFailure:
		return "source_resolution_failure"
	}
	return "unknown"
}

// MarshalText ...
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Error a non fatal video failure with a user facing message
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Ref     string    `json:"-"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// MessageSourceResolutionFailure shown when a demo video replaces an unavailable one
const MessageSourceResolutionFailure = "Video unavailable, playing a demo video instead."

var (
	// ErrVideoNotFound no video with the requested id
	ErrVideoNotFound = errors.New("video not found")
	// ErrNotDownloadable the video can not be stored for offline viewing
	ErrNotDownloadable = errors.New("video can not be downloaded")
	// ErrCatalogUnavailable the remote catalog is not configured
	ErrCatalogUnavailable = errors.New("remote catalog unavailable")
)

// Catalog remote media catalog
type Catalog interface {
	ListVideos(ctx context.Context) ([]*RemoteVideo, error)
	GetVideoByID(ctx context.Context, id string) (*RemoteVideo, error)
	GetPublicURL(ctx context.Context, key string) (string, error)
}

// VideoRepository local video store
type VideoRepository interface {
	ListVideos(ctx context.Context) ([]*LocalVideo, error)
	ListDownloaded(ctx context.Context) ([]*LocalVideo, error)
	GetVideoByID(ctx context.Context, id string) (*LocalVideo, error)
	FindByURLFragment(ctx context.Context, fragment string) (*LocalVideo, error)
	CountVideos(ctx context.Context) (int, error)
	SaveVideo(ctx context.Context, v *LocalVideo) error
	MarkDownloaded(ctx context.Context, id, localFilePath string) error
}

type VideoUseCase interface {
	ListVideos(ctx context.Context, query string) ([]Meta, error)
	GetVideo(ctx context.Context, id string) (Meta, error)
	ListDownloaded(ctx context.Context) ([]Meta, error)
	Download(ctx context.Context, id string) (Meta, error)
	Resolve(ctx context.Context, ref string, opts Options) Resolution
}
