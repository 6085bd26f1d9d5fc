package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/logging"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/metrics"
	"github.com/google/renameio/v2"
	"go.elastic.co/apm"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

var downloadIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// DownloadConfig ...
type DownloadConfig struct {
	Dir        string // filesystem directory of downloaded files
	PublicPath string // url path the directory is served under
}

type VideoUseCaseImpl struct {
	VideoRepository VideoRepository
	Catalog         Catalog // nil when no remote catalog is configured
	Resolver        SourceResolver
	HTTPClient      *http.Client
	Downloads       DownloadConfig
	Now             func() time.Time
}

var _ VideoUseCase = &VideoUseCaseImpl{}

// NewVideoUseCase ...
func NewVideoUseCase(
	VideoRepository VideoRepository,
	Catalog Catalog,
	Resolver SourceResolver,
	Downloads DownloadConfig,
) *VideoUseCaseImpl {
	return &VideoUseCaseImpl{
		VideoRepository: VideoRepository,
		Catalog:         Catalog,
		Resolver:        Resolver,
		HTTPClient:      &http.Client{Timeout: 10 * time.Minute},
		Downloads:       Downloads,
		Now:             time.Now,
	}
}

// ListVideos remote catalog first, the local store when the catalog is unreachable.
// query filters case-insensitively over title, description and categories.
func (vu *VideoUseCaseImpl) ListVideos(ctx context.Context, query string) ([]Meta, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "VideoUseCaseImpl.ListVideos", "service")
	defer apmSpan.End()

	local, err := vu.VideoRepository.ListVideos(ctx)
	if err != nil {
		return nil, err
	}

	var videos []Video
	if remote, err := vu.listRemote(ctx); err == nil {
		for _, v := range remote {
			videos = append(videos, v)
		}
	} else {
		if !errors.Is(err, ErrCatalogUnavailable) {
			logging.ExtractLoggerFromContext(ctx).Warn("remote catalog unreachable, listing local videos", zap.Error(err))
		}
		for _, v := range local {
			videos = append(videos, v)
		}
	}

	downloads := indexDownloads(local)
	result := make([]Meta, 0, len(videos))
	matches := newMatcher(query)
	for _, v := range videos {
		m := downloads.apply(v.Meta())
		if matches(m) {
			result = append(result, m)
		}
	}
	return result, nil
}

func (vu *VideoUseCaseImpl) listRemote(ctx context.Context) ([]*RemoteVideo, error) {
	if vu.Catalog == nil {
		return nil, ErrCatalogUnavailable
	}
	return vu.Catalog.ListVideos(ctx)
}

// GetVideo remote catalog by id, then the local store by id, then by url match
func (vu *VideoUseCaseImpl) GetVideo(ctx context.Context, id string) (Meta, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "VideoUseCaseImpl.GetVideo", "service")
	defer apmSpan.End()

	v, err := vu.findVideo(ctx, id)
	if err != nil {
		return Meta{}, err
	}
	return vu.withDownloadState(ctx, v.Meta())
}

func (vu *VideoUseCaseImpl) findVideo(ctx context.Context, id string) (Video, error) {
	if vu.Catalog != nil {
		remote, err := vu.Catalog.GetVideoByID(ctx, id)
		if err == nil {
			return remote, nil
		}
		if !errors.Is(err, ErrVideoNotFound) {
			logging.ExtractLoggerFromContext(ctx).Warn("remote catalog lookup failed, checking local store",
				zap.String("video.id", id), zap.Error(err))
		}
	}

	local, err := vu.VideoRepository.GetVideoByID(ctx, id)
	if err == nil {
		return local, nil
	}
	if !errors.Is(err, ErrVideoNotFound) {
		return nil, err
	}
	return vu.VideoRepository.FindByURLFragment(ctx, id)
}

func (vu *VideoUseCaseImpl) withDownloadState(ctx context.Context, m Meta) (Meta, error) {
	if m.Origin == OriginLocal {
		return m, nil
	}
	local, err := vu.VideoRepository.GetVideoByID(ctx, m.ID)
	if errors.Is(err, ErrVideoNotFound) {
		return m, nil
	}
	if err != nil {
		return m, err
	}
	return indexDownloads([]*LocalVideo{local}).apply(m), nil
}

// ListDownloaded videos available offline
func (vu *VideoUseCaseImpl) ListDownloaded(ctx context.Context) ([]Meta, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "VideoUseCaseImpl.ListDownloaded", "service")
	defer apmSpan.End()

	local, err := vu.VideoRepository.ListDownloaded(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]Meta, 0, len(local))
	for _, v := range local {
		result = append(result, v.Meta())
	}
	return result, nil
}

// Download stores the video under the download directory and records the local copy.
// Downloading an already downloaded video is a no-op.
func (vu *VideoUseCaseImpl) Download(ctx context.Context, id string) (Meta, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "VideoUseCaseImpl.Download", "service")
	defer apmSpan.End()

	if !downloadIDPattern.MatchString(id) {
		return Meta{}, ErrVideoNotFound
	}
	v, err := vu.findVideo(ctx, id)
	if err != nil {
		return Meta{}, err
	}
	m, err := vu.withDownloadState(ctx, v.Meta())
	if err != nil {
		return Meta{}, err
	}
	if m.IsDownloaded {
		return m, nil
	}
	if !downloadIDPattern.MatchString(m.ID) {
		return Meta{}, fmt.Errorf("%w: invalid id %q", ErrNotDownloadable, m.ID)
	}

	res := vu.Resolver.Resolve(ctx, m.PlayableRef, Options{Categories: m.Categories})
	switch {
	case res.Notice != nil:
		metrics.VideoDownloads.WithLabelValues("unavailable").Inc()
		return Meta{}, fmt.Errorf("%w: %v", ErrNotDownloadable, res.Notice)
	case res.Source.Kind == YouTubeEmbed:
		metrics.VideoDownloads.WithLabelValues("unsupported").Inc()
		return Meta{}, fmt.Errorf("%w: youtube videos play online only", ErrNotDownloadable)
	case !strings.HasPrefix(strings.ToLower(res.Source.PlayableURL), "http"):
		metrics.VideoDownloads.WithLabelValues("unsupported").Inc()
		return Meta{}, fmt.Errorf("%w: %s is not a remote url", ErrNotDownloadable, res.Source.PlayableURL)
	}

	file := m.ID + ".mp4"
	if err := vu.fetch(ctx, res.Source.PlayableURL, filepath.Join(vu.Downloads.Dir, file)); err != nil {
		metrics.VideoDownloads.WithLabelValues("failed").Inc()
		return Meta{}, err
	}
	localPath := path.Join(vu.Downloads.PublicPath, file)

	if vu.hasLocal(ctx, m.ID) {
		err = vu.VideoRepository.MarkDownloaded(ctx, m.ID, localPath)
	} else {
		err = vu.VideoRepository.SaveVideo(ctx, &LocalVideo{
			ID:              m.ID,
			Title:           m.Title,
			Description:     m.Description,
			VideoURL:        m.PlayableRef,
			ThumbnailURL:    m.ThumbnailURL,
			Duration:        m.DurationSeconds,
			SkillCategories: m.Categories,
			LocalFilePath:   localPath,
			IsDownloaded:    true,
			CreatedAt:       vu.Now().UnixMilli(),
		})
	}
	if err != nil {
		metrics.VideoDownloads.WithLabelValues("failed").Inc()
		return Meta{}, err
	}

	metrics.VideoDownloads.WithLabelValues("ok").Inc()
	m.IsDownloaded = true
	m.PlayableRef = localPath
	return m, nil
}

func (vu *VideoUseCaseImpl) hasLocal(ctx context.Context, id string) bool {
	_, err := vu.VideoRepository.GetVideoByID(ctx, id)
	return err == nil
}

// fetch writes the body of url to dest atomically, dest is untouched on failure
func (vu *VideoUseCaseImpl) fetch(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := vu.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("download video: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("download video: unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	pending, err := renameio.NewPendingFile(dest, renameio.WithPermissions(0644))
	if err != nil {
		return fmt.Errorf("create pending video file: %w", err)
	}
	defer pending.Cleanup()

	n, err := io.Copy(pending, resp.Body)
	if err != nil {
		return fmt.Errorf("write video data: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit video file: %w", err)
	}
	logging.ExtractLoggerFromContext(ctx).Info("video downloaded",
		zap.String("file.path", dest), zap.Int64("file.size", n))
	return nil
}

// Resolve ...
func (vu *VideoUseCaseImpl) Resolve(ctx context.Context, ref string, opts Options) Resolution {
	return vu.Resolver.Resolve(ctx, ref, opts)
}

type downloadIndex map[string]*LocalVideo

func indexDownloads(local []*LocalVideo) downloadIndex {
	idx := make(downloadIndex)
	for _, v := range local {
		if !v.IsDownloaded {
			continue
		}
		idx[v.ID] = v
		if v.VideoURL != "" {
			idx["url:"+v.VideoURL] = v
		}
	}
	return idx
}

// apply marks m as downloaded when a local copy exists under its id or original url
func (idx downloadIndex) apply(m Meta) Meta {
	v, ok := idx[m.ID]
	if !ok {
		v, ok = idx["url:"+m.PlayableRef]
	}
	if ok {
		m.IsDownloaded = true
		if v.LocalFilePath != "" {
			m.PlayableRef = v.LocalFilePath
		}
	}
	return m
}

func newMatcher(query string) func(Meta) bool {
	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(query))
	if q == "" {
		return func(Meta) bool { return true }
	}
	return func(m Meta) bool {
		if strings.Contains(fold.String(m.Title), q) || strings.Contains(fold.String(m.Description), q) {
			return true
		}
		for _, c := range m.Categories {
			if strings.Contains(fold.String(c), q) {
				return true
			}
		}
		return false
	}
}
