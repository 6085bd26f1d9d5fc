package video

import (
	"context"
	"errors"
	"time"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/driver"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/logging"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/metrics"
	"go.elastic.co/apm"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const publicURLCachePrefix = "video:public_url:"

// Options caller context of a resolution
type Options struct {
	Categories []string `json:"categories,omitempty"`
}

// Resolution always carries a renderable source, Notice is set when a fallback replaced the requested video
type Resolution struct {
	Ref        string         `json:"ref"`
	Source     ResolvedSource `json:"source"`
	Categories []string       `json:"categories,omitempty"`
	Notice     *Error         `json:"notice,omitempty"`
}

// PublicURLProvider turns a storage key into a public url
type PublicURLProvider interface {
	GetPublicURL(ctx context.Context, key string) (string, error)
}

// SourceResolver ...
type SourceResolver interface {
	Resolve(ctx context.Context, ref string, opts Options) Resolution
}

// ResolverConfig ...
type ResolverConfig struct {
	FallbackURL   string
	LocalPrefixes []string
	CacheTTL      time.Duration
}

// Resolver turns raw references into playable sources.
// Lookups of the same storage key share one in-flight request.
type Resolver struct {
	Storage PublicURLProvider // nil when no remote storage is configured
	Cache   driver.KeyValueDB // optional
	cfg     ResolverConfig
	group   singleflight.Group
}

var _ SourceResolver = &Resolver{}

func NewResolver(storage PublicURLProvider, cache driver.KeyValueDB, cfg ResolverConfig) *Resolver {
	return &Resolver{Storage: storage, Cache: cache, cfg: cfg}
}

// Resolve never fails, unresolvable references end on the fallback asset
func (r *Resolver) Resolve(ctx context.Context, ref string, opts Options) Resolution {
	apmSpan, ctx := apm.StartSpan(ctx, "Resolver.Resolve", "service")
	defer apmSpan.End()

	res := Resolution{Ref: ref, Categories: opts.Categories}
	switch Classify(ref, r.cfg.LocalPrefixes) {
	case ShapeEmpty:
		res.Source = r.fallbackSource()
		metrics.SourceResolutions.WithLabelValues(string(NativeMedia), "fallback").Inc()
		return res
	case ShapeYouTube:
		id, ok := ExtractYouTubeID(ref)
		if !ok {
			res.Source = r.fallbackSource()
			metrics.SourceResolutions.WithLabelValues(string(NativeMedia), "fallback").Inc()
			return res
		}
		res.Source = ResolvedSource{Kind: YouTubeEmbed, PlayableURL: YouTubeEmbedURL(id), EmbedID: id}
	case ShapeLocal, ShapeAbsolute:
		res.Source = ResolvedSource{Kind: NativeMedia, PlayableURL: ref}
	default:
		url, err := r.publicURL(ctx, ref)
		if err != nil {
			logging.ExtractLoggerFromContext(ctx).Warn("storage lookup failed, using fallback",
				zap.String("video.ref", ref), zap.Error(err))
			res.Source = r.fallbackSource()
			res.Notice = &Error{Kind: SourceResolutionFailure, Message: MessageSourceResolutionFailure, Ref: ref, Err: err}
			metrics.SourceResolutions.WithLabelValues(string(NativeMedia), "fallback").Inc()
			return res
		}
		res.Source = ResolvedSource{Kind: NativeMedia, PlayableURL: url}
	}
	metrics.SourceResolutions.WithLabelValues(string(res.Source.Kind), "ok").Inc()
	return res
}

func (r *Resolver) fallbackSource() ResolvedSource {
	return ResolvedSource{Kind: NativeMedia, PlayableURL: r.cfg.FallbackURL}
}

func (r *Resolver) publicURL(ctx context.Context, key string) (string, error) {
	if r.Storage == nil {
		return "", ErrCatalogUnavailable
	}
	if r.Cache != nil {
		if url, err := r.Cache.Get(ctx, publicURLCachePrefix+key); err == nil {
			return url, nil
		} else if !errors.Is(err, driver.ErrKeyNotFound) {
			logging.ExtractLoggerFromContext(ctx).Debug("public url cache unavailable", zap.Error(err))
		}
	}

	// the shared lookup outlives any single caller, each caller still honours its own ctx
	ch := r.group.DoChan(key, func() (interface{}, error) {
		lookupCtx := context.WithoutCancel(ctx)
		url, err := r.Storage.GetPublicURL(lookupCtx, key)
		if err != nil {
			return "", err
		}
		if r.Cache != nil && r.cfg.CacheTTL > 0 {
			if err := r.Cache.SetEX(lookupCtx, publicURLCachePrefix+key, url, r.cfg.CacheTTL); err != nil {
				logging.ExtractLoggerFromContext(ctx).Debug("cache public url", zap.Error(err))
			}
		}
		return url, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}
