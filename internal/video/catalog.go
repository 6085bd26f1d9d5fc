package video

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/logging"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// CatalogConfig ...
type CatalogConfig struct {
	BaseURL string
	APIKey  string
	Bucket  string
	Table   string
	Timeout time.Duration
}

// RemoteCatalog client of a postgrest style content table plus public object storage
type RemoteCatalog struct {
	cfg    CatalogConfig
	Client *http.Client
}

var _ Catalog = &RemoteCatalog{}

// NewRemoteCatalog returns nil when no base url is configured
func NewRemoteCatalog(cfg CatalogConfig) *RemoteCatalog {
	if cfg.BaseURL == "" {
		return nil
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteCatalog{cfg: cfg, Client: &http.Client{Timeout: timeout}}
}

// StatusError non 2xx response of the catalog
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog %s %s: unexpected status %d", e.Method, e.URL, e.Code)
}

func (rc *RemoteCatalog) newRequest(ctx context.Context, method, target string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	if rc.cfg.APIKey != "" {
		req.Header.Set("apikey", rc.cfg.APIKey)
		req.Header.Set("Authorization", "Bearer "+rc.cfg.APIKey)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (rc *RemoteCatalog) queryVideos(ctx context.Context, params url.Values) ([]*RemoteVideo, error) {
	target := rc.cfg.BaseURL + "/rest/v1/" + url.PathEscape(rc.cfg.Table) + "?" + params.Encode()
	req, err := rc.newRequest(ctx, http.MethodGet, target)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := rc.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog query: %w", err)
	}
	defer resp.Body.Close()
	logging.ExtractLoggerFromContext(ctx).Debug("catalog query",
		zap.String("url.full", target),
		zap.Int("http.response.status_code", resp.StatusCode),
		zap.Duration("event.duration", time.Since(start)))

	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Method: http.MethodGet, URL: target, Code: resp.StatusCode}
	}
	var videos []*RemoteVideo
	if err := json.NewDecoder(resp.Body).Decode(&videos); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	return videos, nil
}

// ListVideos newest first
func (rc *RemoteCatalog) ListVideos(ctx context.Context) ([]*RemoteVideo, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "RemoteCatalog.ListVideos", "external")
	defer apmSpan.End()

	return rc.queryVideos(ctx, url.Values{
		"select": {"*"},
		"order":  {"created_at.desc"},
	})
}

// GetVideoByID returns ErrVideoNotFound when the catalog has no such record
func (rc *RemoteCatalog) GetVideoByID(ctx context.Context, id string) (*RemoteVideo, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "RemoteCatalog.GetVideoByID", "external")
	defer apmSpan.End()

	videos, err := rc.queryVideos(ctx, url.Values{
		"select": {"*"},
		"id":     {"eq." + id},
	})
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, ErrVideoNotFound
	}
	return videos[0], nil
}

// GetPublicURL builds the public object url of key and checks that it exists
func (rc *RemoteCatalog) GetPublicURL(ctx context.Context, key string) (string, error) {
	apmSpan, ctx := apm.StartSpan(ctx, "RemoteCatalog.GetPublicURL", "external")
	defer apmSpan.End()

	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	target := rc.cfg.BaseURL + "/storage/v1/object/public/" + url.PathEscape(rc.cfg.Bucket) + "/" + strings.Join(segments, "/")

	req, err := rc.newRequest(ctx, http.MethodHead, target)
	if err != nil {
		return "", err
	}
	resp, err := rc.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("catalog storage: %w", err)
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		return "", fmt.Errorf("storage key %q: %w", key, ErrVideoNotFound)
	case resp.StatusCode/100 != 2:
		return "", &StatusError{Method: http.MethodHead, URL: target, Code: resp.StatusCode}
	}
	return target, nil
}
