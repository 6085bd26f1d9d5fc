package video

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/driver"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFallback = "https://cdn.example.com/demo.mp4"

type fakeStorage struct {
	calls   atomic.Int32
	urls    map[string]string
	release chan struct{} // when set, lookups block until it is closed
}

func (fs *fakeStorage) GetPublicURL(ctx context.Context, key string) (string, error) {
	fs.calls.Add(1)
	if fs.release != nil {
		select {
		case <-fs.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if url, ok := fs.urls[key]; ok {
		return url, nil
	}
	return "", ErrVideoNotFound
}

func newTestResolver(storage PublicURLProvider, cache driver.KeyValueDB) *Resolver {
	return NewResolver(storage, cache, ResolverConfig{
		FallbackURL:   testFallback,
		LocalPrefixes: testPrefixes,
		CacheTTL:      time.Minute,
	})
}

func TestResolver_Resolve(t *testing.T) {
	storage := &fakeStorage{urls: map[string]string{
		"videos/communication.mp4": "https://storage.example.com/videos/communication.mp4",
	}}
	r := newTestResolver(storage, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		ref    string
		want   ResolvedSource
		notice bool
	}{
		{"empty", "", ResolvedSource{Kind: NativeMedia, PlayableURL: testFallback}, false},
		{"youtube", "https://youtu.be/dQw4w9WgXcQ",
			ResolvedSource{Kind: YouTubeEmbed, PlayableURL: "https://www.youtube.com/embed/dQw4w9WgXcQ", EmbedID: "dQw4w9WgXcQ"}, false},
		{"malformed youtube", "https://www.youtube.com/watch?v=nope", ResolvedSource{Kind: NativeMedia, PlayableURL: testFallback}, false},
		{"local", "/local/videos/x.mp4", ResolvedSource{Kind: NativeMedia, PlayableURL: "/local/videos/x.mp4"}, false},
		{"absolute", "https://example.com/videos/communication",
			ResolvedSource{Kind: NativeMedia, PlayableURL: "https://example.com/videos/communication"}, false},
		{"storage key", "videos/communication.mp4",
			ResolvedSource{Kind: NativeMedia, PlayableURL: "https://storage.example.com/videos/communication.mp4"}, false},
		{"missing key", "videos/missing.mp4", ResolvedSource{Kind: NativeMedia, PlayableURL: testFallback}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(ctx, tt.ref, Options{Categories: []string{"communication"}})
			assert.Equal(t, tt.want, res.Source)
			assert.Equal(t, tt.ref, res.Ref)
			assert.Equal(t, []string{"communication"}, res.Categories)
			if !tt.notice {
				assert.Nil(t, res.Notice)
				return
			}
			require.NotNil(t, res.Notice)
			assert.Equal(t, SourceResolutionFailure, res.Notice.Kind)
			assert.Equal(t, MessageSourceResolutionFailure, res.Notice.Message)
			assert.True(t, errors.Is(res.Notice, ErrVideoNotFound))
		})
	}
}

func TestResolver_NoStorage(t *testing.T) {
	res := newTestResolver(nil, nil).Resolve(context.Background(), "videos/a.mp4", Options{})
	assert.Equal(t, testFallback, res.Source.PlayableURL)
	require.NotNil(t, res.Notice)
	assert.ErrorIs(t, res.Notice, ErrCatalogUnavailable)
}

func TestResolver_CachesPublicURL(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := driver.NewRedisClientWithAddr(mr.Addr(), "")
	t.Cleanup(func() { cache.Close() })

	storage := &fakeStorage{urls: map[string]string{"a.mp4": "https://storage.example.com/a.mp4"}}
	r := newTestResolver(storage, cache)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res := r.Resolve(ctx, "a.mp4", Options{})
		assert.Equal(t, "https://storage.example.com/a.mp4", res.Source.PlayableURL)
	}
	assert.EqualValues(t, 1, storage.calls.Load())

	cached, err := mr.Get(publicURLCachePrefix + "a.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://storage.example.com/a.mp4", cached)
	assert.Equal(t, time.Minute, mr.TTL(publicURLCachePrefix+"a.mp4"))

	// failures are not cached
	r.Resolve(ctx, "missing.mp4", Options{})
	r.Resolve(ctx, "missing.mp4", Options{})
	assert.EqualValues(t, 3, storage.calls.Load())
	assert.False(t, mr.Exists(publicURLCachePrefix+"missing.mp4"))
}

func TestResolver_CoalescesLookups(t *testing.T) {
	storage := &fakeStorage{
		urls:    map[string]string{"a.mp4": "https://storage.example.com/a.mp4"},
		release: make(chan struct{}),
	}
	r := newTestResolver(storage, nil)

	const callers = 8
	var wg, ready sync.WaitGroup
	results := make([]Resolution, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		ready.Add(1)
		go func(i int) {
			defer wg.Done()
			ready.Done()
			results[i] = r.Resolve(context.Background(), "a.mp4", Options{})
		}(i)
	}
	ready.Wait()
	require.Eventually(t, func() bool { return storage.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(storage.release)
	wg.Wait()

	assert.EqualValues(t, 1, storage.calls.Load())
	for _, res := range results {
		assert.Equal(t, "https://storage.example.com/a.mp4", res.Source.PlayableURL)
	}
}

func TestResolver_CallerCancellation(t *testing.T) {
	storage := &fakeStorage{urls: map[string]string{"a.mp4": "u"}, release: make(chan struct{})}
	defer close(storage.release)
	r := newTestResolver(storage, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := r.Resolve(ctx, "a.mp4", Options{})
	assert.Equal(t, testFallback, res.Source.PlayableURL)
	require.NotNil(t, res.Notice)
	assert.ErrorIs(t, res.Notice, context.Canceled)
}
