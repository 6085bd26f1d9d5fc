package video

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	videos []*RemoteVideo
	err    error
}

func (fc *fakeCatalog) ListVideos(ctx context.Context) ([]*RemoteVideo, error) {
	return fc.videos, fc.err
}

func (fc *fakeCatalog) GetVideoByID(ctx context.Context, id string) (*RemoteVideo, error) {
	if fc.err != nil {
		return nil, fc.err
	}
	for _, v := range fc.videos {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, ErrVideoNotFound
}

func (fc *fakeCatalog) GetPublicURL(ctx context.Context, key string) (string, error) {
	return "", ErrVideoNotFound
}

func newTestVideoRepository(t *testing.T) *VideoSQL {
	t.Helper()
	ctx := context.Background()
	conn, err := driver.NewSQLiteConn(filepath.Join(t.TempDir(), "video.db"), &driver.DBConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(ctx) })
	require.NoError(t, driver.EnsureSchema(ctx, conn, Schema...))
	return NewVideoRepository(conn)
}

func seedLocal(t *testing.T, repo *VideoSQL, videos ...*LocalVideo) {
	t.Helper()
	for _, v := range videos {
		require.NoError(t, repo.SaveVideo(context.Background(), v))
	}
}

var (
	localCommunication = &LocalVideo{
		ID: "communication", Title: "Effective Communication Techniques",
		Description:     "Practical techniques to improve clarity, empathy and impact in your communication",
		VideoURL:        "https://example.com/videos/communication",
		Duration:        1105,
		SkillCategories: []string{"communication"},
		CreatedAt:       2,
	}
	localConflict = &LocalVideo{
		ID: "conflict-resolution", Title: "Conflict Resolution Strategies",
		Description:     "Learn how to address and resolve conflicts in a constructive manner",
		VideoURL:        "https://example.com/videos/conflict-resolution",
		Duration:        957,
		SkillCategories: []string{"conflict-resolution", "teamwork"},
		CreatedAt:       1,
	}
)

func TestVideoSQL(t *testing.T) {
	ctx := context.Background()
	repo := newTestVideoRepository(t)
	seedLocal(t, repo, localConflict, localCommunication)

	n, err := repo.CountVideos(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := repo.ListVideos(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "communication", list[0].ID)
	assert.Equal(t, []string{"conflict-resolution", "teamwork"}, list[1].SkillCategories)

	got, err := repo.FindByURLFragment(ctx, "conflict-res")
	require.NoError(t, err)
	assert.Equal(t, "conflict-resolution", got.ID)

	_, err = repo.FindByURLFragment(ctx, "%")
	assert.ErrorIs(t, err, ErrVideoNotFound)

	require.NoError(t, repo.MarkDownloaded(ctx, "communication", "/local/videos/communication.mp4"))
	require.NoError(t, repo.MarkDownloaded(ctx, "communication", "/local/videos/communication.mp4"))
	assert.ErrorIs(t, repo.MarkDownloaded(ctx, "missing", "/x"), ErrVideoNotFound)

	downloaded, err := repo.ListDownloaded(ctx)
	require.NoError(t, err)
	require.Len(t, downloaded, 1)
	assert.Equal(t, "/local/videos/communication.mp4", downloaded[0].Meta().PlayableRef)
	assert.True(t, downloaded[0].Meta().IsDownloaded)
}

func newTestUseCase(t *testing.T, catalog Catalog) (*VideoUseCaseImpl, *VideoSQL) {
	t.Helper()
	repo := newTestVideoRepository(t)
	uc := NewVideoUseCase(repo, catalog, newTestResolver(catalog, nil), DownloadConfig{
		Dir:        t.TempDir(),
		PublicPath: "/local/videos",
	})
	uc.Now = func() time.Time { return time.UnixMilli(1700000000000) }
	return uc, repo
}

func titles(metas []Meta) []string {
	result := make([]string, 0, len(metas))
	for _, m := range metas {
		result = append(result, m.Title)
	}
	return result
}

func TestListVideos_FallsBackToLocal(t *testing.T) {
	ctx := context.Background()
	uc, repo := newTestUseCase(t, &fakeCatalog{err: errors.New("connection refused")})
	seedLocal(t, repo, localCommunication, localConflict)

	all, err := uc.ListVideos(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Effective Communication Techniques", "Conflict Resolution Strategies"}, titles(all))

	found, err := uc.ListVideos(ctx, "  TEAMWORK ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Conflict Resolution Strategies"}, titles(found))

	found, err = uc.ListVideos(ctx, "EMPATHY")
	require.NoError(t, err)
	assert.Equal(t, []string{"Effective Communication Techniques"}, titles(found))

	none, err := uc.ListVideos(ctx, "cooking")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListVideos_MergesDownloadState(t *testing.T) {
	ctx := context.Background()
	remote := []*RemoteVideo{
		{ID: "r1", Title: "Remote Communication", VideoURL: "https://example.com/videos/communication", SkillCategories: []string{"communication"}},
		{ID: "r2", Title: "Remote Leadership", VideoURL: "https://example.com/videos/leadership"},
	}
	uc, repo := newTestUseCase(t, &fakeCatalog{videos: remote})
	downloaded := *localCommunication
	downloaded.IsDownloaded = true
	downloaded.LocalFilePath = "/local/videos/communication.mp4"
	seedLocal(t, repo, &downloaded)

	list, err := uc.ListVideos(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, OriginRemote, list[0].Origin)
	assert.True(t, list[0].IsDownloaded)
	assert.Equal(t, "/local/videos/communication.mp4", list[0].PlayableRef)
	assert.False(t, list[1].IsDownloaded)
	assert.Equal(t, []string{}, list[1].Categories)
}

func TestGetVideo_LookupOrder(t *testing.T) {
	ctx := context.Background()
	uc, repo := newTestUseCase(t, &fakeCatalog{videos: []*RemoteVideo{{ID: "r1", Title: "Remote"}}})
	seedLocal(t, repo, localCommunication, localConflict)

	m, err := uc.GetVideo(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, OriginRemote, m.Origin)

	m, err = uc.GetVideo(ctx, "communication")
	require.NoError(t, err)
	assert.Equal(t, OriginLocal, m.Origin)
	assert.Equal(t, 1105, m.DurationSeconds)

	// matched by url
	m, err = uc.GetVideo(ctx, "conflict-res")
	require.NoError(t, err)
	assert.Equal(t, "conflict-resolution", m.ID)

	_, err = uc.GetVideo(ctx, "nothing-here")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestDownload(t *testing.T) {
	ctx := context.Background()
	payload := []byte("not really an mp4")
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos/communication" {
			http.NotFound(w, r)
			return
		}
		w.Write(payload)
	}))
	t.Cleanup(media.Close)

	uc, repo := newTestUseCase(t, &fakeCatalog{videos: []*RemoteVideo{
		{ID: "r1", Title: "Remote Communication", VideoURL: media.URL + "/videos/communication"},
		{ID: "yt", Title: "Embedded", VideoURL: "https://youtu.be/dQw4w9WgXcQ"},
		{ID: "gone", Title: "Gone", VideoURL: media.URL + "/videos/gone"},
		{ID: "key", Title: "Stored", VideoURL: "videos/missing.mp4"},
	}})

	m, err := uc.Download(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, m.IsDownloaded)
	assert.Equal(t, "/local/videos/r1.mp4", m.PlayableRef)

	data, err := os.ReadFile(filepath.Join(uc.Downloads.Dir, "r1.mp4"))
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	stored, err := repo.GetVideoByID(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, stored.IsDownloaded)
	assert.Equal(t, media.URL+"/videos/communication", stored.VideoURL)
	assert.EqualValues(t, 1700000000000, stored.CreatedAt)

	again, err := uc.Download(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, m, again)

	downloaded, err := uc.ListDownloaded(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Remote Communication"}, titles(downloaded))

	for _, id := range []string{"yt", "key"} {
		_, err = uc.Download(ctx, id)
		assert.ErrorIs(t, err, ErrNotDownloadable, id)
	}

	_, err = uc.Download(ctx, "gone")
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(uc.Downloads.Dir, "gone.mp4"))
	assert.True(t, os.IsNotExist(statErr))

	_, err = uc.Download(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestDownload_LocalRecord(t *testing.T) {
	ctx := context.Background()
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("video"))
	}))
	t.Cleanup(media.Close)

	uc, repo := newTestUseCase(t, nil)
	local := *localConflict
	local.VideoURL = media.URL + "/videos/conflict-resolution"
	seedLocal(t, repo, &local)

	m, err := uc.Download(ctx, "conflict-resolution")
	require.NoError(t, err)
	assert.Equal(t, "/local/videos/conflict-resolution.mp4", m.PlayableRef)

	n, err := repo.CountVideos(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := uc.GetVideo(ctx, "conflict-resolution")
	require.NoError(t, err)
	assert.True(t, got.IsDownloaded)
	assert.Equal(t, "/local/videos/conflict-resolution.mp4", got.PlayableRef)
}
