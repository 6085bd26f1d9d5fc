package video

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/driver"
)

type VideoSQL struct {
	Conn driver.ITransactionalDB
}

var _ VideoRepository = &VideoSQL{}

func NewVideoRepository(Conn driver.ITransactionalDB) *VideoSQL {
	return &VideoSQL{Conn}
}

const videoColumns = `id, title, description, video_url, thumbnail_url, duration, skill_categories, local_file_path, is_downloaded, created_at`

func (repo *VideoSQL) queryVideos(ctx context.Context, query string, args ...interface{}) ([]*LocalVideo, error) {
	rows, err := repo.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*LocalVideo
	for rows.Next() {
		var (
			item       = new(LocalVideo)
			categories string
		)
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.VideoURL, &item.ThumbnailURL,
			&item.Duration, &categories, &item.LocalFilePath, &item.IsDownloaded, &item.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(categories), &item.SkillCategories); err != nil {
			return nil, fmt.Errorf("decode categories of video %s: %w", item.ID, err)
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (repo *VideoSQL) first(ctx context.Context, query string, args ...interface{}) (*LocalVideo, error) {
	videos, err := repo.queryVideos(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, ErrVideoNotFound
	}
	return videos[0], nil
}

func (repo *VideoSQL) ListVideos(ctx context.Context) ([]*LocalVideo, error) {
	return repo.queryVideos(ctx, `SELECT `+videoColumns+` FROM "videos" ORDER BY created_at DESC, id ASC`)
}

func (repo *VideoSQL) ListDownloaded(ctx context.Context) ([]*LocalVideo, error) {
	return repo.queryVideos(ctx, `SELECT `+videoColumns+` FROM "videos" WHERE is_downloaded=$1
	ORDER BY created_at DESC, id ASC`, true)
}

func (repo *VideoSQL) GetVideoByID(ctx context.Context, id string) (*LocalVideo, error) {
	return repo.first(ctx, `SELECT `+videoColumns+` FROM "videos" WHERE id=$1`, id)
}

// FindByURLFragment first video whose url contains fragment
func (repo *VideoSQL) FindByURLFragment(ctx context.Context, fragment string) (*LocalVideo, error) {
	if fragment == "" {
		return nil, ErrVideoNotFound
	}
	escaped := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`).Replace(fragment)
	return repo.first(ctx, `SELECT `+videoColumns+` FROM "videos" WHERE video_url LIKE $1 ESCAPE '!'
	ORDER BY created_at DESC, id ASC`, "%"+escaped+"%")
}

func (repo *VideoSQL) CountVideos(ctx context.Context) (int, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT COUNT(*) FROM "videos"`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

func (repo *VideoSQL) SaveVideo(ctx context.Context, v *LocalVideo) error {
	categories := v.SkillCategories
	if categories == nil {
		categories = []string{}
	}
	encoded, err := json.Marshal(categories)
	if err != nil {
		return err
	}
	_, err = repo.Conn.ExecContext(ctx, `INSERT INTO "videos"(`+videoColumns+`)
	VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`, v.ID, v.Title, v.Description, v.VideoURL, v.ThumbnailURL,
		v.Duration, string(encoded), v.LocalFilePath, v.IsDownloaded, v.CreatedAt)
	return err
}

func (repo *VideoSQL) MarkDownloaded(ctx context.Context, id, localFilePath string) error {
	res, err := repo.Conn.ExecContext(ctx, `UPDATE "videos" SET is_downloaded=$1, local_file_path=$2 WHERE id=$3`,
		true, localFilePath, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// mysql reports zero for unchanged rows, tell them apart from missing ones
		if _, err := repo.GetVideoByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
