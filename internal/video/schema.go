package video

// Schema DDL of the local video store
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS "videos" (
		id VARCHAR(64) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		video_url VARCHAR(1024) NOT NULL,
		thumbnail_url VARCHAR(1024) NOT NULL,
		duration INTEGER NOT NULL,
		skill_categories TEXT NOT NULL,
		local_file_path VARCHAR(1024) NOT NULL,
		is_downloaded BOOLEAN NOT NULL,
		created_at BIGINT NOT NULL
	)`,
}
