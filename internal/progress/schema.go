package progress

// Schema DDL of the progress tables
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS "user_progress" (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		challenge_id VARCHAR(64) NOT NULL,
		selected_answer TEXT NOT NULL,
		is_correct BOOLEAN NOT NULL,
		completed_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS "user_streaks" (
		user_id VARCHAR(64) PRIMARY KEY,
		current_streak INTEGER NOT NULL,
		longest_streak INTEGER NOT NULL,
		last_completed_date VARCHAR(10) NOT NULL
	)`,
}
