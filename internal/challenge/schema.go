package challenge

// Schema DDL of the challenge catalog
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS "challenges" (
		id VARCHAR(64) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		scenario TEXT NOT NULL,
		options TEXT NOT NULL,
		correct_answer TEXT NOT NULL,
		explanation TEXT NOT NULL,
		skill_category VARCHAR(64) NOT NULL,
		difficulty VARCHAR(32) NOT NULL,
		created_at BIGINT NOT NULL
	)`,
}
