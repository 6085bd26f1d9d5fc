package user

// Schema DDL of the account tables
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS "users" (
		id VARCHAR(64) PRIMARY KEY,
		username VARCHAR(64) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL UNIQUE,
		password VARCHAR(255) NOT NULL,
		full_name VARCHAR(255) NOT NULL DEFAULT '',
		login_retry INTEGER NOT NULL DEFAULT 0,
		last_login BIGINT NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS "education_details" (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(64) NOT NULL,
		institution VARCHAR(255) NOT NULL,
		degree VARCHAR(255) NOT NULL,
		field_of_study VARCHAR(255) NOT NULL,
		start_date VARCHAR(10) NOT NULL,
		end_date VARCHAR(10) NOT NULL,
		description TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
}
