package challenge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/driver"
)

type ChallengeSQL struct {
	Conn driver.ITransactionalDB
}

var _ ChallengeRepository = &ChallengeSQL{}

func NewChallengeRepository(Conn driver.ITransactionalDB) *ChallengeSQL {
	return &ChallengeSQL{Conn}
}

const challengeColumns = `id, title, scenario, options, correct_answer, explanation, skill_category, difficulty, created_at`

func scanChallenge(rows driver.ISQLRows) (*Challenge, error) {
	var (
		item    = new(Challenge)
		options string
	)
	if err := rows.Scan(&item.ID, &item.Title, &item.Scenario, &options, &item.CorrectAnswer,
		&item.Explanation, &item.SkillCategory, &item.Difficulty, &item.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(options), &item.Options); err != nil {
		return nil, fmt.Errorf("decode options of challenge %s: %w", item.ID, err)
	}
	return item, nil
}

func (repo *ChallengeSQL) GetChallenges(ctx context.Context) ([]*Challenge, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT `+challengeColumns+` FROM "challenges" ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Challenge
	for rows.Next() {
		item, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (repo *ChallengeSQL) GetChallengeByID(ctx context.Context, id string) (*Challenge, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT `+challengeColumns+` FROM "challenges" WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if rows.Next() {
		return scanChallenge(rows)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return nil, ErrChallengeNotFound
}

func (repo *ChallengeSQL) CountChallenges(ctx context.Context) (int, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT COUNT(*) FROM "challenges"`)
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

func (repo *ChallengeSQL) SaveChallenge(ctx context.Context, post *Challenge) error {
	options, err := json.Marshal(post.Options)
	if err != nil {
		return err
	}
	_, err = repo.Conn.ExecContext(ctx, `INSERT INTO "challenges"(`+challengeColumns+`)
	VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`, post.ID, post.Title, post.Scenario, string(options), post.CorrectAnswer,
		post.Explanation, post.SkillCategory, post.Difficulty, post.CreatedAt)
	return err
}
