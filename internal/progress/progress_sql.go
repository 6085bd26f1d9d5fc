package progress

import (
	"context"
	"database/sql"
	"time"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/driver"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/uuid"
)

type ProgressSQL struct {
	Conn          driver.ITransactionalDB
	UUIDGenerator uuid.Generator
}

var _ ProgressRepository = &ProgressSQL{}

func NewProgressRepository(Conn driver.ITransactionalDB, UUIDGenerator uuid.Generator) *ProgressSQL {
	return &ProgressSQL{Conn, UUIDGenerator}
}

const progressColumns = `id, user_id, challenge_id, selected_answer, is_correct, completed_at`

func (repo *ProgressSQL) queryEntries(ctx context.Context, query string, args ...interface{}) ([]*ProgressEntry, error) {
	rows, err := repo.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*ProgressEntry
	for rows.Next() {
		var (
			item        = new(ProgressEntry)
			completedAt int64
		)
		if err := rows.Scan(&item.ID, &item.UserID, &item.ChallengeID, &item.SelectedAnswer,
			&item.IsCorrect, &completedAt); err != nil {
			return nil, err
		}
		item.CompletedAt = time.UnixMilli(completedAt)
		result = append(result, item)
	}
	return result, rows.Err()
}

func (repo *ProgressSQL) GetUserProgress(ctx context.Context, userID string) ([]*ProgressEntry, error) {
	return repo.queryEntries(ctx, `SELECT `+progressColumns+`
	FROM "user_progress" WHERE user_id=$1 ORDER BY completed_at ASC`, userID)
}

// GetUserProgressBetween entries completed within [from, to)
func (repo *ProgressSQL) GetUserProgressBetween(ctx context.Context, userID string, from, to time.Time) ([]*ProgressEntry, error) {
	return repo.queryEntries(ctx, `SELECT `+progressColumns+`
	FROM "user_progress" WHERE user_id=$1 AND completed_at >= $2 AND completed_at < $3
	ORDER BY completed_at ASC`, userID, from.UnixMilli(), to.UnixMilli())
}

// CountProgressBetween number of entries completed within [from, to)
func (repo *ProgressSQL) CountProgressBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT COUNT(*) FROM "user_progress"
	WHERE user_id=$1 AND completed_at >= $2 AND completed_at < $3`, userID, from.UnixMilli(), to.UnixMilli())
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

func (repo *ProgressSQL) AppendProgress(ctx context.Context, entry *ProgressEntry) error {
	id, err := repo.UUIDGenerator.Generate()
	if err != nil {
		return err
	}
	entry.ID = id

	_, err = repo.Conn.ExecContext(ctx, `INSERT INTO "user_progress"(`+progressColumns+`)
	VALUES($1,$2,$3,$4,$5,$6)`, entry.ID, entry.UserID, entry.ChallengeID, entry.SelectedAnswer,
		entry.IsCorrect, entry.CompletedAt.UnixMilli())
	return err
}

// GetStreak returns nil when the user has no record yet
func (repo *ProgressSQL) GetStreak(ctx context.Context, userID string) (*StreakRecord, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT user_id, current_streak, longest_streak, last_completed_date
	FROM "user_streaks" WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if rows.Next() {
		rec := new(StreakRecord)
		if err := rows.Scan(&rec.UserID, &rec.CurrentStreak, &rec.LongestStreak, &rec.LastCompletedDate); err != nil {
			return nil, err
		}
		return rec, nil
	}
	return nil, rows.Err()
}

// UpsertStreak update the record of the user, creating it on first use
func (repo *ProgressSQL) UpsertStreak(ctx context.Context, record *StreakRecord) error {
	res, err := repo.Conn.ExecContext(ctx, `UPDATE "user_streaks"
	SET current_streak=$1,
			longest_streak=$2,
			last_completed_date=$3
	WHERE user_id=$4`, record.CurrentStreak, record.LongestStreak, record.LastCompletedDate, record.UserID)
	if err != nil {
		return err
	}
	// mysql reports zero affected rows for unchanged values, the insert below settles both cases
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	_, err = repo.Conn.ExecContext(ctx, `INSERT INTO "user_streaks"(user_id, current_streak, longest_streak, last_completed_date)
	VALUES($1,$2,$3,$4)`, record.UserID, record.CurrentStreak, record.LongestStreak, record.LastCompletedDate)
	if driver.IsUniqueViolation(err) {
		return nil
	}
	return err
}

func (repo *ProgressSQL) BeginTx(ctx context.Context) (driver.ITransactionalDB, error) {
	return repo.Conn.BeginTx(ctx, &driver.TxOptions{
		Isolation: sql.LevelDefault,
	})
}

// WithTx returns a repository bound to tx
func (repo *ProgressSQL) WithTx(tx driver.ITransactionalDB) ProgressRepository {
	return &ProgressSQL{tx, repo.UUIDGenerator}
}
