package progress

import (
	"context"
	"time"

	"github.com/Jojopunk/elevate360-skill-builder/internal/challenge"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/driver"
)

// ProgressEntry one completion event, entries are append-only
type ProgressEntry struct {
	ID             string    `json:"id"`
	UserID         string    `json:"-"`
	ChallengeID    string    `json:"challenge_id"`
	SelectedAnswer string    `json:"selected_answer"`
	IsCorrect      bool      `json:"is_correct"`
	CompletedAt    time.Time `json:"completed_at"`
}

// StreakRecord consecutive calendar days with at least one completion
type StreakRecord struct {
	UserID            string `json:"-"`
	CurrentStreak     int    `json:"current_streak"`
	LongestStreak     int    `json:"longest_streak"`
	LastCompletedDate string `json:"last_completed_date"` // YYYY-MM-DD in the zone of the last completion
}

// SubmitResult outcome of one answered challenge
type SubmitResult struct {
	IsCorrect     bool           `json:"is_correct"`
	CorrectAnswer string         `json:"correct_answer"`
	Explanation   string         `json:"explanation"`
	Entry         *ProgressEntry `json:"entry"`
	Streak        *StreakRecord  `json:"streak"`
}

// SkillProgress completion stats of one skill category
type SkillProgress struct {
	SkillCategory string `json:"skill_category"`
	Completed     int    `json:"completed"`
	Correct       int    `json:"correct"`
	Percentage    int    `json:"percentage"`
}

// Summary progress page overview
type Summary struct {
	TotalCompleted int              `json:"total_completed"`
	TotalCorrect   int              `json:"total_correct"`
	Streak         *StreakRecord    `json:"streak"`
	Skills         []*SkillProgress `json:"skills"`
}

// DailyActivity completions of one day of a week
type DailyActivity struct {
	Weekday   int    `json:"weekday"` // 0 is monday
	Date      string `json:"date"`
	Completed int    `json:"completed"`
	Correct   int    `json:"correct"`
	Timestamp int64  `json:"timestamp"` // milliseconds of the start of the day
}

type ProgressRepository interface {
	GetUserProgress(ctx context.Context, userID string) ([]*ProgressEntry, error)
	GetUserProgressBetween(ctx context.Context, userID string, from, to time.Time) ([]*ProgressEntry, error)
	CountProgressBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
	AppendProgress(ctx context.Context, entry *ProgressEntry) error
	GetStreak(ctx context.Context, userID string) (*StreakRecord, error)
	UpsertStreak(ctx context.Context, record *StreakRecord) error
	BeginTx(ctx context.Context) (driver.ITransactionalDB, error)
	WithTx(tx driver.ITransactionalDB) ProgressRepository
}

type ProgressUseCase interface {
	GetEligibleChallenge(ctx context.Context, userID string, now time.Time) (*challenge.Challenge, error)
	HasCompletedToday(ctx context.Context, userID string, now time.Time) (bool, error)
	SubmitAnswer(ctx context.Context, userID, challengeID, answer string, now time.Time) (*SubmitResult, error)
	UpdateStreak(ctx context.Context, userID string, now time.Time) (*StreakRecord, error)
	GetStreak(ctx context.Context, userID string) (*StreakRecord, error)
	GetSummary(ctx context.Context, userID string) (*Summary, error)
	GetWeeklyActivity(ctx context.Context, userID string, at time.Time) ([]*DailyActivity, error)
}
