package progress

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/Jojopunk/elevate360-skill-builder/internal/challenge"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/metrics"
	"go.elastic.co/apm"
)

// ProgressUseCaseImpl tracks challenge completions and streaks.
//
// SubmitAnswer is not idempotent, callers must invoke it at most once per user action.
type ProgressUseCaseImpl struct {
	ProgressRepository  ProgressRepository
	ChallengeRepository challenge.ChallengeRepository
	Intn                func(n int) int
}

var _ ProgressUseCase = &ProgressUseCaseImpl{}

// NewProgressUseCase ...
func NewProgressUseCase(
	ProgressRepository ProgressRepository,
	ChallengeRepository challenge.ChallengeRepository,
) *ProgressUseCaseImpl {
	return &ProgressUseCaseImpl{
		ProgressRepository:  ProgressRepository,
		ChallengeRepository: ChallengeRepository,
		Intn:                rand.IntN,
	}
}

// GetEligibleChallenge picks a challenge for userID, an empty userID picks from the whole catalog
func (pu *ProgressUseCaseImpl) GetEligibleChallenge(ctx context.Context, userID string, now time.Time) (*challenge.Challenge, error) {
	apmSpan, _ := apm.StartSpan(ctx, "ProgressUseCaseImpl.GetEligibleChallenge", "service")
	defer apmSpan.End()

	catalog, err := pu.ChallengeRepository.GetChallenges(ctx)
	if err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		return nil, challenge.ErrCatalogEmpty
	}

	var entries []*ProgressEntry
	if userID != "" {
		if entries, err = pu.ProgressRepository.GetUserProgress(ctx, userID); err != nil {
			return nil, err
		}
	}
	return PickEligible(catalog, entries, pu.Intn), nil
}

// HasCompletedToday reports whether userID completed any challenge on the calendar day of now, in now's location
func (pu *ProgressUseCaseImpl) HasCompletedToday(ctx context.Context, userID string, now time.Time) (bool, error) {
	apmSpan, _ := apm.StartSpan(ctx, "ProgressUseCaseImpl.HasCompletedToday", "service")
	defer apmSpan.End()

	start, end := DayBounds(now)
	n, err := pu.ProgressRepository.CountProgressBetween(ctx, userID, start, end)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SubmitAnswer records one answer and advances the streak, the answer must match exactly
func (pu *ProgressUseCaseImpl) SubmitAnswer(ctx context.Context, userID, challengeID, answer string, now time.Time) (*SubmitResult, error) {
	apmSpan, _ := apm.StartSpan(ctx, "ProgressUseCaseImpl.SubmitAnswer", "service")
	defer apmSpan.End()

	item, err := pu.ChallengeRepository.GetChallengeByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	tx, err := pu.ProgressRepository.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)
	repo := pu.ProgressRepository.WithTx(tx)

	entry := &ProgressEntry{
		UserID:         userID,
		ChallengeID:    item.ID,
		SelectedAnswer: answer,
		IsCorrect:      answer == item.CorrectAnswer,
		CompletedAt:    now,
	}
	if err := repo.AppendProgress(ctx, entry); err != nil {
		return nil, err
	}
	streak, err := updateStreak(ctx, repo, userID, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	metrics.ChallengeSubmissions.WithLabelValues(metrics.BoolLabel(entry.IsCorrect)).Inc()
	return &SubmitResult{
		IsCorrect:     entry.IsCorrect,
		CorrectAnswer: item.CorrectAnswer,
		Explanation:   item.Explanation,
		Entry:         entry,
		Streak:        streak,
	}, nil
}

// UpdateStreak applies one completion at now to the streak of userID
func (pu *ProgressUseCaseImpl) UpdateStreak(ctx context.Context, userID string, now time.Time) (*StreakRecord, error) {
	apmSpan, _ := apm.StartSpan(ctx, "ProgressUseCaseImpl.UpdateStreak", "service")
	defer apmSpan.End()

	tx, err := pu.ProgressRepository.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	streak, err := updateStreak(ctx, pu.ProgressRepository.WithTx(tx), userID, now)
	if err != nil {
		return nil, err
	}
	return streak, tx.Commit(ctx)
}

func updateStreak(ctx context.Context, repo ProgressRepository, userID string, now time.Time) (*StreakRecord, error) {
	current, err := repo.GetStreak(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		current = &StreakRecord{UserID: userID}
	}

	next := NextStreak(*current, now)
	if err := repo.UpsertStreak(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// GetStreak returns a zero record for users who never completed a challenge
func (pu *ProgressUseCaseImpl) GetStreak(ctx context.Context, userID string) (*StreakRecord, error) {
	apmSpan, _ := apm.StartSpan(ctx, "ProgressUseCaseImpl.GetStreak", "service")
	defer apmSpan.End()

	streak, err := pu.ProgressRepository.GetStreak(ctx, userID)
	if err != nil {
		return nil, err
	}
	if streak == nil {
		streak = &StreakRecord{UserID: userID}
	}
	return streak, nil
}

// GetSummary aggregates the completions of userID per skill category
func (pu *ProgressUseCaseImpl) GetSummary(ctx context.Context, userID string) (*Summary, error) {
	apmSpan, _ := apm.StartSpan(ctx, "ProgressUseCaseImpl.GetSummary", "service")
	defer apmSpan.End()

	entries, err := pu.ProgressRepository.GetUserProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	catalog, err := pu.ChallengeRepository.GetChallenges(ctx)
	if err != nil {
		return nil, err
	}
	streak, err := pu.GetStreak(ctx, userID)
	if err != nil {
		return nil, err
	}

	categories := make(map[string]string, len(catalog))
	for _, c := range catalog {
		categories[c.ID] = c.SkillCategory
	}

	summary := &Summary{Streak: streak, Skills: make([]*SkillProgress, 0)}
	bySkill := make(map[string]*SkillProgress)
	for _, e := range entries {
		summary.TotalCompleted++
		if e.IsCorrect {
			summary.TotalCorrect++
		}

		category, ok := categories[e.ChallengeID]
		if !ok {
			continue
		}
		skill, ok := bySkill[category]
		if !ok {
			skill = &SkillProgress{SkillCategory: category}
			bySkill[category] = skill
			summary.Skills = append(summary.Skills, skill)
		}
		skill.Completed++
		if e.IsCorrect {
			skill.Correct++
		}
	}
	for _, skill := range summary.Skills {
		skill.Percentage = int(math.Round(float64(skill.Correct) / float64(skill.Completed) * 100))
	}
	sort.Slice(summary.Skills, func(i, j int) bool {
		return summary.Skills[i].SkillCategory < summary.Skills[j].SkillCategory
	})
	return summary, nil
}

// GetWeeklyActivity completions per day of the monday based week containing at, in at's location
func (pu *ProgressUseCaseImpl) GetWeeklyActivity(ctx context.Context, userID string, at time.Time) ([]*DailyActivity, error) {
	apmSpan, _ := apm.StartSpan(ctx, "ProgressUseCaseImpl.GetWeeklyActivity", "service")
	defer apmSpan.End()

	start, end := WeekBounds(at)
	entries, err := pu.ProgressRepository.GetUserProgressBetween(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	week := make([]*DailyActivity, 7)
	for i := range week {
		day := start.AddDate(0, 0, i)
		week[i] = &DailyActivity{
			Weekday:   i,
			Date:      day.Format(DateLayout),
			Timestamp: day.UnixMilli(),
		}
	}
	for _, e := range entries {
		for i := len(week) - 1; i >= 0; i-- {
			if !e.CompletedAt.Before(start.AddDate(0, 0, i)) {
				week[i].Completed++
				if e.IsCorrect {
					week[i].Correct++
				}
				break
			}
		}
	}
	return week, nil
}
