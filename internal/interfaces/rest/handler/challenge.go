package handler

import (
	"context"
	"net/http"

	"github.com/Jojopunk/elevate360-skill-builder/internal/bootstrap"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/auth"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/validate"
	"github.com/Jojopunk/elevate360-skill-builder/internal/progress"
	"github.com/labstack/echo/v4"
)

// ContentSeeder fills the content tables
type ContentSeeder interface {
	Seed(ctx context.Context) (*bootstrap.SeedResult, error)
}

// ChallengeHandler daily challenge operations
type ChallengeHandler struct {
	JWTUtil         *auth.JWTUtil
	ProgressUseCase progress.ProgressUseCase
	Seeder          ContentSeeder
	Validator       validate.Validator
	Calendar        *Calendar

	submissions *KeyedMutex
}

// NewChallengeHandler ...
func NewChallengeHandler(
	JWTUtil *auth.JWTUtil,
	ProgressUseCase progress.ProgressUseCase,
	Seeder ContentSeeder,
	Validator validate.Validator,
	Calendar *Calendar,
) *ChallengeHandler {
	return &ChallengeHandler{
		JWTUtil:         JWTUtil,
		ProgressUseCase: ProgressUseCase,
		Seeder:          Seeder,
		Validator:       Validator,
		Calendar:        Calendar,
		submissions:     NewKeyedMutex(),
	}
}

// publicChallenge a challenge without its answer
type publicChallenge struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Scenario      string   `json:"scenario"`
	Options       []string `json:"options"`
	SkillCategory string   `json:"skill_category"`
	Difficulty    string   `json:"difficulty"`
}

type dailyChallenge struct {
	Challenge      publicChallenge `json:"challenge"`
	CompletedToday bool            `json:"completed_today"`
}

type answerForm struct {
	Answer string `json:"answer" validate:"required"`
}

// HandleGetDaily picks the challenge of the day, anonymous callers get one from the whole catalog
func (ch *ChallengeHandler) HandleGetDaily(c echo.Context) (err error) {
	ctx := c.Request().Context()
	now := ch.Calendar.Now(c)

	var uid string
	if claims := ch.JWTUtil.GetContextToken(c); claims != nil {
		uid = claims.UID
	}

	item, err := ch.ProgressUseCase.GetEligibleChallenge(ctx, uid, now)
	if err != nil {
		return err
	}
	res := &dailyChallenge{
		Challenge: publicChallenge{
			ID:            item.ID,
			Title:         item.Title,
			Scenario:      item.Scenario,
			Options:       item.Options,
			SkillCategory: item.SkillCategory,
			Difficulty:    item.Difficulty,
		},
	}
	if uid != "" {
		if res.CompletedToday, err = ch.ProgressUseCase.HasCompletedToday(ctx, uid, now); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, res)
}

// HandleSubmitAnswer records one answer, submissions of one user never overlap
func (ch *ChallengeHandler) HandleSubmitAnswer(c echo.Context) (err error) {
	claims := ch.JWTUtil.GetContextToken(c)

	post := new(answerForm)
	if err = c.Bind(post); err != nil {
		return bindFailed(c, "answer", err)
	}
	if err := ch.Validator.Struct(post); err != nil {
		return invalidParams(c, "Failed to validate fields", err)
	}

	unlock := ch.submissions.Lock(claims.UID)
	defer unlock()

	result, err := ch.ProgressUseCase.SubmitAnswer(c.Request().Context(), claims.UID, c.Param("id"), post.Answer, ch.Calendar.Now(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// HandleReseed seeds the content tables that are still empty
func (ch *ChallengeHandler) HandleReseed(c echo.Context) (err error) {
	result, err := ch.Seeder.Seed(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
