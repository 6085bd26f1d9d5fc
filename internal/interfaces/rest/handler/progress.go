package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/auth"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/validate"
	"github.com/Jojopunk/elevate360-skill-builder/internal/progress"
	"github.com/labstack/echo/v4"
)

type ProgressHandler struct {
	progressUseCase progress.ProgressUseCase
	jwtUtil         *auth.JWTUtil
	calendar        *Calendar
}

func NewProgressHandler(
	ProgressUseCase progress.ProgressUseCase,
	JWTUtil *auth.JWTUtil,
	Calendar *Calendar,
) *ProgressHandler {
	return &ProgressHandler{ProgressUseCase, JWTUtil, Calendar}
}

func (ph *ProgressHandler) HandleGetSummary(c echo.Context) (err error) {
	claims := ph.jwtUtil.GetContextToken(c)

	summary, err := ph.progressUseCase.GetSummary(c.Request().Context(), claims.UID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (ph *ProgressHandler) HandleGetStreak(c echo.Context) (err error) {
	claims := ph.jwtUtil.GetContextToken(c)

	streak, err := ph.progressUseCase.GetStreak(c.Request().Context(), claims.UID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, streak)
}

// HandleGetActivity completions per day of the week containing ts, the current week when ts is absent
func (ph *ProgressHandler) HandleGetActivity(c echo.Context) (err error) {
	claims := ph.jwtUtil.GetContextToken(c)
	at := ph.calendar.Now(c)

	if ts := c.QueryParam("ts"); ts != "" {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return invalidParams(c, "Failed to validate params", []*validate.FieldError{{
				Domain: "ts",
				Reason: fmt.Sprintf("ts must be in RFC3339 layout, %s", err.Error()),
			}})
		}
		at = parsed.In(ph.calendar.Location(c))
	}

	activity, err := ph.progressUseCase.GetWeeklyActivity(c.Request().Context(), claims.UID, at)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, activity)
}
