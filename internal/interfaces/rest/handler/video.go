package handler

import (
	"net/http"
	"strings"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/validate"
	"github.com/Jojopunk/elevate360-skill-builder/internal/video"
	"github.com/labstack/echo/v4"
)

// VideoHandler video library operations, none of them require a session
type VideoHandler struct {
	VideoUseCase video.VideoUseCase
	Validator    validate.Validator
}

// NewVideoHandler ...
func NewVideoHandler(VideoUseCase video.VideoUseCase, Validator validate.Validator) *VideoHandler {
	return &VideoHandler{VideoUseCase, Validator}
}

// HandleListVideos ?q= filters by title, description and categories
func (vh *VideoHandler) HandleListVideos(c echo.Context) (err error) {
	items, err := vh.VideoUseCase.ListVideos(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (vh *VideoHandler) HandleListDownloaded(c echo.Context) (err error) {
	items, err := vh.VideoUseCase.ListDownloaded(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (vh *VideoHandler) HandleGetVideo(c echo.Context) (err error) {
	item, err := vh.VideoUseCase.GetVideo(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

// HandleGetSource resolves the playable source of a stored video
func (vh *VideoHandler) HandleGetSource(c echo.Context) (err error) {
	ctx := c.Request().Context()
	item, err := vh.VideoUseCase.GetVideo(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	res := vh.VideoUseCase.Resolve(ctx, item.PlayableRef, video.Options{Categories: item.Categories})
	return c.JSON(http.StatusOK, res)
}

func (vh *VideoHandler) HandleDownload(c echo.Context) (err error) {
	item, err := vh.VideoUseCase.Download(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

// HandleResolve resolves a raw reference, ?categories= is a comma separated list
func (vh *VideoHandler) HandleResolve(c echo.Context) (err error) {
	ref := c.QueryParam("ref")
	if err := vh.Validator.Var("ref", ref, "max=2048"); err != nil {
		return invalidParams(c, "Failed to validate params", err)
	}

	var categories []string
	for _, item := range strings.Split(c.QueryParam("categories"), ",") {
		if item = strings.TrimSpace(item); item != "" {
			categories = append(categories, item)
		}
	}
	res := vh.VideoUseCase.Resolve(c.Request().Context(), ref, video.Options{Categories: categories})
	return c.JSON(http.StatusOK, res)
}
