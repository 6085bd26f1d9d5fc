package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Jojopunk/elevate360-skill-builder/internal/challenge"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/validate"
	"github.com/Jojopunk/elevate360-skill-builder/internal/user"
	"github.com/Jojopunk/elevate360-skill-builder/internal/video"
	"github.com/labstack/echo/v4"
)

// RESTStandardError response error
type RESTStandardError struct {
	Type    string `json:"type,omitempty"`
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Detail  string `json:"detail,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func NewRESTStandardError(code int, detail string) *RESTStandardError {
	return &RESTStandardError{
		Code:   code,
		Title:  http.StatusText(code),
		Detail: detail,
	}
}

func (re RESTStandardError) Error() string {
	return re.Detail
}

func (re RESTStandardError) SetTraceID(traceID string) RESTStandardError {
	re.TraceID = traceID
	return re
}

// RESTValidationError standard validation error
type RESTValidationError struct {
	RESTStandardError
	InvalidParams []*validate.FieldError `json:"invalid_params"`
}

func NewRESTValidationError(code int, detail string, internal []*validate.FieldError) *RESTValidationError {
	return &RESTValidationError{
		RESTStandardError: RESTStandardError{
			Code:   code,
			Title:  http.StatusText(code),
			Detail: detail,
		},
		InvalidParams: internal,
	}
}

func (rve RESTValidationError) Error() string {
	return rve.Detail
}

func (rve RESTValidationError) SetTraceID(traceID string) RESTValidationError {
	rve.RESTStandardError.TraceID = traceID
	return rve
}

// ErrorResponse maps err to its REST envelope. known is false for errors nobody anticipated,
// those should be logged by the caller.
func ErrorResponse(err error) (re *RESTStandardError, known bool) {
	var (
		he *echo.HTTPError
		ce *challenge.Error
	)
	switch {
	case errors.As(err, &he):
		return NewRESTStandardError(he.Code, fmt.Sprint(he.Message)), true
	case errors.As(err, &ce):
		re = NewRESTStandardError(http.StatusNotFound, ce.Message)
		re.Type = ce.Kind.String()
		return re, true
	case errors.Is(err, challenge.ErrChallengeNotFound),
		errors.Is(err, video.ErrVideoNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, user.ErrEducationNotFound):
		return NewRESTStandardError(http.StatusNotFound, err.Error()), true
	case errors.Is(err, user.ErrDuplicatedUser):
		return NewRESTStandardError(http.StatusConflict, err.Error()), true
	case errors.Is(err, user.ErrNoSuchUser):
		return NewRESTStandardError(http.StatusUnauthorized, err.Error()), true
	case errors.Is(err, user.ErrUserTooManyRetry):
		return NewRESTStandardError(http.StatusForbidden, err.Error()), true
	case errors.Is(err, video.ErrNotDownloadable):
		return NewRESTStandardError(http.StatusUnprocessableEntity, err.Error()), true
	case errors.Is(err, video.ErrCatalogUnavailable):
		return NewRESTStandardError(http.StatusBadGateway, err.Error()), true
	case errors.Is(err, context.DeadlineExceeded):
		return NewRESTStandardError(http.StatusServiceUnavailable, "request timed out"), true
	}
	return NewRESTStandardError(http.StatusInternalServerError, "internal server error"), false
}

func bindFailed(c echo.Context, what string, err error) error {
	detail := fmt.Sprintf("Failed to bind %s", what)
	if he, ok := err.(*echo.HTTPError); ok && he.Internal != nil {
		detail = fmt.Sprintf("%s: %s", detail, he.Internal.Error())
	}
	return c.JSON(http.StatusUnprocessableEntity, NewRESTStandardError(http.StatusUnprocessableEntity, detail))
}

func invalidParams(c echo.Context, detail string, errs []*validate.FieldError) error {
	return c.JSON(http.StatusBadRequest, NewRESTValidationError(http.StatusBadRequest, detail, errs))
}
