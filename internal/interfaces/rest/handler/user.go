package handler

import (
	"net/http"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/auth"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/driver"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/validate"
	"github.com/Jojopunk/elevate360-skill-builder/internal/user"
	"github.com/labstack/echo/v4"
)

// UserHandler user related operations
type UserHandler struct {
	JWTUtil     *auth.JWTUtil
	KVStore     driver.KeyValueDB
	UserUseCase user.UserUseCase
	Validator   validate.Validator
}

// NewUserHandler create an user controller instance
func NewUserHandler(
	JWTUtil *auth.JWTUtil,
	KVStore driver.KeyValueDB,
	UserUseCase user.UserUseCase,
	Validator validate.Validator,
) *UserHandler {
	return &UserHandler{
		JWTUtil:     JWTUtil,
		KVStore:     KVStore,
		UserUseCase: UserUseCase,
		Validator:   Validator,
	}
}

type signInForm struct {
	Username string `json:"username" validate:"required"` // username or email
	Password string `json:"password" validate:"required"`
}

// HandleSignIn ...
func (uh *UserHandler) HandleSignIn(c echo.Context) (err error) {
	ju := uh.JWTUtil

	post := new(signInForm)
	if err = c.Bind(post); err != nil {
		return bindFailed(c, "credential", err)
	}
	if err := uh.Validator.Struct(post); err != nil {
		return invalidParams(c, "Failed to validate fields", err)
	}

	u, err := uh.UserUseCase.SignIn(c.Request().Context(), post.Username, post.Password)
	if err != nil {
		return err
	}

	// issue JWT
	tokenStr, err := ju.GenerateTokenStr(u.ID, u.Email, u.Username)
	if err != nil {
		return err
	}
	ju.SetClientToken(c, tokenStr)
	u.Password = ""
	return c.JSON(http.StatusOK, u)
}

// HandleSignUp ...
func (uh *UserHandler) HandleSignUp(c echo.Context) (err error) {
	post := new(user.UserModel)
	if err = c.Bind(post); err != nil {
		return bindFailed(c, "user entity", err)
	}

	// validation
	if err := uh.Validator.Struct(post); err != nil {
		return invalidParams(c, "Failed to validate fields", err)
	}

	u, err := uh.UserUseCase.SignUp(c.Request().Context(), post)
	if err != nil {
		return err
	}
	u.Password = ""
	return c.JSON(http.StatusCreated, u)
}

// HandleSignOut blacklist the token until it expires
func (uh *UserHandler) HandleSignOut(c echo.Context) (err error) {
	ju := uh.JWTUtil
	kv := uh.KVStore

	if tokenStr, err := ju.ExtractToken(c); err == nil {
		if token, err := ju.Validate(tokenStr); err == nil {
			ju.ClearClientToken(c)
			if err := kv.SetEX(c.Request().Context(), auth.BlacklistKey(tokenStr), "", token.TimeRemaining()); err != nil {
				return err
			}
			return c.NoContent(http.StatusOK)
		}
	}
	return c.NoContent(http.StatusUnauthorized)
}

// HandleUserExists ...
func (uh *UserHandler) HandleUserExists(c echo.Context) (err error) {
	username := c.QueryParam("username")
	email := c.QueryParam("email")

	if err := uh.Validator.AllEmpty([]string{"username", "email"}, username, email); err != nil {
		return invalidParams(c, "Failed to validate params", []*validate.FieldError{err})
	}

	existing, err := uh.UserUseCase.Exists(c.Request().Context(), username, email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, existing)
}

// HandleGetProfile ...
func (uh *UserHandler) HandleGetProfile(c echo.Context) (err error) {
	claims := uh.JWTUtil.GetContextToken(c)

	u, err := uh.UserUseCase.GetProfile(c.Request().Context(), claims.UID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// HandleUpdateProfile ...
func (uh *UserHandler) HandleUpdateProfile(c echo.Context) (err error) {
	claims := uh.JWTUtil.GetContextToken(c)

	post := new(user.Profile)
	if err = c.Bind(post); err != nil {
		return bindFailed(c, "profile", err)
	}
	if err := uh.Validator.Struct(post); err != nil {
		return invalidParams(c, "Failed to validate fields", err)
	}

	u, err := uh.UserUseCase.UpdateProfile(c.Request().Context(), claims.UID, post)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// HandleListEducation ...
func (uh *UserHandler) HandleListEducation(c echo.Context) (err error) {
	claims := uh.JWTUtil.GetContextToken(c)

	items, err := uh.UserUseCase.ListEducation(c.Request().Context(), claims.UID)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*user.EducationModel{}
	}
	return c.JSON(http.StatusOK, items)
}

// HandleAddEducation ...
func (uh *UserHandler) HandleAddEducation(c echo.Context) (err error) {
	claims := uh.JWTUtil.GetContextToken(c)

	post := new(user.EducationModel)
	if err = c.Bind(post); err != nil {
		return bindFailed(c, "education entry", err)
	}
	if err := uh.Validator.Struct(post); err != nil {
		return invalidParams(c, "Failed to validate fields", err)
	}

	item, err := uh.UserUseCase.AddEducation(c.Request().Context(), claims.UID, post)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, item)
}

// HandleDeleteEducation ...
func (uh *UserHandler) HandleDeleteEducation(c echo.Context) (err error) {
	claims := uh.JWTUtil.GetContextToken(c)

	if err := uh.UserUseCase.DeleteEducation(c.Request().Context(), claims.UID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
