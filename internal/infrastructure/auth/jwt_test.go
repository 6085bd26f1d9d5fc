package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTUtil_SignAndValidate(t *testing.T) {
	ju := NewJWTUtil("HS256", "secret", "token", time.Hour)

	tokenStr, err := ju.GenerateTokenStr("uid-1", "ada@example.com", "ada")
	require.NoError(t, err)

	claims, err := ju.Validate(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.UID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "ada", claims.Name)
	assert.InDelta(t, time.Hour.Seconds(), claims.TimeRemaining().Seconds(), 5)
}

func TestJWTUtil_RejectsForeignSecretAndMethod(t *testing.T) {
	ju := NewJWTUtil("HS256", "secret", "token", time.Hour)

	other := NewJWTUtil("HS256", "other", "token", time.Hour)
	tokenStr, err := other.GenerateTokenStr("uid-1", "", "")
	require.NoError(t, err)
	_, err = ju.Validate(tokenStr)
	assert.Error(t, err)

	hs512 := NewJWTUtil("HS512", "secret", "token", time.Hour)
	tokenStr, err = hs512.GenerateTokenStr("uid-1", "", "")
	require.NoError(t, err)
	_, err = ju.Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTUtil_Expired(t *testing.T) {
	ju := NewJWTUtil("HS256", "secret", "token", time.Hour)
	tokenStr, err := ju.Sign(&AppTokenClaims{
		UID:            "uid-1",
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(-time.Minute).Unix()},
	})
	require.NoError(t, err)

	_, err = ju.Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTUtil_CookieRoundTrip(t *testing.T) {
	e := echo.New()
	ju := NewJWTUtil("HS256", "secret", "token", time.Hour)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	ju.SetClientToken(c, "abc")
	cookie := rec.Result().Cookies()[0]
	assert.Equal(t, "token", cookie.Name)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	c = e.NewContext(req, httptest.NewRecorder())
	tokenStr, err := ju.ExtractToken(c)
	require.NoError(t, err)
	assert.Equal(t, "abc", tokenStr)

	_, err = ju.ExtractToken(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder()))
	assert.Error(t, err)
}
