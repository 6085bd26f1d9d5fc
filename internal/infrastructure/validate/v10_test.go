package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signUpForm struct {
	Username string `json:"username" validate:"required,max=32"`
	Email    string `json:"email,omitempty" validate:"required,email"`
}

func TestPlaygroundV10_Struct(t *testing.T) {
	v := NewValidator()

	errs := v.Struct(&signUpForm{Email: "not-an-email"})
	require.Len(t, errs, 2)
	assert.Equal(t, "username", errs[0].Domain)
	assert.Equal(t, "username is a required field", errs[0].Reason)
	assert.Equal(t, "email", errs[1].Domain)

	assert.Nil(t, v.Struct(&signUpForm{Username: "ada", Email: "ada@example.com"}))
}

func TestPlaygroundV10_Empty(t *testing.T) {
	v := NewValidator()

	errs := v.Empty("ts", "")
	require.Len(t, errs, 1)
	assert.Equal(t, "ts is required", errs[0].Reason)
	assert.Nil(t, v.Empty("ts", "2024-01-01T00:00:00Z"))
}

func TestPlaygroundV10_AllEmpty(t *testing.T) {
	v := NewValidator()

	err := v.AllEmpty([]string{"username", "email"}, "", "")
	require.NotNil(t, err)
	assert.Equal(t, "username,email", err.Domain)
	assert.Nil(t, v.AllEmpty([]string{"username", "email"}, "", "a@b.c"))
	assert.Panics(t, func() { v.AllEmpty([]string{"username"}, "", "") })
}

func TestPlaygroundV10_MaxBytes(t *testing.T) {
	v := NewValidator()
	type form struct {
		Password string `json:"password" validate:"maxbytes=8"`
	}

	assert.Nil(t, v.Struct(&form{Password: "12345678"}))
	assert.Nil(t, v.Struct(&form{Password: "éééé"}))

	// five runes, ten bytes
	errs := v.Struct(&form{Password: strings.Repeat("é", 5)})
	require.Len(t, errs, 1)
	assert.Equal(t, "password", errs[0].Domain)
	assert.Equal(t, "password must be at most 8 bytes long", errs[0].Reason)

	assert.Len(t, v.Var("password", "ü", "maxbytes=1"), 1)
}
