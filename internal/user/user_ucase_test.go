package user

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/driver"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixedClock struct{ now time.Time }

func (fc *fixedClock) Now() time.Time { return fc.now }

func newTestUseCase(t *testing.T) (*UserUseCaseImpl, *fixedClock) {
	t.Helper()
	ctx := context.Background()
	conn, err := driver.NewSQLiteConn(filepath.Join(t.TempDir(), "user.db"), &driver.DBConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(ctx) })
	require.NoError(t, driver.EnsureSchema(ctx, conn, Schema...))

	gen := uuid.NewNanoIDGenerator(16)
	uc := NewUserUseCase(NewUserRepository(conn, gen), NewEducationRepository(conn, gen), 3, time.Hour, bcrypt.MinCost)
	clock := &fixedClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	uc.Now = clock.Now
	return uc, clock
}

func signUp(t *testing.T, uc *UserUseCaseImpl, username, email string) *UserModel {
	t.Helper()
	user, err := uc.SignUp(context.Background(), &UserModel{Username: username, Email: email, Password: "correct horse"})
	require.NoError(t, err)
	return user
}

func TestSignUp_HashesPasswordAndRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCase(t)

	user := signUp(t, uc, "ada", "ada@example.com")
	assert.Len(t, user.ID, 16)
	assert.NotEqual(t, "correct horse", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("correct horse")))

	_, err := uc.SignUp(ctx, &UserModel{Username: "ada", Email: "other@example.com", Password: "whatever1"})
	assert.ErrorIs(t, err, ErrDuplicatedUser)
	_, err = uc.SignUp(ctx, &UserModel{Username: "grace", Email: "ada@example.com", Password: "whatever1"})
	assert.ErrorIs(t, err, ErrDuplicatedUser)

	ok, err := uc.Exists(ctx, "ada", "")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = uc.Exists(ctx, "", "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCase(t)
	signUp(t, uc, "ada", "ada@example.com")

	user, err := uc.SignIn(ctx, "ada", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "ada", user.Username)

	user, err = uc.SignIn(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	_, err = uc.SignIn(ctx, "ada", "wrong")
	assert.ErrorIs(t, err, ErrNoSuchUser)
	_, err = uc.SignIn(ctx, "nobody", "correct horse")
	assert.ErrorIs(t, err, ErrNoSuchUser)
}

func TestSignIn_LocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	uc, clock := newTestUseCase(t)
	signUp(t, uc, "ada", "ada@example.com")

	for i := 0; i < 3; i++ {
		_, err := uc.SignIn(ctx, "ada", "wrong")
		require.ErrorIs(t, err, ErrNoSuchUser)
	}
	_, err := uc.SignIn(ctx, "ada", "correct horse")
	assert.ErrorIs(t, err, ErrUserTooManyRetry)

	clock.now = clock.now.Add(59 * time.Minute)
	_, err = uc.SignIn(ctx, "ada", "correct horse")
	assert.ErrorIs(t, err, ErrUserTooManyRetry)

	clock.now = clock.now.Add(2 * time.Minute)
	_, err = uc.SignIn(ctx, "ada", "correct horse")
	require.NoError(t, err)

	// the counter was reset by the successful sign in
	_, err = uc.SignIn(ctx, "ada", "wrong")
	require.ErrorIs(t, err, ErrNoSuchUser)
	_, err = uc.SignIn(ctx, "ada", "correct horse")
	assert.NoError(t, err)
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCase(t)
	ada := signUp(t, uc, "ada", "ada@example.com")
	signUp(t, uc, "grace", "grace@example.com")

	profile, err := uc.GetProfile(ctx, ada.ID)
	require.NoError(t, err)
	assert.Empty(t, profile.Password)

	updated, err := uc.UpdateProfile(ctx, ada.ID, &Profile{FullName: "Ada Lovelace", Email: "lovelace@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.FullName)
	assert.Equal(t, "lovelace@example.com", updated.Email)

	// keeping the own email is fine
	_, err = uc.UpdateProfile(ctx, ada.ID, &Profile{FullName: "Ada", Email: "lovelace@example.com"})
	require.NoError(t, err)

	_, err = uc.UpdateProfile(ctx, ada.ID, &Profile{Email: "grace@example.com"})
	assert.ErrorIs(t, err, ErrDuplicatedUser)
	_, err = uc.UpdateProfile(ctx, "missing", &Profile{Email: "x@example.com"})
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = uc.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestEducation(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCase(t)
	ada := signUp(t, uc, "ada", "ada@example.com")
	grace := signUp(t, uc, "grace", "grace@example.com")

	first, err := uc.AddEducation(ctx, ada.ID, &EducationModel{
		Institution: "University of London", Degree: "BSc", FieldOfStudy: "Mathematics", StartDate: "2015-09-01", EndDate: "2018-06-30",
	})
	require.NoError(t, err)
	_, err = uc.AddEducation(ctx, ada.ID, &EducationModel{
		Institution: "Open University", Degree: "MSc", StartDate: "2019-09-01",
	})
	require.NoError(t, err)

	list, err := uc.ListEducation(ctx, ada.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Open University", list[0].Institution)
	assert.Equal(t, "University of London", list[1].Institution)

	assert.ErrorIs(t, uc.DeleteEducation(ctx, grace.ID, first.ID), ErrEducationNotFound)
	require.NoError(t, uc.DeleteEducation(ctx, ada.ID, first.ID))
	assert.ErrorIs(t, uc.DeleteEducation(ctx, ada.ID, first.ID), ErrEducationNotFound)

	list, err = uc.ListEducation(ctx, grace.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
