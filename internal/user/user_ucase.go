package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/metrics"
	"go.elastic.co/apm"
	"golang.org/x/crypto/bcrypt"
)

// UserUseCaseImpl ...
type UserUseCaseImpl struct {
	UserRepository      UserRepository
	EducationRepository EducationRepository
	MaxLoginAttempts    int
	RetryTimeout        time.Duration
	BcryptCost          int
	Now                 func() time.Time
}

var _ UserUseCase = &UserUseCaseImpl{}

// NewUserUseCase ...
func NewUserUseCase(
	UserRepository UserRepository,
	EducationRepository EducationRepository,
	MaxLoginAttempts int,
	RetryTimeout time.Duration,
	BcryptCost int,
) *UserUseCaseImpl {
	return &UserUseCaseImpl{
		UserRepository:      UserRepository,
		EducationRepository: EducationRepository,
		MaxLoginAttempts:    MaxLoginAttempts,
		RetryTimeout:        RetryTimeout,
		BcryptCost:          BcryptCost,
		Now:                 time.Now,
	}
}

// SignUp create a user, the password is stored as a bcrypt hash
func (uu *UserUseCaseImpl) SignUp(ctx context.Context, post *UserModel) (*UserModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.SignUp", "service")
	defer apmSpan.End()

	ur := uu.UserRepository
	// search for existence
	if m, err := ur.FindByCredential(ctx, post.Username, post.Email); err != nil {
		return nil, err
	} else if m != nil {
		return nil, ErrDuplicatedUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(post.Password), uu.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	post.Password = string(hash)
	post.LoginRetry = 0
	post.CreatedAt = uu.Now().UnixMilli()

	// save user
	if err := ur.SaveUser(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// SignIn check the credential, failed attempts lock the account for RetryTimeout once MaxLoginAttempts is reached
func (uu *UserUseCaseImpl) SignIn(ctx context.Context, credential, password string) (*UserModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.SignIn", "service")
	defer apmSpan.End()

	tx, err := uu.UserRepository.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)
	ur := uu.UserRepository.WithTx(tx)

	user, err := ur.FindByCredential(ctx, credential, credential)
	if err != nil {
		return nil, err
	}
	if user == nil {
		metrics.LoginFailures.WithLabelValues("unknown_user").Inc()
		return nil, ErrNoSuchUser
	}

	now := uu.Now()
	if uu.MaxLoginAttempts > 0 && user.LoginRetry >= uu.MaxLoginAttempts {
		if now.Sub(time.UnixMilli(user.LastLogin)) < uu.RetryTimeout {
			metrics.LoginFailures.WithLabelValues("locked").Inc()
			return nil, ErrUserTooManyRetry
		}
		user.LoginRetry = 0
	}

	user.LastLogin = now.UnixMilli()
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, fmt.Errorf("compare password: %w", err)
		}
		user.LoginRetry++
		if err := ur.UpdateLogin(ctx, user); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		metrics.LoginFailures.WithLabelValues("bad_password").Inc()
		return nil, ErrNoSuchUser
	}

	// reset retry number
	user.LoginRetry = 0
	if err := ur.UpdateLogin(ctx, user); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return user, nil
}

// Exists find if user exists in database
func (uu *UserUseCaseImpl) Exists(ctx context.Context, username, email string) (bool, error) {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.Exists", "service")
	defer apmSpan.End()

	user, err := uu.UserRepository.FindByCredential(ctx, username, email)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

func (uu *UserUseCaseImpl) GetProfile(ctx context.Context, id string) (*UserModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.GetProfile", "service")
	defer apmSpan.End()

	user, err := uu.UserRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	user.Password = ""
	return user, nil
}

func (uu *UserUseCaseImpl) UpdateProfile(ctx context.Context, id string, profile *Profile) (*UserModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.UpdateProfile", "service")
	defer apmSpan.End()

	ur := uu.UserRepository
	if user, err := ur.FindByID(ctx, id); err != nil {
		return nil, err
	} else if user == nil {
		return nil, ErrUserNotFound
	}
	if other, err := ur.FindByCredential(ctx, profile.Email, profile.Email); err != nil {
		return nil, err
	} else if other != nil && other.ID != id {
		return nil, ErrDuplicatedUser
	}
	if err := ur.UpdateProfile(ctx, id, profile); err != nil {
		return nil, err
	}
	return uu.GetProfile(ctx, id)
}

func (uu *UserUseCaseImpl) ListEducation(ctx context.Context, userID string) ([]*EducationModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.ListEducation", "service")
	defer apmSpan.End()

	return uu.EducationRepository.ListByUser(ctx, userID)
}

func (uu *UserUseCaseImpl) AddEducation(ctx context.Context, userID string, post *EducationModel) (*EducationModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.AddEducation", "service")
	defer apmSpan.End()

	post.UserID = userID
	post.CreatedAt = uu.Now().UnixMilli()
	if err := uu.EducationRepository.Save(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (uu *UserUseCaseImpl) DeleteEducation(ctx context.Context, userID, id string) error {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.DeleteEducation", "service")
	defer apmSpan.End()

	ok, err := uu.EducationRepository.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrEducationNotFound
	}
	return nil
}
