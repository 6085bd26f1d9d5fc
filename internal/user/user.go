package user

import (
	"context"
	"errors"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/driver"
)

// UserModel a registered account
type UserModel struct {
	ID         string `json:"id"`
	Username   string `json:"username" validate:"required,min=3,max=64"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password,omitempty" validate:"required,min=8,maxbytes=72"`
	FullName   string `json:"full_name" validate:"max=255"`
	LoginRetry int    `json:"-"`
	LastLogin  int64  `json:"-"`
	CreatedAt  int64  `json:"created_at"`
}

// Profile the editable part of an account
type Profile struct {
	FullName string `json:"full_name" validate:"max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
}

// EducationModel one education entry of a user profile
type EducationModel struct {
	ID           string `json:"id"`
	UserID       string `json:"-"`
	Institution  string `json:"institution" validate:"required,max=255"`
	Degree       string `json:"degree" validate:"required,max=255"`
	FieldOfStudy string `json:"field_of_study" validate:"max=255"`
	StartDate    string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Description  string `json:"description" validate:"max=2000"`
	CreatedAt    int64  `json:"created_at"`
}

var (
	// ErrDuplicatedUser unique key constraint violation
	ErrDuplicatedUser = errors.New("username or email is already registered")
	// ErrNoSuchUser failed to validate the credential
	ErrNoSuchUser = errors.New("no such user or password is incorrect")
	// ErrUserTooManyRetry sign in is locked after too many failures
	ErrUserTooManyRetry = errors.New("too many failed attempts, try again later")
	// ErrUserNotFound the account does not exist
	ErrUserNotFound = errors.New("user not found")
	// ErrEducationNotFound the entry does not exist or belongs to another user
	ErrEducationNotFound = errors.New("education entry not found")
)

type UserRepository interface {
	FindByCredential(ctx context.Context, username, email string) (*UserModel, error)
	FindByID(ctx context.Context, id string) (*UserModel, error)
	SaveUser(ctx context.Context, post *UserModel) error
	UpdateLogin(ctx context.Context, post *UserModel) error
	UpdateProfile(ctx context.Context, id string, profile *Profile) error
	BeginTx(ctx context.Context) (driver.ITransactionalDB, error)
	WithTx(tx driver.ITransactionalDB) UserRepository
}

type EducationRepository interface {
	ListByUser(ctx context.Context, userID string) ([]*EducationModel, error)
	Save(ctx context.Context, post *EducationModel) error
	Delete(ctx context.Context, userID, id string) (bool, error)
}

type UserUseCase interface {
	SignUp(ctx context.Context, post *UserModel) (*UserModel, error)
	SignIn(ctx context.Context, credential, password string) (*UserModel, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	GetProfile(ctx context.Context, id string) (*UserModel, error)
	UpdateProfile(ctx context.Context, id string, profile *Profile) (*UserModel, error)
	ListEducation(ctx context.Context, userID string) ([]*EducationModel, error)
	AddEducation(ctx context.Context, userID string, post *EducationModel) (*EducationModel, error)
	DeleteEducation(ctx context.Context, userID, id string) error
}
