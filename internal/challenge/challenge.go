package challenge

import (
	"context"
	"errors"
)

// Challenge a scenario question with fixed options, read-only to the tracker
type Challenge struct {
	ID            string   `json:"id" yaml:"id" validate:"required"`
	Title         string   `json:"title" yaml:"title" validate:"required"`
	Scenario      string   `json:"scenario" yaml:"scenario" validate:"required"`
	Options       []string `json:"options" yaml:"options" validate:"min=2,dive,required"`
	CorrectAnswer string   `json:"correct_answer" yaml:"correct_answer" validate:"required"`
	Explanation   string   `json:"explanation" yaml:"explanation"`
	SkillCategory string   `json:"skill_category" yaml:"skill_category" validate:"required"`
	Difficulty    string   `json:"difficulty" yaml:"difficulty" validate:"oneof=beginner intermediate advanced"`
	CreatedAt     int64    `json:"created_at" yaml:"-"`
}

// ErrChallengeNotFound no challenge with the requested id
var ErrChallengeNotFound = errors.New("challenge not found")

// ErrorKind closed set of challenge failures surfaced to users
type ErrorKind int

const (
	// CatalogEmpty there are no challenges to serve
	CatalogEmpty ErrorKind = iota + 1
)

func (k ErrorKind) String() string {
	switch k {
	case CatalogEmpty:
		return "catalog_empty"
	}
	return "unknown"
}

// Error a user actionable challenge failure
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// ErrCatalogEmpty returned when the catalog holds no challenges
var ErrCatalogEmpty = &Error{Kind: CatalogEmpty, Message: "No challenges available. Try reseeding the catalog."}

type ChallengeRepository interface {
	GetChallenges(ctx context.Context) ([]*Challenge, error)
	GetChallengeByID(ctx context.Context, id string) (*Challenge, error)
	CountChallenges(ctx context.Context) (int, error)
	SaveChallenge(ctx context.Context, post *Challenge) error
}
