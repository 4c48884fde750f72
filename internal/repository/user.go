package repository

import (
	"context"
	"errors"

	"videotube/internal/domain"
)

var (
	// ErrUserNotFound is returned when no user matches a lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when an insert collides with an existing username or email.
	ErrUserExists = errors.New("user already exists")
)

// UserRepository defines persistence operations for User entities.
// Implementations must enforce uniqueness of username and email themselves.
type UserRepository interface {
	Init(ctx context.Context) error
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (string, error)
	GetPublicByID(ctx context.Context, id string) (*domain.PublicUser, error)
}
