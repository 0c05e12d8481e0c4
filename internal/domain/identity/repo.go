package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no identity record matches the lookup.
var ErrNotFound = errors.New("user not found")

// UserRepository persists identity records.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params map[string]string, limit, offset int) ([]*User, int, error)

	// FindByIdentifier matches either the internal id or the legacy string
	// id against the raw identifier. role narrows the match when non-empty.
	FindByIdentifier(ctx context.Context, identifier, role string) (*User, error)

	// FindDoctorByNameLike returns the first doctor whose name fields
	// contain the fragment, case-insensitively.
	FindDoctorByNameLike(ctx context.Context, fragment string) (*User, error)
}
