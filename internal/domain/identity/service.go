package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/Raidenx1212/meditech-sub001/internal/platform/httperr"
)

type Service struct {
	users UserRepository
}

func NewService(users UserRepository) *Service {
	return &Service{users: users}
}

func (s *Service) CreateUser(ctx context.Context, u *User) error {
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	if u.Email == "" {
		return httperr.Validation("email is required")
	}
	if u.Role == "" {
		u.Role = RolePatient
	}
	if !validRoles[u.Role] {
		return httperr.Validation("invalid role: " + u.Role)
	}
	if existing, err := s.users.GetByEmail(ctx, u.Email); err == nil && existing != nil {
		return httperr.Conflict("a user with this email already exists")
	}
	u.Active = true
	return s.users.Create(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, httperr.NotFound("user not found")
	}
	if err != nil {
		return nil, httperr.Internal("loading user", err)
	}
	return u, nil
}

func (s *Service) UpdateUser(ctx context.Context, u *User) error {
	if u.Role != "" && !validRoles[u.Role] {
		return httperr.Validation("invalid role: " + u.Role)
	}
	existing, err := s.users.GetByID(ctx, u.ID)
	if errors.Is(err, ErrNotFound) {
		return httperr.NotFound("user not found")
	}
	if err != nil {
		return httperr.Internal("loading user", err)
	}
	if u.Email == "" {
		u.Email = existing.Email
	}
	if u.Role == "" {
		u.Role = existing.Role
	}
	u.Active = existing.Active
	return s.users.Update(ctx, u)
}

func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httperr.NotFound("user not found")
		}
		return httperr.Internal("loading user", err)
	}
	return s.users.Delete(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, params map[string]string, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, params, limit, offset)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, map[string]string{"role": RoleDoctor}, limit, offset)
}
