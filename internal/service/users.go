package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/caiomelo/ticketeer/internal/clock"
	"github.com/caiomelo/ticketeer/internal/model"
	"github.com/caiomelo/ticketeer/internal/store"
)

// DefaultRole is assigned to accounts created without an explicit role.
const DefaultRole = "USER"

// UserService manages user accounts.
type UserService struct {
	users store.Users
	clock clock.Clock
}

// NewUserService constructs a UserService.
func NewUserService(users store.Users, clk clock.Clock) *UserService {
	return &UserService{users: users, clock: clk}
}

// Create validates and persists a new user. Email uniqueness is enforced
// by the store.
func (s *UserService) Create(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Name == "" {
		return nil, invalid("name", "is required")
	}
	if req.Email == "" {
		return nil, invalid("email", "is required")
	}
	if !isValidEmail(req.Email) {
		return nil, invalid("email", "is not a valid email address")
	}
	if req.Password == "" {
		return nil, invalid("password", "is required")
	}
	role := req.Role
	if role == "" {
		role = DefaultRole
	}

	user := &model.User{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Role:      role,
		CreatedAt: s.clock.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns a single user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	return s.users.Get(ctx, id)
}

// List returns users matching the filter.
func (s *UserService) List(ctx context.Context, f store.UserFilter) ([]model.User, error) {
	return s.users.List(ctx, f)
}

// Update applies the non-empty fields of req to an existing user.
func (s *UserService) Update(ctx context.Context, id string, req model.UpdateUserRequest) (*model.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		user.Name = strings.TrimSpace(req.Name)
	}
	if req.Email != "" {
		email := strings.TrimSpace(strings.ToLower(req.Email))
		if !isValidEmail(email) {
			return nil, invalid("email", "is not a valid email address")
		}
		user.Email = email
	}
	if req.Password != "" {
		user.Password = req.Password
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user.
func (s *UserService) Delete(ctx context.Context, id string) error {
	_, err := s.users.Delete(ctx, id)
	return err
}
