package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"ledger/internal/auth"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/repository"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 32
	minPasswordLength = 8
)

// UserService registers and authenticates users.
type UserService struct {
	users  repository.UserStore
	logger *log.Logger
}

func NewUserService(users repository.UserStore, logger *log.Logger) *UserService {
	return &UserService{users: users, logger: logger.WithComponent(log.ComponentUser)}
}

// Register creates a standard user. Privileged accounts are only created by
// EnsureAdmin.
func (s *UserService) Register(ctx context.Context, username, password string) (core.User, error) {
	return s.create(ctx, username, password, core.RoleStandard)
}

// Authenticate checks credentials. Unknown users and wrong passwords both
// fail with core.ErrUnauthorized.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, core.ErrNotFound) {
		s.logger.InfoContext(ctx, "Login failed", log.FieldOperation, log.OpLogin, "reason", "unknown user")
		return core.User{}, core.ErrUnauthorized
	}
	if err != nil {
		return core.User{}, fmt.Errorf("authenticate: %w", err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		s.logger.InfoContext(ctx, "Login failed", log.FieldOperation, log.OpLogin, log.FieldUserID, u.ID)
		return core.User{}, core.ErrUnauthorized
	}
	return u, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (core.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// EnsureAdmin creates the privileged account if the username is free. An
// existing account of that name is left untouched.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) (core.User, error) {
	if u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username)); err == nil {
		if u.Role != core.RolePrivileged {
			s.logger.WarnContext(ctx, "Seed admin name belongs to a standard user", "username", u.Username)
		}
		return u, nil
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.User{}, err
	}
	return s.create(ctx, username, password, core.RolePrivileged)
}

// CreateUser creates a user of the given role, for operator tooling.
func (s *UserService) CreateUser(ctx context.Context, username, password string, role core.Role) (core.User, error) {
	if !role.IsValid() {
		return core.User{}, &core.ValidationError{Field: "role", Reason: "unknown role " + string(role)}
	}
	return s.create(ctx, username, password, role)
}

func (s *UserService) create(ctx context.Context, username, password string, role core.Role) (core.User, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return core.User{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, core.User{Username: username, PasswordHash: hash, Role: role})
	if err != nil {
		return core.User{}, err
	}
	s.logger.InfoContext(ctx, "User registered",
		log.FieldOperation, log.OpRegister,
		log.FieldUserID, u.ID,
		log.FieldRole, u.Role.String())
	return u, nil
}

func validateCredentials(username, password string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLength || n > maxUsernameLength {
		return &core.ValidationError{Field: "username", Reason: fmt.Sprintf("must be %d to %d characters", minUsernameLength, maxUsernameLength)}
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return &core.ValidationError{Field: "username", Reason: "must not contain whitespace"}
	}
	if utf8.RuneCountInString(password) < minPasswordLength || !utf8.ValidString(password) {
		return &core.ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}
	return nil
}
