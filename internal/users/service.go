package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martincervantes/procurehub-backend/pkg/config"
	"github.com/martincervantes/procurehub-backend/pkg/db"
	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
	"github.com/martincervantes/procurehub-backend/pkg/security"
)

const minPasswordLength = 8

// Service manages operator accounts. The router gates every operation to
// admins.
type Service interface {
	Create(ctx context.Context, input CreateUserInput) (*UserDTO, error)
	Get(ctx context.Context, ref string) (*UserDTO, error)
	List(ctx context.Context, input ListUsersInput) (*UserListResult, error)
	SeedAdmin(ctx context.Context, seed config.SeedConfig) error
}

type service struct {
	repo        *Repository
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewService constructs the user management service.
func NewService(repo *Repository, passwordCfg config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, passwordCfg: passwordCfg, logg: logg}, nil
}

// Create inserts an operator account with a hashed credential.
func (s *service) Create(ctx context.Context, input CreateUserInput) (*UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid email required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password too short").
			WithDetails(map[string]any{"min_length": minPasswordLength})
	}
	role := input.Role
	if role == "" {
		role = enums.UserRoleViewer
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "idx_users_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert user")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"email": email,
		"role":  role.String(),
	}), "user created")
	return FromModel(user), nil
}

// Get loads one user by uuid or email.
func (s *service) Get(ctx context.Context, ref string) (*UserDTO, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user reference required")
	}

	var user *models.User
	var err error
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		user, err = s.repo.FindByID(ctx, id)
	} else {
		user, err = s.repo.FindByEmail(ctx, strings.ToLower(ref))
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

// List pages through operator accounts.
func (s *service) List(ctx context.Context, input ListUsersInput) (*UserListResult, error) {
	rows, nextCursor, err := s.repo.List(ctx, input.Pagination)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return &UserListResult{Users: out, NextCursor: nextCursor}, nil
}

// SeedAdmin creates the bootstrap admin account when the table is empty and
// the seed config is present. A populated table makes this a no-op.
func (s *service) SeedAdmin(ctx context.Context, seed config.SeedConfig) error {
	if seed.AdminEmail == "" || seed.AdminPassword == "" {
		return nil
	}
	count, err := s.repo.Count(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count users")
	}
	if count > 0 {
		return nil
	}

	_, err = s.Create(ctx, CreateUserInput{
		Email:    seed.AdminEmail,
		Name:     seed.AdminName,
		Password: seed.AdminPassword,
		Role:     enums.UserRoleAdmin,
	})
	if err != nil {
		// Two instances booting at once both see zero rows; the loser's
		// conflict is fine.
		if pkgerrors.CodeOf(err) == pkgerrors.CodeConflict {
			return nil
		}
		return err
	}
	s.logg.Info(ctx, "admin account seeded")
	return nil
}
