package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/martincervantes/procurehub-backend/pkg/auth"
	"github.com/martincervantes/procurehub-backend/pkg/config"
	"github.com/martincervantes/procurehub-backend/pkg/db/models"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	pkgerrors "github.com/martincervantes/procurehub-backend/pkg/errors"
	"github.com/martincervantes/procurehub-backend/pkg/security"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "procurehub",
		ExpirationMinutes: 30,
	}
}

func TestServiceLoginMintsSessionBackedToken(t *testing.T) {
	password := "manager-secret"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "manager@example.com",
		Name:         "Dana Reyes",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleManager,
		IsActive:     true,
	}
	cfg := testJWTConfig()

	svc, sessions, err := buildTestService(user, cfg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    " Manager@Example.com ",
		Password: password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgauth.ParseAccessToken(cfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id claim %s, got %s", user.ID, claims.UserID)
	}
	if claims.Role != enums.UserRoleManager {
		t.Fatalf("expected manager role claim, got %s", claims.Role)
	}
	if claims.Name != "Dana Reyes" {
		t.Fatalf("expected name claim, got %q", claims.Name)
	}
	if len(sessions.started) != 1 || sessions.started[0] != claims.RegisteredClaims.ID {
		t.Fatalf("expected session started for jti %q, got %v", claims.RegisteredClaims.ID, sessions.started)
	}
	if resp.User == nil || resp.User.LastLoginAt == nil {
		t.Fatalf("expected login to stamp last_login_at")
	}
}

func TestServiceLoginRejectsBadCredentials(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "viewer@example.com",
		Name:         "Viewer",
		PasswordHash: mustHashPassword(t, "right-password"),
		Role:         enums.UserRoleViewer,
		IsActive:     true,
	}

	cases := []struct {
		name     string
		email    string
		password string
		inactive bool
		missing  bool
	}{
		{name: "wrong password", email: user.Email, password: "wrong"},
		{name: "unknown email", email: "ghost@example.com", password: "right-password", missing: true},
		{name: "blank email", email: "  ", password: "right-password"},
		{name: "inactive account", email: user.Email, password: "right-password", inactive: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			candidate := *user
			candidate.IsActive = !tc.inactive
			repo := stubUserRepo{user: &candidate}
			if tc.missing {
				repo = stubUserRepo{err: gorm.ErrRecordNotFound}
			}
			svc, err := NewService(ServiceParams{
				UserRepo:       repo,
				SessionManager: &stubSessionManager{},
				JWTConfig:      testJWTConfig(),
			})
			if err != nil {
				t.Fatalf("build service: %v", err)
			}

			_, err = svc.Login(context.Background(), LoginRequest{Email: tc.email, Password: tc.password})
			if err == nil {
				t.Fatalf("expected login to fail")
			}
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
				t.Fatalf("expected unauthorized error, got %v", err)
			}
		})
	}
}

func TestServiceLogoutRevokesSession(t *testing.T) {
	svc, sessions, err := buildTestService(&models.User{}, testJWTConfig())
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	if err := svc.Logout(context.Background(), "token-123"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "token-123" {
		t.Fatalf("expected session revoked, got %v", sessions.revoked)
	}

	err = svc.Logout(context.Background(), "  ")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized on blank token id, got %v", err)
	}
}

func buildTestService(user *models.User, jwtCfg config.JWTConfig) (Service, *stubSessionManager, error) {
	sessions := &stubSessionManager{}
	svc, err := NewService(ServiceParams{
		UserRepo:       stubUserRepo{user: user},
		SessionManager: sessions,
		JWTConfig:      jwtCfg,
	})
	return svc, sessions, err
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type stubUserRepo struct {
	user *models.User
	err  error
}

func (s stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func (s stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.user != nil && s.user.ID == id {
		s.user.LastLoginAt = &at
	}
	return nil
}

type stubSessionManager struct {
	started []string
	revoked []string
}

func (s *stubSessionManager) Start(ctx context.Context, tokenID string, userID uuid.UUID) error {
	s.started = append(s.started, tokenID)
	return nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, tokenID string) error {
	s.revoked = append(s.revoked, tokenID)
	return nil
}
