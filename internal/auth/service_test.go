package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/avalonhealth/carehub-backend/pkg/auth"
	"github.com/avalonhealth/carehub-backend/pkg/auth/session"
	"github.com/avalonhealth/carehub-backend/pkg/config"
	"github.com/avalonhealth/carehub-backend/pkg/db/models"
	"github.com/avalonhealth/carehub-backend/pkg/enums"
	pkgerrors "github.com/avalonhealth/carehub-backend/pkg/errors"
	"github.com/avalonhealth/carehub-backend/pkg/security"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "carehub-test",
	ExpirationMinutes: 15,
}

type stubUserRepo struct {
	data      map[string]*models.User
	lastLogin map[uuid.UUID]time.Time
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		data:      map[string]*models.User{},
		lastLogin: map[uuid.UUID]time.Time{},
	}
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.data[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogin[id] = at
	return nil
}

type stubSessionManager struct {
	generated []string
	revoked   []string
	rotateErr error
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	newID := uuid.NewString()
	return newID, "refresh-" + newID, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func seedUser(t *testing.T, repo *stubUserRepo, email, password string, role enums.UserRole, hospitalID *uuid.UUID, active bool) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		HospitalID:   hospitalID,
		IsActive:     active,
	}
	repo.data[email] = user
	return user
}

func newLoginSetup(t *testing.T) (*stubUserRepo, *stubSessionManager, Service) {
	t.Helper()
	repo := newStubUserRepo()
	sessions := &stubSessionManager{}
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return repo, sessions, svc
}

func TestLoginIssuesScopedToken(t *testing.T) {
	repo, sessions, svc := newLoginSetup(t)
	hospitalID := uuid.New()
	user := seedUser(t, repo, "pat@example.com", "Secret123!", enums.UserRolePatient, &hospitalID, true)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "Pat@Example.com ", Password: "Secret123!"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if len(sessions.generated) != 1 {
		t.Fatalf("expected one generated session, got %d", len(sessions.generated))
	}
	if _, ok := repo.lastLogin[user.ID]; !ok {
		t.Fatal("expected last login to be recorded")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatal("token user mismatch")
	}
	if claims.HospitalID == nil || *claims.HospitalID != hospitalID {
		t.Fatal("token must carry the user's hospital")
	}
	if claims.Role != enums.UserRolePatient {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.ID != sessions.generated[0] {
		t.Fatal("token jti must match the stored session id")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo, _, svc := newLoginSetup(t)
	seedUser(t, repo, "pat@example.com", "Secret123!", enums.UserRolePatient, nil, true)

	cases := []LoginRequest{
		{Email: "pat@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "Secret123!"},
		{Email: "   ", Password: "Secret123!"},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req)
		if err == nil {
			t.Fatalf("expected login to fail for %q", req.Email)
		}
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected UNAUTHORIZED, got %v", err)
		}
		if typed.Error() != invalidCredentialsMessage {
			t.Fatalf("credential failures must share one message, got %q", typed.Error())
		}
	}
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	repo, _, svc := newLoginSetup(t)
	seedUser(t, repo, "gone@example.com", "Secret123!", enums.UserRoleStaff, nil, false)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "gone@example.com", Password: "Secret123!"})
	if err == nil {
		t.Fatal("expected login to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestRefreshRotatesSessionAndPreservesClaims(t *testing.T) {
	repo, _, svc := newLoginSetup(t)
	hospitalID := uuid.New()
	seedUser(t, repo, "staff@example.com", "Secret123!", enums.UserRoleStaff, &hospitalID, true)

	login, err := svc.Login(context.Background(), LoginRequest{Email: "staff@example.com", Password: "Secret123!"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, refreshed.AccessToken)
	if err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
	if claims.Role != enums.UserRoleStaff {
		t.Fatalf("refresh must preserve the role, got %s", claims.Role)
	}
	if claims.HospitalID == nil || *claims.HospitalID != hospitalID {
		t.Fatal("refresh must preserve the hospital scope")
	}

	original, err := pkgAuth.ParseAccessToken(testJWTConfig, login.AccessToken)
	if err != nil {
		t.Fatalf("parse original token: %v", err)
	}
	if claims.ID == original.ID {
		t.Fatal("refresh must rotate the session id")
	}
}

func TestRefreshRejectsInvalidSession(t *testing.T) {
	_, sessions, svc := newLoginSetup(t)
	sessions.rotateErr = session.ErrInvalidRefreshToken

	_, err := svc.Refresh(context.Background(), RefreshRequest{AccessToken: "garbage", RefreshToken: "x"})
	if err == nil {
		t.Fatal("expected refresh to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	_, sessions, svc := newLoginSetup(t)

	if err := svc.Logout(context.Background(), "access-id"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "access-id" {
		t.Fatalf("expected session revocation, got %v", sessions.revoked)
	}

	if err := svc.Logout(context.Background(), "  "); err == nil {
		t.Fatal("expected logout without session id to fail")
	}
}
