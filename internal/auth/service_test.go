package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/security"
)

type stubUserRepository struct {
	byEmail map[string]*models.User
}

func (s *stubUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubSessionManager struct {
	started  map[string]uuid.UUID
	revoked  []string
	startErr error
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{started: map[string]uuid.UUID{}}
}

func (s *stubSessionManager) Start(ctx context.Context, userID uuid.UUID) (string, error) {
	if s.startErr != nil {
		return "", s.startErr
	}
	id := uuid.NewString()
	s.started[id] = userID
	return id, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, sessionID string) error {
	s.revoked = append(s.revoked, sessionID)
	delete(s.started, sessionID)
	return nil
}

var testJWTConfig = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "storefront",
	ExpirationMinutes: 30,
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hashed, err := security.HashPassword(password, testPasswordConfig)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hashed
}

func buildTestService(t *testing.T, user *models.User) (Service, *stubSessionManager) {
	t.Helper()
	sessions := newStubSessionManager()
	repo := &stubUserRepository{byEmail: map[string]*models.User{}}
	if user != nil {
		repo.byEmail[user.Email] = user
	}
	svc, err := NewService(ServiceParams{UserRepo: repo, SessionManager: sessions, JWTConfig: testJWTConfig})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessions
}

func TestLoginMintsTokenBoundToSession(t *testing.T) {
	password := "admin-secret"
	user := &models.User{
		ID:           uuid.New(),
		Name:         "Admin",
		Email:        "admin@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.RoleAdmin,
	}
	svc, sessions := buildTestService(t, user)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: " ADMIN@example.com ", Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != enums.RoleAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if owner, ok := sessions.started[claims.ID]; !ok || owner != user.ID {
		t.Fatalf("expected session %s to be started for user", claims.ID)
	}
	if resp.User == nil || resp.User.Email != user.Email {
		t.Fatalf("expected user in response, got %+v", resp.User)
	}
	if time.Until(resp.ExpiresAt) <= 0 {
		t.Fatalf("expected future expiry, got %s", resp.ExpiresAt)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "buyer@example.com",
		PasswordHash: mustHashPassword(t, "correct-horse"),
		Role:         enums.RoleCustomer,
	}
	svc, sessions := buildTestService(t, user)

	cases := []LoginRequest{
		{Email: "buyer@example.com", Password: "wrong-password"},
		{Email: "missing@example.com", Password: "correct-horse"},
		{Email: "   ", Password: "correct-horse"},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req)
		if pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized for %q, got %v", req.Email, err)
		}
	}
	if len(sessions.started) != 0 {
		t.Fatalf("expected no sessions, got %d", len(sessions.started))
	}
}

func TestLoginSessionStoreFailure(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "buyer@example.com",
		PasswordHash: mustHashPassword(t, "correct-horse"),
		Role:         enums.RoleCustomer,
	}
	svc, sessions := buildTestService(t, user)
	sessions.startErr = errors.New("redis down")

	_, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "correct-horse"})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, sessions := buildTestService(t, nil)

	if err := svc.Logout(context.Background(), "session-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "session-1" {
		t.Fatalf("expected session-1 revoked, got %v", sessions.revoked)
	}
	if err := svc.Logout(context.Background(), ""); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for empty session, got %v", err)
	}
}
