package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/travel-journal/internal/apperror"
	"github.com/sakif/travel-journal/internal/auth"
	"github.com/sakif/travel-journal/internal/model"
)

// =========================================================================
// MOCK USER REPOSITORY
// =========================================================================
//
// A hand-written in-memory implementation of repository.UserRepository.
// The service doesn't know or care whether it's talking to SQLite or this
// map — that's the point of programming to the interface.

type mockUserRepo struct {
	byEmail map[string]*model.User
	nextID  int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byEmail: make(map[string]*model.User)}
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *model.User) error {
	if _, exists := m.byEmail[user.Email]; exists {
		return apperror.Conflict("user", "email already registered")
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	m.byEmail[user.Email] = &stored
	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", id)
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) UpsertUserByEmail(_ context.Context, user *model.User) error {
	if existing, ok := m.byEmail[user.Email]; ok {
		user.ID = existing.ID
		user.PasswordHash = existing.PasswordHash
		existing.Name = user.Name
		return nil
	}
	return m.CreateUser(context.Background(), user)
}

// =========================================================================
// TEST HELPER
// =========================================================================

func newTestAuthService(t *testing.T) (*AuthService, *mockUserRepo) {
	t.Helper()
	repo := newMockUserRepo()
	tokens, err := auth.NewTokenService("test-secret-key-for-service-tests", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewAuthService(repo, tokens, passwords, logger), repo
}

// =========================================================================
// REGISTER TESTS
// =========================================================================

func TestRegister(t *testing.T) {
	svc, _ := newTestAuthService(t)

	result, err := svc.Register(context.Background(), "Alice", "a@x.com", "pw123secret")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if result.User.ID == "" {
		t.Error("Register() did not assign a user ID")
	}
	if result.User.Email != "a@x.com" {
		t.Errorf("Email = %q, want %q", result.User.Email, "a@x.com")
	}
	if result.Token == "" {
		t.Error("Register() did not issue a token")
	}
	// The hash must never equal the plaintext, and must not be empty
	if result.User.PasswordHash == "" || result.User.PasswordHash == "pw123secret" {
		t.Error("Register() stored a missing or plaintext password")
	}

	// The issued token must validate back to the new user's ID
	userID, err := svc.ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if userID != result.User.ID {
		t.Errorf("token subject = %q, want %q", userID, result.User.ID)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)

	if _, err := svc.Register(context.Background(), "Alice", "a@x.com", "pw123secret"); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	_, err := svc.Register(context.Background(), "Mallory", "a@x.com", "otherpassword")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("second Register() error = %v, want ErrConflict", err)
	}
}

func TestRegister_EmailNormalization(t *testing.T) {
	svc, _ := newTestAuthService(t)

	if _, err := svc.Register(context.Background(), "Alice", "Alice@X.com ", "pw123secret"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Same address, different case — must conflict
	_, err := svc.Register(context.Background(), "Alice2", "alice@x.com", "pw123secret")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Register() with re-cased email error = %v, want ErrConflict", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestAuthService(t)

	tests := []struct {
		name     string
		userName string
		email    string
		password string
	}{
		{"empty name", "", "a@x.com", "pw123secret"},
		{"empty email", "Alice", "", "pw123secret"},
		{"malformed email", "Alice", "not-an-email", "pw123secret"},
		{"short password", "Alice", "a@x.com", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.userName, tt.email, tt.password)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Register() error = %v, want ErrValidation", err)
			}
		})
	}
}

// =========================================================================
// LOGIN TESTS
// =========================================================================

func TestLogin(t *testing.T) {
	svc, _ := newTestAuthService(t)

	reg, err := svc.Register(context.Background(), "Alice", "a@x.com", "pw123secret")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := svc.Login(context.Background(), "a@x.com", "pw123secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.User.ID != reg.User.ID {
		t.Errorf("Login() user ID = %q, want %q", result.User.ID, reg.User.ID)
	}
	if result.Token == "" {
		t.Error("Login() did not issue a token")
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	svc, _ := newTestAuthService(t)

	if _, err := svc.Register(context.Background(), "Alice", "a@x.com", "pw123secret"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@x.com", "pw123secret"},
		{"wrong password", "a@x.com", "wrong-password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			// BOTH failure modes must return the same Unauthorized error —
			// distinguishing them would leak which emails have accounts.
			if !errors.Is(err, apperror.ErrUnauthorized) {
				t.Errorf("Login() error = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestLogin_OAuthOnlyAccount(t *testing.T) {
	svc, repo := newTestAuthService(t)

	// Simulate an account created via GitHub sign-in: no password hash
	ghUser := &auth.GitHubUser{ID: 42, Login: "alice", Name: "Alice", Email: "a@x.com"}
	if _, err := svc.LoginOrRegisterGitHub(context.Background(), ghUser); err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if repo.byEmail["a@x.com"].PasswordHash != "" {
		t.Fatal("OAuth registration should not set a password hash")
	}

	_, err := svc.Login(context.Background(), "a@x.com", "")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Login() on OAuth-only account error = %v, want ErrUnauthorized", err)
	}
}

// =========================================================================
// TOKEN TESTS
// =========================================================================

func TestValidateToken_Invalid(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.ValidateToken("not.a.token")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("ValidateToken() error = %v, want ErrUnauthorized", err)
	}
}

func TestLoginOrRegisterGitHub_Repeat(t *testing.T) {
	svc, _ := newTestAuthService(t)

	ghUser := &auth.GitHubUser{ID: 42, Login: "alice", Name: "Alice", Email: "a@x.com"}

	first, err := svc.LoginOrRegisterGitHub(context.Background(), ghUser)
	if err != nil {
		t.Fatalf("first LoginOrRegisterGitHub() error = %v", err)
	}

	// Second sign-in must reuse the same account, not create another
	second, err := svc.LoginOrRegisterGitHub(context.Background(), ghUser)
	if err != nil {
		t.Fatalf("second LoginOrRegisterGitHub() error = %v", err)
	}
	if first.User.ID != second.User.ID {
		t.Errorf("repeat sign-in created a new user: %q vs %q", first.User.ID, second.User.ID)
	}
}
