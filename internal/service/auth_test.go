package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"auctionhouse/internal/apperror"
	"auctionhouse/internal/auth"
	"auctionhouse/internal/model"
)

// mockUserRepo is an in-memory UserRepository. Hand-written rather than
// generated — the interface is four methods and the behaviour under test is
// the service's, not the store's.
type mockUserRepo struct {
	users  map[string]*model.User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.Username]; ok {
		return apperror.Conflict("user", user.Username)
	}
	m.nextID++
	user.ID = m.nextID
	stored := *user
	m.users[user.Username] = &stored
	return nil
}

func (m *mockUserRepo) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	user, ok := m.users[username]
	if !ok {
		return nil, apperror.NotFound("user", username)
	}
	result := *user
	return &result, nil
}

func (m *mockUserRepo) SetPaid(_ context.Context, username string, paid bool) error {
	user, ok := m.users[username]
	if !ok {
		return apperror.NotFound("user", username)
	}
	user.Paid = paid
	return nil
}

func (m *mockUserRepo) UpsertAdmin(_ context.Context, username, passwordHash string) error {
	if user, ok := m.users[username]; ok {
		user.PasswordHash = passwordHash
		user.IsAdmin = true
		return nil
	}
	m.nextID++
	m.users[username] = &model.User{
		ID:           m.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		IsAdmin:      true,
	}
	return nil
}

func newTestAuthService(t *testing.T) (*AuthService, *mockUserRepo) {
	t.Helper()
	repo := newMockUserRepo()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	// bcrypt cost 4 keeps these tests fast.
	passwords := auth.NewPasswordServiceForTest(4)
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars")
	if err != nil {
		t.Fatalf("creating token service: %v", err)
	}
	return NewAuthService(repo, passwords, tokens, logger), repo
}

func TestRegister_Success(t *testing.T) {
	svc, repo := newTestAuthService(t)

	if err := svc.Register(context.Background(), "ann", "password1"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	user, ok := repo.users["ann"]
	if !ok {
		t.Fatal("user was not stored")
	}
	if user.PasswordHash == "password1" || user.PasswordHash == "" {
		t.Error("password must be stored as a hash, not plaintext")
	}
	if user.Paid {
		t.Error("new users must not be marked paid")
	}
}

func TestRegister_UsernameTooShort(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	// Length is counted in characters, not bytes: "ая" is two characters
	// (four bytes) and must be rejected like "ab" is.
	for _, username := range []string{"ab", "ая"} {
		err := svc.Register(ctx, username, "password1")
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Register(%q) error = %v, want ErrValidation", username, err)
		}
	}

	if err := svc.Register(ctx, "аяя", "password1"); err != nil {
		t.Errorf("Register(three-character username) error = %v, want accepted", err)
	}
}

func TestRegister_MissingPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)

	err := svc.Register(context.Background(), "ann", "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	svc, repo := newTestAuthService(t)
	ctx := context.Background()

	if err := svc.Register(ctx, "ann", "password1"); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	err := svc.Register(ctx, "ann", "password2")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("second Register() error = %v, want ErrConflict", err)
	}
	if len(repo.users) != 1 {
		t.Errorf("stored users = %d, want 1 (no duplicate row)", len(repo.users))
	}
}

func TestLogin_Success(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if err := svc.Register(ctx, "ann", "password1"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	username, err := svc.Login(ctx, "ann", "password1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if username != "ann" {
		t.Errorf("Login() = %q, want %q", username, "ann")
	}
}

// Wrong password and unknown user must be indistinguishable to the caller.
func TestLogin_GenericFailure(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if err := svc.Register(ctx, "ann", "password1"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, wrongPass := svc.Login(ctx, "ann", "wrong")
	_, unknownUser := svc.Login(ctx, "ghost", "password1")

	if !errors.Is(wrongPass, apperror.ErrAuth) {
		t.Errorf("wrong password error = %v, want ErrAuth", wrongPass)
	}
	if !errors.Is(unknownUser, apperror.ErrAuth) {
		t.Errorf("unknown user error = %v, want ErrAuth", unknownUser)
	}
	if wrongPass.Error() != unknownUser.Error() {
		t.Errorf("failure messages differ: %q vs %q — username enumeration signal",
			wrongPass.Error(), unknownUser.Error())
	}
}

func TestLoginAdmin(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if err := svc.ProvisionAdmin(ctx, "root", "toor-secret"); err != nil {
		t.Fatalf("ProvisionAdmin() error = %v", err)
	}

	token, err := svc.LoginAdmin(ctx, "root", "toor-secret")
	if err != nil {
		t.Fatalf("LoginAdmin() error = %v", err)
	}
	if token == "" {
		t.Error("LoginAdmin() returned an empty token")
	}
}

// A regular account must not get an admin token, and the failure must look
// exactly like bad credentials.
func TestLoginAdmin_NonAdmin(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if err := svc.Register(ctx, "ann", "password1"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := svc.LoginAdmin(ctx, "ann", "password1")
	if !errors.Is(err, apperror.ErrAuth) {
		t.Errorf("error = %v, want ErrAuth", err)
	}
}

func TestLoginAdmin_Disabled(t *testing.T) {
	repo := newMockUserRepo()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewAuthService(repo, auth.NewPasswordServiceForTest(4), nil, logger)

	_, err := svc.LoginAdmin(context.Background(), "root", "x")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized when no token service is configured", err)
	}
}

func TestSetPaid(t *testing.T) {
	svc, repo := newTestAuthService(t)
	ctx := context.Background()

	if err := svc.Register(ctx, "ann", "password1"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := svc.SetPaid(ctx, "ann", true); err != nil {
		t.Fatalf("SetPaid() error = %v", err)
	}
	if !repo.users["ann"].Paid {
		t.Error("Paid = false, want true")
	}

	if err := svc.SetPaid(ctx, "ghost", true); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("SetPaid(ghost) error = %v, want ErrNotFound", err)
	}
}
