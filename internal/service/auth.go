// Package service contains the business logic layer.
//
// Handlers parse HTTP and translate errors; services enforce the rules;
// repositories talk to storage. Services receive repository interfaces and
// return domain errors from internal/apperror — they know nothing about
// HTTP or SQL.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"auctionhouse/internal/apperror"
	"auctionhouse/internal/auth"
	"auctionhouse/internal/model"
	"auctionhouse/internal/repository"
)

// MinUsernameLength is the shortest username accepted at registration.
const MinUsernameLength = 3

// AuthService handles registration, login, and admin authentication.
//
// tokens may be nil: without a configured JWT secret the admin surface is
// disabled and LoginAdmin fails, but registration and login work as usual.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

// Register creates a new user account.
//
// Usernames are case-sensitive and must be at least MinUsernameLength
// characters; the password must be non-empty. A duplicate username fails
// with a Conflict error — the UNIQUE constraint in the store is
// authoritative, so two concurrent registrations can't both win.
func (s *AuthService) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)

	// Characters, not bytes — a two-letter Cyrillic name is still too short.
	if utf8.RuneCountInString(username) < MinUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be at least %d characters", MinUsernameLength))
	}
	if password == "" {
		return apperror.ValidationFailed("password", "password is required")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return fmt.Errorf("registering %s: %w", username, err)
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hash,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return err
	}

	s.logger.Info("user registered", slog.String("username", username))
	return nil
}

// Login verifies credentials and returns the username as confirmation.
//
// Unknown user and wrong password produce the exact same error, so a caller
// can't probe which usernames exist. No session or token is issued for
// regular users — the API is sessionless by design.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.lookupAndVerify(ctx, username, password)
	if err != nil {
		return "", err
	}

	s.logger.Info("user logged in", slog.String("username", user.Username))
	return user.Username, nil
}

// LoginAdmin verifies admin credentials and returns a signed bearer token
// for the admin API. Non-admin accounts get the same generic failure as bad
// credentials.
func (s *AuthService) LoginAdmin(ctx context.Context, username, password string) (string, error) {
	if s.tokens == nil {
		return "", apperror.Unauthorized("admin API is not configured")
	}

	user, err := s.lookupAndVerify(ctx, username, password)
	if err != nil {
		return "", err
	}
	if !user.IsAdmin {
		return "", apperror.AuthFailed()
	}

	token, err := s.tokens.Generate(user.Username)
	if err != nil {
		return "", fmt.Errorf("issuing admin token for %s: %w", user.Username, err)
	}

	s.logger.Info("admin logged in", slog.String("username", user.Username))
	return token, nil
}

// ProvisionAdmin creates or updates the admin account from configuration.
// Called once at startup; the credentials come from the environment, never
// from a constant in the code or the schema.
func (s *AuthService) ProvisionAdmin(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if utf8.RuneCountInString(username) < MinUsernameLength || password == "" {
		return apperror.ValidationFailed("admin", "admin username and password are required")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return fmt.Errorf("provisioning admin %s: %w", username, err)
	}

	if err := s.users.UpsertAdmin(ctx, username, hash); err != nil {
		return err
	}

	s.logger.Info("admin account provisioned", slog.String("username", username))
	return nil
}

// SetPaid flips a user's paid flag. Admin-only at the HTTP layer.
func (s *AuthService) SetPaid(ctx context.Context, username string, paid bool) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return apperror.ValidationFailed("username", "username is required")
	}

	if err := s.users.SetPaid(ctx, username, paid); err != nil {
		return err
	}

	s.logger.Info("paid flag updated",
		slog.String("username", username),
		slog.Bool("paid", paid),
	)
	return nil
}

// lookupAndVerify fetches the user and checks the password, collapsing
// every failure mode into the same AuthFailed error.
func (s *AuthService) lookupAndVerify(ctx context.Context, username, password string) (*model.User, error) {
	if username == "" || password == "" {
		return nil, apperror.AuthFailed()
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.AuthFailed()
		}
		return nil, fmt.Errorf("looking up %s: %w", username, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.AuthFailed()
	}

	return user, nil
}
