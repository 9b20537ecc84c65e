// Package services – AccountService
//
// Registration and login for admin accounts. Password hashing and token
// issuing live in internal/auth; this service only coordinates them with
// the user repository.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/cobaltline/assistly-backend/internal/auth"
	"github.com/cobaltline/assistly-backend/internal/domain"
	"github.com/cobaltline/assistly-backend/internal/repo"
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	IssueToken(userID string) (string, error)
}

// AccountService manages registration and login.
type AccountService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Tokens issues JWTs on successful auth.
	Tokens TokenIssuer
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *gorm.DB, tokens TokenIssuer) *AccountService {
	return &AccountService{DB: db, Tokens: tokens}
}

// Register creates an account and returns the user plus a fresh token.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*domain.User, string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(email) == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	u, err := repo.CreateUser(ctx, s.DB, name, email, hash)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}
	tok, err := s.Tokens.IssueToken(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, tok, nil
}

// Login verifies credentials and returns the user plus a fresh token.
// Unknown email and wrong password both map to ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	tok, err := s.Tokens.IssueToken(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, tok, nil
}
