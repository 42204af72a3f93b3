//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"fmt"

	"convo/auth"
	"convo/errors"
	"convo/repositories"
)

type IAuthService interface {
	Register(email, fullName, password string) (string, Token, error)
	Login(email, password string) (repositories.User, Token, error)
	FindUserByEmail(email string) (repositories.User, error)
}

type Token string

// AuthService owns accounts and credentials. It also implements the
// identity-provider contract the delivery engine consumes: Resolve for
// member validation, CurrentUser for bearer credentials.
type AuthService struct {
	users  repositories.IUserRepository
	tokens *auth.TokenIssuer
}

func NewAuthService(users repositories.IUserRepository, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register validates business rules before any expensive hashing, persists
// the account and returns the new user id with an initial session token.
func (s *AuthService) Register(email, fullName, password string) (string, Token, error) {
	req := auth.RegisterRequest{
		Email:    email,
		FullName: fullName,
		Password: password,
	}
	if err := auth.ValidateRegister(req); err != nil {
		return "", "", fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return "", "", fmt.Errorf("hashing failed: %w", err)
	}

	userID, err := s.users.CreateUser(email, fullName, hashed)
	if err != nil {
		return "", "", err // propagates ErrUserAlreadyExists when the email is taken
	}

	token, err := s.tokens.Issue(userID, []string{"user"})
	if err != nil {
		return "", "", errors.ErrTokenGeneration
	}
	return userID, Token(token), nil
}

// Login verifies credentials and issues a token. Failures stay generic to
// avoid confirming which emails exist.
func (s *AuthService) Login(email, password string) (repositories.User, Token, error) {
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		return repositories.User{}, "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return repositories.User{}, "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Roles)
	if err != nil {
		return repositories.User{}, "", errors.ErrTokenGeneration
	}
	return user, Token(token), nil
}

func (s *AuthService) FindUserByEmail(email string) (repositories.User, error) {
	return s.users.GetUserByEmail(email)
}

// Resolve implements contract.IdentityProvider.
func (s *AuthService) Resolve(userID string) (bool, error) {
	return s.users.Resolve(userID)
}

// CurrentUser implements contract.IdentityProvider: it maps a bearer
// credential onto the acting user id.
func (s *AuthService) CurrentUser(credential string) (string, error) {
	claims, err := s.tokens.Verify(credential)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidCredentials, err)
	}
	return claims.UserID, nil
}
