package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/product_api/internal/hash"
	"github.com/Skotchmaster/product_api/internal/models"
	"github.com/Skotchmaster/product_api/internal/repo"
	"github.com/Skotchmaster/product_api/internal/tokens"
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Insert(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	RotateRefreshToken(ctx context.Context, u *models.User, presented string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

type AccessIssuer interface {
	Issue(user *models.User) (string, time.Time, error)
}

type RefreshGenerator interface {
	Generate() (string, error)
}

type AuthService struct {
	Repo    UserStore
	Hasher  PasswordHasher
	Access  AccessIssuer
	Refresh RefreshGenerator
	Now     func() time.Time

	// dummyHash is compared against when the email is unknown so both
	// failure paths cost one hash verification.
	dummyHash string
}

func NewAuthService(store UserStore, hasher PasswordHasher, access AccessIssuer, refresh RefreshGenerator) (*AuthService, error) {
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &AuthService{
		Repo:      store,
		Hasher:    hasher,
		Access:    access,
		Refresh:   refresh,
		Now:       func() time.Time { return time.Now().UTC() },
		dummyHash: dummy,
	}, nil
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

// Register creates a user without a session; the caller logs in afterwards.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	_, err := s.Repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrDuplicateEmail
	case !errors.Is(err, repo.ErrUserNotFound):
		return nil, fmt.Errorf("register: find user: %w", err)
	}

	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	pwHash, err := s.Hasher.Hash(password)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		Role:         models.DefaultRole,
		PasswordHash: pwHash,
	}
	if err := s.Repo.Insert(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("register: insert user: %w", err)
	}
	return user, nil
}

// Login returns ErrInvalidCredentials for both an unknown email and a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	user, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			s.Hasher.Verify(s.dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: find user: %w", err)
	}

	if !s.Hasher.Verify(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := s.Repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("login: save session: %w", err)
	}
	return pair, nil
}

// RefreshSession rotates the pair. The presented token is single use: once it
// succeeds, replaying it fails the same way an expired token does.
func (s *AuthService) RefreshSession(ctx context.Context, userID uuid.UUID, refreshToken string) (*models.TokenPair, error) {
	user, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("refresh: find user: %w", err)
	}

	if !sessionValid(user, refreshToken, s.now()) {
		return nil, ErrInvalidSession
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if err := s.Repo.RotateRefreshToken(ctx, user, refreshToken); err != nil {
		if errors.Is(err, repo.ErrStaleRefreshToken) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("refresh: save session: %w", err)
	}
	return pair, nil
}

// sessionValid: exact token match and now strictly before expiry.
func sessionValid(user *models.User, presented string, now time.Time) bool {
	if !user.HasSession() || presented == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(presented)) != 1 {
		return false
	}
	return now.Before(user.RefreshTokenExpiryTime)
}

// issuePair signs a new access token and overwrites user's session fields with a fresh refresh token.
func (s *AuthService) issuePair(user *models.User) (*models.TokenPair, error) {
	accessToken, accessExp, err := s.Access.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := s.Refresh.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	issuedAt := s.now()
	user.RefreshToken = &refreshToken
	user.TokenCreated = issuedAt
	user.RefreshTokenExpiryTime = tokens.RefreshExpiry(issuedAt)

	return &models.TokenPair{
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   user.RefreshTokenExpiryTime,
	}, nil
}
