// Package identity verifies callers and keeps their profiles in sync with
// the identity provider.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/outager/outager/internal/domain"
	"github.com/outager/outager/internal/identity/jwt"
	"github.com/outager/outager/internal/pkg/ctxlog"
)

// TokenVerifier validates a raw bearer token.
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

// Service implements identity business logic.
type Service struct {
	repo     Repository
	verifier TokenVerifier
}

// NewService creates a new identity service.
func NewService(repo Repository, verifier TokenVerifier) *Service {
	return &Service{
		repo:     repo,
		verifier: verifier,
	}
}

// ValidateToken verifies the token and upserts the caller's profile.
// It returns the identity-provider subject used as user id everywhere.
func (s *Service) ValidateToken(ctx context.Context, token string) (string, error) {
	claims, err := s.verifier.Verify(token)
	if err != nil {
		ctxlog.FromContext(ctx).Debug("token rejected", "error", err)
		return "", ErrInvalidToken
	}

	email := NormalizeEmail(claims.Email)
	if email == "" {
		return "", ErrInvalidToken
	}

	profile := &domain.Profile{
		ID:       claims.Subject,
		Email:    email,
		FullName: strings.TrimSpace(claims.Name),
	}
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		if errors.Is(err, ErrEmailInUse) {
			ctxlog.FromContext(ctx).Warn("token email owned by another profile", "subject", claims.Subject)
			return "", ErrEmailInUse
		}
		return "", fmt.Errorf("sync profile: %w", err)
	}

	return claims.Subject, nil
}

// GetProfile returns the profile of a user.
func (s *Service) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.repo.GetProfileByID(ctx, userID)
}

// FindByEmail resolves a profile by email, case-insensitively.
func (s *Service) FindByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return s.repo.GetProfileByEmail(ctx, NormalizeEmail(email))
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
