package identity

import (
	"context"

	"github.com/outager/outager/internal/domain"
)

// Repository defines the interface for profile storage.
type Repository interface {
	// UpsertProfile returns ErrEmailInUse when another profile already
	// owns profile.Email.
	UpsertProfile(ctx context.Context, profile *domain.Profile) error
	GetProfileByID(ctx context.Context, id string) (*domain.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error)
}
