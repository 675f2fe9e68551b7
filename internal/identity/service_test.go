package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/outager/outager/internal/domain"
	"github.com/outager/outager/internal/identity/jwt"
	"github.com/outager/outager/internal/pkg/httputil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	profiles  map[string]*domain.Profile
	upsertErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{profiles: make(map[string]*domain.Profile)}
}

func (m *mockRepository) UpsertProfile(_ context.Context, p *domain.Profile) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for id, existing := range m.profiles {
		if id != p.ID && existing.Email == p.Email {
			return ErrEmailInUse
		}
	}
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *mockRepository) GetProfileByID(_ context.Context, id string) (*domain.Profile, error) {
	if p, ok := m.profiles[id]; ok {
		return p, nil
	}
	return nil, ErrProfileNotFound
}

func (m *mockRepository) GetProfileByEmail(_ context.Context, email string) (*domain.Profile, error) {
	for _, p := range m.profiles {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, ErrProfileNotFound
}

// mockVerifier returns fixed claims or an error.
type mockVerifier struct {
	claims *jwt.Claims
	err    error
}

func (m *mockVerifier) Verify(_ string) (*jwt.Claims, error) {
	return m.claims, m.err
}

func claimsFor(sub, email, name string) *jwt.Claims {
	c := jwt.NewClaims(sub, email, name, 0)
	return &c
}

func TestService_ValidateToken_UpsertsProfile(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, &mockVerifier{claims: claimsFor("user-1", "  Ann@Example.COM ", "Ann Lee")})

	userID, err := svc.ValidateToken(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	profile, err := svc.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", profile.Email)
	assert.Equal(t, "Ann Lee", profile.FullName)
}

func TestService_ValidateToken_InvalidToken(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, &mockVerifier{err: errors.New("signature is invalid")})

	_, err := svc.ValidateToken(context.Background(), "token")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Empty(t, repo.profiles)
}

func TestService_ValidateToken_RequiresEmail(t *testing.T) {
	svc := NewService(newMockRepository(), &mockVerifier{claims: claimsFor("user-1", " ", "")})

	_, err := svc.ValidateToken(context.Background(), "token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ValidateToken_ProfileSyncFailure(t *testing.T) {
	repo := newMockRepository()
	repo.upsertErr = errors.New("db down")
	svc := NewService(repo, &mockVerifier{claims: claimsFor("user-1", "a@example.com", "")})

	_, err := svc.ValidateToken(context.Background(), "token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestService_ValidateToken_EmailOwnedByAnotherProfile(t *testing.T) {
	repo := newMockRepository()
	repo.profiles["user-1"] = &domain.Profile{ID: "user-1", Email: "ann@example.com"}
	svc := NewService(repo, &mockVerifier{claims: claimsFor("user-2", "Ann@example.com", "")})

	_, err := svc.ValidateToken(context.Background(), "token")
	assert.ErrorIs(t, err, ErrEmailInUse)
	assert.NotErrorIs(t, err, ErrInvalidToken)
	assert.NotContains(t, repo.profiles, "user-2")
}

func TestAuthErrorMappings(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "invalid token", err: ErrInvalidToken, wantStatus: http.StatusUnauthorized},
		{name: "email in use", err: ErrEmailInUse, wantStatus: http.StatusConflict},
		{name: "store failure", err: fmt.Errorf("sync profile: %w", errors.New("connection refused")), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			httputil.HandleError(context.Background(), rec, tt.err, AuthErrorMappings)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}

func TestService_FindByEmail_CaseInsensitive(t *testing.T) {
	repo := newMockRepository()
	repo.profiles["user-1"] = &domain.Profile{ID: "user-1", Email: "ann@example.com"}
	svc := NewService(repo, &mockVerifier{})

	profile, err := svc.FindByEmail(context.Background(), " ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", profile.ID)

	_, err = svc.FindByEmail(context.Background(), "bob@example.com")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}
