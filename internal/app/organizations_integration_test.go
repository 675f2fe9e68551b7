//go:build integration

package app_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/outager/outager/internal/domain"
	"github.com/outager/outager/internal/identity/jwt"
	"github.com/outager/outager/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_ProtectedRoutesRequireToken(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.POST("/api/v1/organizations", map[string]any{"name": "Nope"})
	require.NoError(t, err)
	requireStatus(t, resp, http.StatusUnauthorized)
	assert.Equal(t, "missing or malformed authorization header", errorMessage(t, resp))

	forged := testutil.NewUser(t, "another-secret-0123456789abcdefgh", "mallory")
	resp, err = client.As(forged).GET("/api/v1/organizations/my-organizations")
	require.NoError(t, err)
	requireStatus(t, resp, http.StatusUnauthorized)
	assert.Equal(t, "invalid or expired token", errorMessage(t, resp))
}

func TestAuth_Me(t *testing.T) {
	user := testutil.NewUser(t, testSecret, "ada")

	resp, err := newTestClient(t).As(user).GET("/api/v1/auth/me")
	require.NoError(t, err)
	requireStatus(t, resp, http.StatusOK)

	profile := decode[domain.Profile](t, resp)
	assert.Equal(t, user.ID, profile.ID)
	assert.Equal(t, user.Email, profile.Email)
	assert.Equal(t, "ada", profile.FullName)
}

func TestAuth_EmailOwnedByAnotherSubject(t *testing.T) {
	first := newUser(t, "first")

	token, err := jwt.Sign(testSecret, jwt.NewClaims(uuid.NewString(), first.Email, "impostor", time.Hour))
	require.NoError(t, err)
	second := testutil.User{Email: first.Email, Token: token}

	resp, err := newTestClient(t).As(second).GET("/api/v1/auth/me")
	require.NoError(t, err)
	requireStatus(t, resp, http.StatusConflict)
	assert.Equal(t, "email is already registered to another account", errorMessage(t, resp))
}

func TestOrganizations_CreateAndResolve(t *testing.T) {
	owner := newUser(t, "owner")
	name := "Acme " + uuid.NewString()[:8]

	first := createOrganization(t, owner, name)
	second := createOrganization(t, owner, name)

	assert.NotEqual(t, first.Slug, second.Slug)
	assert.Equal(t, first.Slug+"-1", second.Slug)

	resp, err := newTestClient(t).GET("/api/v1/organizations/slug/" + first.Slug)
	require.NoError(t, err)
	requireStatus(t, resp, http.StatusOK)
	assert.Equal(t, first.ID, decode[domain.Organization](t, resp).ID)

	resp, err = newTestClient(t).As(owner).GET("/api/v1/organizations/my-organizations")
	require.NoError(t, err)
	requireStatus(t, resp, http.StatusOK)
	mine := decode[[]domain.OrganizationMembership](t, resp)
	require.Len(t, mine, 2)
	for _, m := range mine {
		assert.Equal(t, domain.RoleAdmin, m.Role)
	}
}

func TestOrganizations_InvalidName(t *testing.T) {
	owner := newUser(t, "owner")

	resp, err := newTestClient(t).As(owner).POST("/api/v1/organizations", map[string]any{"name": "!!!"})
	require.NoError(t, err)
	requireStatus(t, resp, http.StatusBadRequest)

	resp, err = newTestClient(t).As(owner).POST("/api/v1/organizations", map[string]any{"name": ""})
	require.NoError(t, err)
	requireStatus(t, resp, http.StatusBadRequest)
}

func TestOrganizations_UnknownSlug(t *testing.T) {
	resp, err := newTestClient(t).GET("/api/v1/organizations/slug/does-not-exist-" + uuid.NewString()[:8])
	require.NoError(t, err)
	requireStatus(t, resp, http.StatusNotFound)
}

func TestOrganizations_ConcurrentCreateGetsDistinctSlugs(t *testing.T) {
	owner := newUser(t, "owner")
	name := "Race " + uuid.NewString()[:8]

	const n = 5
	slugs := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Go(func() {
			client := testutil.NewClient(testServer.URL).As(owner)
			resp, err := client.POST("/api/v1/organizations", map[string]any{"name": name})
			if err != nil {
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusCreated {
				return
			}
			var out envelope[domain.Organization]
			if json.NewDecoder(resp.Body).Decode(&out) == nil {
				slugs[i] = out.Data.Slug
			}
		})
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, s := range slugs {
		require.NotEmpty(t, s)
		assert.False(t, seen[s], "duplicate slug %s", s)
		seen[s] = true
	}
}

func TestMembers_Lifecycle(t *testing.T) {
	admin := newUser(t, "admin")
	alice := newUser(t, "alice")
	bob := newUser(t, "bob")
	org := createOrganization(t, admin, "Team "+uuid.NewString()[:8])
	base := fmt.Sprintf("/api/v1/teams/%s/members", org.ID)

	member := addMember(t, admin, org.ID, alice, domain.RoleViewer)
	assert.Equal(t, alice.ID, member.UserID)
	assert.Equal(t, alice.Email, member.Email)

	t.Run("duplicate is a conflict", func(t *testing.T) {
		resp, err := newTestClient(t).As(admin).POST(base, map[string]any{"email": alice.Email, "role": "member"})
		require.NoError(t, err)
		requireStatus(t, resp, http.StatusConflict)
	})

	t.Run("unknown email", func(t *testing.T) {
		resp, err := newTestClient(t).As(admin).POST(base, map[string]any{"email": "nobody-" + uuid.NewString()[:8] + "@example.com", "role": "member"})
		require.NoError(t, err)
		requireStatus(t, resp, http.StatusNotFound)
	})

	t.Run("viewer cannot manage members", func(t *testing.T) {
		resp, err := newTestClient(t).As(alice).POST(base, map[string]any{"email": bob.Email, "role": "member"})
		require.NoError(t, err)
		requireStatus(t, resp, http.StatusForbidden)
	})

	t.Run("viewer can read members", func(t *testing.T) {
		resp, err := newTestClient(t).As(alice).GET(base)
		require.NoError(t, err)
		requireStatus(t, resp, http.StatusOK)
		assert.Len(t, decode[[]domain.Member](t, resp), 2)
	})

	t.Run("outsider cannot read members", func(t *testing.T) {
		resp, err := newTestClient(t).As(bob).GET(base)
		require.NoError(t, err)
		requireStatus(t, resp, http.StatusForbidden)
	})

	t.Run("promote", func(t *testing.T) {
		resp, err := newTestClient(t).As(admin).PATCH(base+"/"+member.ID, map[string]any{"role": "member"})
		require.NoError(t, err)
		requireStatus(t, resp, http.StatusOK)
		assert.Equal(t, domain.RoleMember, decode[domain.Membership](t, resp).Role)
	})

	t.Run("invalid role", func(t *testing.T) {
		resp, err := newTestClient(t).As(admin).PATCH(base+"/"+member.ID, map[string]any{"role": "owner"})
		require.NoError(t, err)
		requireStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("self removal is refused", func(t *testing.T) {
		resp, err := newTestClient(t).As(admin).GET(base)
		require.NoError(t, err)
		var adminMemberID string
		for _, m := range decode[[]domain.Member](t, resp) {
			if m.UserID == admin.ID {
				adminMemberID = m.ID
			}
		}
		require.NotEmpty(t, adminMemberID)

		resp, err = newTestClient(t).As(admin).DELETE(base + "/" + adminMemberID)
		require.NoError(t, err)
		requireStatus(t, resp, http.StatusBadRequest)
		assert.Equal(t, "you cannot remove yourself", errorMessage(t, resp))
	})

	t.Run("remove", func(t *testing.T) {
		resp, err := newTestClient(t).As(admin).DELETE(base + "/" + member.ID)
		require.NoError(t, err)
		requireStatus(t, resp, http.StatusNoContent)
		_ = resp.Body.Close()

		resp, err = newTestClient(t).As(admin).DELETE(base + "/" + member.ID)
		require.NoError(t, err)
		requireStatus(t, resp, http.StatusNotFound)
	})

	t.Run("malformed ids", func(t *testing.T) {
		resp, err := newTestClient(t).WithoutValidation().As(admin).GET("/api/v1/teams/not-a-uuid/members")
		require.NoError(t, err)
		requireStatus(t, resp, http.StatusBadRequest)
	})
}
