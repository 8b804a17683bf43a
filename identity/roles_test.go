package identity_test

import (
	"context"
	"testing"

	"github.com/adboardhq/auth-relay/identity"
	"github.com/adboardhq/auth-relay/identity/identityfakes"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestResolveRolePrefersProfileStore(t *testing.T) {
	profiles := identityfakes.NewFakeProfileStore()
	profiles.SetRole("user-1", identity.RoleAdmin)

	token := signedToken(t, jwt.MapClaims{
		"sub":           "user-1",
		"user_metadata": map[string]any{"role": "analyst"},
	})

	role := identity.ResolveRole(context.Background(), profiles, "user-1", token)
	require.Equal(t, identity.RoleAdmin, role)
}

func TestResolveRoleFallsBackToUserMetadata(t *testing.T) {
	profiles := identityfakes.NewFakeProfileStore() // no record

	token := signedToken(t, jwt.MapClaims{
		"sub":           "user-1",
		"user_metadata": map[string]any{"role": "analyst"},
		"app_metadata":  map[string]any{"role": "agency"},
	})

	role := identity.ResolveRole(context.Background(), profiles, "user-1", token)
	require.Equal(t, identity.RoleAnalyst, role)
}

func TestResolveRoleFallsBackToAppMetadata(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{
		"sub":          "user-1",
		"app_metadata": map[string]any{"role": "agency"},
	})

	role := identity.ResolveRole(context.Background(), identityfakes.NewFakeProfileStore(), "user-1", token)
	require.Equal(t, identity.RoleAgency, role)
}

func TestResolveRoleDefaultsToViewer(t *testing.T) {
	// Opaque (non-JWT) access token and no profile record.
	role := identity.ResolveRole(context.Background(), identityfakes.NewFakeProfileStore(), "user-1", "opaque-token")
	require.Equal(t, identity.RoleViewer, role)

	// Nil profile store is tolerated.
	role = identity.ResolveRole(context.Background(), nil, "user-1", "")
	require.Equal(t, identity.RoleViewer, role)
}
