package identity

import (
	"context"

	autherrors "github.com/adboardhq/auth-relay/internal/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// ResolveRole determines the user's role with a fixed fallback order:
// dedicated profile record, then the user-metadata claim, then the
// app-metadata claim, defaulting to the non-privileged viewer role.
//
// The access token is parsed without signature verification: the role chain
// only mines optional metadata, and token validation is the identity
// provider's responsibility.
func ResolveRole(ctx context.Context, profiles ProfileStore, userID, accessToken string) RoleType {
	if profiles != nil {
		role, err := profiles.GetRole(ctx, userID)
		if err == nil && role != "" {
			return role
		}
		if err != nil && !autherrors.Is(err, autherrors.ErrNotFound) {
			log.Warn().Err(err).Str("userId", userID).Msg("profile role lookup failed, falling back to token claims")
		}
	}

	claims := parseClaims(accessToken)
	if role := metadataRole(claims, "user_metadata"); role != "" {
		return role
	}
	if role := metadataRole(claims, "app_metadata"); role != "" {
		return role
	}
	return RoleViewer
}

func parseClaims(accessToken string) jwt.MapClaims {
	if accessToken == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		log.Debug().Err(err).Msg("access token is not a parseable JWT, skipping claim roles")
		return nil
	}
	return claims
}

func metadataRole(claims jwt.MapClaims, key string) RoleType {
	metadata, ok := claims[key].(map[string]any)
	if !ok {
		return ""
	}
	role, ok := metadata["role"].(string)
	if !ok {
		return ""
	}
	return RoleType(role)
}
