package identity

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	autherrors "github.com/adboardhq/auth-relay/internal/errors"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// OIDCProvider implements Provider against an OIDC-discoverable identity
// provider using the resource-owner password grant.
type OIDCProvider struct {
	provider           *oidc.Provider
	oauth2Config       *oauth2.Config
	revocationEndpoint string
	httpClient         *http.Client
}

var _ Provider = (*OIDCProvider)(nil)

// NewOIDCProvider discovers the issuer's endpoints and prepares the client.
func NewOIDCProvider(ctx context.Context, issuer, clientID, clientSecret string) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, errors.Wrap(err, "[NewOIDCProvider] oidc.NewProvider")
	}

	var discovery struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := provider.Claims(&discovery); err != nil {
		return nil, errors.Wrap(err, "[NewOIDCProvider] provider.Claims")
	}

	return &OIDCProvider{
		provider: provider,
		oauth2Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email", "offline_access"},
		},
		revocationEndpoint: discovery.RevocationEndpoint,
		httpClient:         http.DefaultClient,
	}, nil
}

// Verify exchanges the credentials for tokens and extracts the identity
// claims from the verified ID token.
func (p *OIDCProvider) Verify(ctx context.Context, email, password string) (*Tokens, error) {
	tok, err := p.oauth2Config.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, autherrors.Wrapf(autherrors.ErrAuthRejected, "identity provider: %s", retrieveErr.ErrorCode)
		}
		return nil, errors.Wrap(err, "[OIDCProvider.Verify] token request")
	}

	tokens := &Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Email:        email,
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("[OIDCProvider.Verify] no ID token in response")
	}
	idToken, err := p.provider.Verifier(&oidc.Config{ClientID: p.oauth2Config.ClientID}).Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(err, "[OIDCProvider.Verify] ID token verification")
	}

	var claims struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[OIDCProvider.Verify] claims")
	}
	tokens.UserID = claims.Sub
	if claims.Email != "" {
		tokens.Email = claims.Email
	}
	return tokens, nil
}

// Invalidate revokes the refresh token at the provider's revocation
// endpoint. Providers without one make this a no-op: local sign-out already
// happened and must not be blocked.
func (p *OIDCProvider) Invalidate(ctx context.Context, refreshToken string) error {
	if p.revocationEndpoint == "" || refreshToken == "" {
		return nil
	}
	form := url.Values{
		"token":           {refreshToken},
		"token_type_hint": {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revocationEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "[OIDCProvider.Invalidate] http.NewRequest")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.oauth2Config.ClientID, p.oauth2Config.ClientSecret)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "[OIDCProvider.Invalidate] do")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("[OIDCProvider.Invalidate] unexpected status %d", resp.StatusCode)
	}
	return nil
}
