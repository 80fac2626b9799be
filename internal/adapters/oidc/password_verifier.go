package oidc

// Package oidc verifies credentials against an OpenID Connect provider using the resource-owner password grant.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/oauth2"

	domainauth "github.com/assignpro/assignpro-web/internal/domain/auth"
	apperrors "github.com/assignpro/assignpro-web/internal/errors"
	"github.com/assignpro/assignpro-web/internal/ports"
)

// DefaultRoleClaim selects the role from a top-level "role" claim.
const DefaultRoleClaim = "role"

var _ ports.CredentialVerifier = (*PasswordVerifier)(nil)

// Config holds configuration for the password verifier.
type Config struct {
	ClientID     string
	ClientSecret string
	Scope        string
	DiscoveryURL string
	// RoleClaim is a JMESPath expression evaluated against the ID token claims.
	RoleClaim string
	// Fallback derives a role from the e-mail when the role claim is missing from the token.
	// A claim naming an unsupported role is rejected regardless. Optional; nil rejects.
	Fallback   ports.RoleMapper
	HTTPClient *http.Client // Optional, defaults to a client with a 30s timeout
}

// PasswordVerifier implements ports.CredentialVerifier against an OIDC provider.
type PasswordVerifier struct {
	config     *oauth2.Config
	verifier   *gooidc.IDTokenVerifier
	httpClient *http.Client
	roleClaim  jmespath.JMESPath
	fallback   ports.RoleMapper
}

// NewPasswordVerifier discovers the provider and builds a verifier.
func NewPasswordVerifier(ctx context.Context, cfg Config) (*PasswordVerifier, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(gooidc.ClientContext(ctx, httpClient), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	return newPasswordVerifier(cfg, op.Endpoint(), op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}))
}

func newPasswordVerifier(cfg Config, endpoint oauth2.Endpoint, v *gooidc.IDTokenVerifier) (*PasswordVerifier, error) {
	roleClaim := strings.TrimSpace(cfg.RoleClaim)
	if roleClaim == "" {
		roleClaim = DefaultRoleClaim
	}
	expr, err := jmespath.Compile(roleClaim)
	if err != nil {
		return nil, fmt.Errorf("invalid role claim expression %q: %w", roleClaim, err)
	}

	scopes := strings.Fields(cfg.Scope)
	if !hasOpenIDScope(scopes) {
		scopes = append([]string{gooidc.ScopeOpenID}, scopes...)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &PasswordVerifier{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		verifier:   v,
		httpClient: httpClient,
		roleClaim:  expr,
		fallback:   cfg.Fallback,
	}, nil
}

// VerifyCredentials exchanges the credentials for tokens and maps the verified ID token to an identity.
func (p *PasswordVerifier) VerifyCredentials(ctx context.Context, email, password string) (domainauth.Identity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	tok, err := p.config.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		return domainauth.Identity{}, mapTokenError(err)
	}

	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		return domainauth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "token response")
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return domainauth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthenticated, "verify id_token")
	}

	var claims map[string]any
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return domainauth.Identity{}, apperrors.Wrap(claimsErr, apperrors.ErrCodeInternal, "parse id_token claims")
	}

	mail := firstNonEmpty(stringClaim(claims, "email"), strings.TrimSpace(email))
	role, present := p.roleFromClaims(claims)
	if role == "" {
		if present || p.fallback == nil {
			return domainauth.Identity{}, apperrors.Unauthenticated("account has no supported role")
		}
		role = p.fallback.Map(mail)
	}

	name := firstNonEmpty(stringClaim(claims, "name"), stringClaim(claims, "preferred_username"), domainauth.LocalPart(mail))
	ident, err := domainauth.NewIdentity(idTok.Subject, name, mail, role)
	if err != nil {
		return domainauth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthenticated, "incomplete identity")
	}
	return ident, nil
}

// roleFromClaims evaluates the role expression. A list result yields its first supported role.
// present reports whether the token carried any value at all for the expression.
func (p *PasswordVerifier) roleFromClaims(claims map[string]any) (role domainauth.Role, present bool) {
	v, err := p.roleClaim.Search(claims)
	if err != nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		if strings.TrimSpace(val) == "" {
			return "", false
		}
		role, _ = domainauth.ParseRole(val)
		return role, true
	case []any:
		if len(val) == 0 {
			return "", false
		}
		for _, item := range val {
			if s, ok := item.(string); ok {
				if r, ok := domainauth.ParseRole(s); ok {
					return r, true
				}
			}
		}
		return "", true
	case nil:
		return "", false
	}
	return "", true
}

func mapTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorCode == "invalid_grant" || re.ErrorCode == "invalid_client" ||
			re.Response != nil && (re.Response.StatusCode == http.StatusBadRequest || re.Response.StatusCode == http.StatusUnauthorized) {
			return &apperrors.AppError{Code: apperrors.ErrCodeUnauthenticated, Message: "invalid email or password", Cause: err}
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.Wrap(err, apperrors.ErrCodeInternal, "token request")
}

func stringClaim(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return strings.TrimSpace(s)
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func hasOpenIDScope(scopes []string) bool {
	for _, sc := range scopes {
		if sc == gooidc.ScopeOpenID {
			return true
		}
	}
	return false
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	s, ok := tok.Extra("id_token").(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
