package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/userbridge-backend/internal/keycloak"
	"github.com/angelmondragon/userbridge-backend/internal/users"
	pkgAuth "github.com/angelmondragon/userbridge-backend/pkg/auth"
	"github.com/angelmondragon/userbridge-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/userbridge-backend/pkg/errors"
	"github.com/angelmondragon/userbridge-backend/pkg/logger"
	"github.com/google/uuid"
)

const (
	stepUserToken    = "provider_user_token"
	stepSigningKey   = "signing_key"
	stepVerifyToken  = "verify_token"
	stepLocalLookup  = "local_lookup"
	stepRefreshToken = "provider_refresh_token"
	stepRevokeToken  = "provider_revoke_token"
	stepIntrospect   = "provider_introspect"
	stepClientToken  = "provider_client_token"
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error)
	Logout(ctx context.Context, req LogoutRequest) (*LogoutResponse, error)
	Introspect(ctx context.Context, req IntrospectRequest) (*IntrospectResponse, error)
	ClientToken(ctx context.Context) (*TokenResponse, error)
}

type identityProvider interface {
	ServiceToken(ctx context.Context) (*keycloak.Token, error)
	UserToken(ctx context.Context, username, password string) (*keycloak.Token, error)
	RefreshToken(ctx context.Context, refreshToken string) (*keycloak.Token, error)
	RevokeToken(ctx context.Context, refreshToken string) (bool, error)
	IntrospectToken(ctx context.Context, token string) (*keycloak.Introspection, error)
	SigningKey(ctx context.Context) (*keycloak.SigningKey, error)
}

type tokenVerifier interface {
	Verify(token string, key *rsa.PublicKey) (*pkgAuth.KeycloakClaims, error)
}

type userRepository interface {
	FindByIdentityProviderID(ctx context.Context, identityProviderID uuid.UUID) (*models.User, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	IdentityProvider identityProvider
	Verifier         tokenVerifier
	UserRepo         userRepository
	Logger           *logger.Logger
}

type service struct {
	idp      identityProvider
	verifier tokenVerifier
	users    userRepository
	logg     *logger.Logger
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.IdentityProvider == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if params.Verifier == nil {
		return nil, fmt.Errorf("token verifier is required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		idp:      params.IdentityProvider,
		verifier: params.Verifier,
		users:    params.UserRepo,
		logg:     params.Logger,
	}, nil
}

// Login exchanges credentials with Keycloak, verifies the issued access token
// and only admits callers with an active local row and a verified email.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username and password are required")
	}

	tok, err := s.idp.UserToken(ctx, username, req.Password)
	if err != nil {
		return nil, keycloak.ToAppError(err, stepUserToken)
	}

	key, err := s.idp.SigningKey(ctx)
	if err != nil {
		return nil, keycloak.ToAppError(err, stepSigningKey)
	}

	claims, err := s.verifier.Verify(tok.AccessToken, key.PublicKey)
	if err != nil {
		return nil, verifyError(err)
	}
	identityProviderID, err := claims.IdentityProviderID()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid or expired token").
			WithDetail("step", stepVerifyToken)
	}

	ctx = s.logg.WithSubject(ctx, identityProviderID.String())

	user, err := s.users.FindByIdentityProviderID(ctx, identityProviderID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			s.logg.Warn(ctx, "auth.login.no_local_user")
			return nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "user is not registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user").
			WithDetail("step", stepLocalLookup)
	}
	if !user.EmailVerified {
		s.logg.Warn(s.logg.WithUserID(ctx, user.ID.String()), "auth.login.email_unverified")
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "email address is not verified")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "auth.login.succeeded")
	return &LoginResponse{
		TokenResponse: tokenResponse(tok),
		User:          users.FromModel(user),
	}, nil
}

func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	tok, err := s.idp.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, keycloak.ToAppError(err, stepRefreshToken)
	}
	resp := tokenResponse(tok)
	return &resp, nil
}

// Logout ends the Keycloak session. A token Keycloak no longer recognises is
// acknowledged rather than reported as a failure.
func (s *service) Logout(ctx context.Context, req LogoutRequest) (*LogoutResponse, error) {
	revoked, err := s.idp.RevokeToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, keycloak.ToAppError(err, stepRevokeToken)
	}
	if !revoked {
		return &LogoutResponse{Revoked: false, Message: "session already ended"}, nil
	}
	return &LogoutResponse{Revoked: true, Message: "logged out"}, nil
}

func (s *service) Introspect(ctx context.Context, req IntrospectRequest) (*IntrospectResponse, error) {
	result, err := s.idp.IntrospectToken(ctx, req.Token)
	if err != nil {
		return nil, keycloak.ToAppError(err, stepIntrospect)
	}
	return introspectResponse(result), nil
}

// ClientToken returns a client credentials token for local tooling.
func (s *service) ClientToken(ctx context.Context) (*TokenResponse, error) {
	tok, err := s.idp.ServiceToken(ctx)
	if err != nil {
		return nil, keycloak.ToAppError(err, stepClientToken)
	}
	resp := tokenResponse(tok)
	return &resp, nil
}

func verifyError(err error) error {
	if errors.Is(err, pkgAuth.ErrMissingKey) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "signing key unavailable").
			WithDetail("step", stepSigningKey)
	}
	return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid or expired token").
		WithDetail("step", stepVerifyToken)
}
