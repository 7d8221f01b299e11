package auth

import (
	"github.com/angelmondragon/userbridge-backend/internal/keycloak"
	"github.com/angelmondragon/userbridge-backend/internal/users"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token to redeem.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest carries the refresh token whose session should end.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// IntrospectRequest carries a token to check against Keycloak.
type IntrospectRequest struct {
	Token string `json:"token" validate:"required"`
}

// TokenResponse is the token pair returned by Keycloak grants.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in,omitempty"`
	Scope            string `json:"scope,omitempty"`
}

// LoginResponse contains the tokens and the local user produced by a successful login.
type LoginResponse struct {
	TokenResponse
	User *users.UserDTO `json:"user"`
}

// LogoutResponse acknowledges a logout request.
type LogoutResponse struct {
	Revoked bool   `json:"revoked"`
	Message string `json:"message"`
}

// IntrospectResponse reports whether a token is still active.
type IntrospectResponse struct {
	Active    bool   `json:"active"`
	Subject   string `json:"sub,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Scope     string `json:"scope,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
}

func tokenResponse(tok *keycloak.Token) TokenResponse {
	return TokenResponse{
		AccessToken:      tok.AccessToken,
		RefreshToken:     tok.RefreshToken,
		TokenType:        tok.TokenType,
		ExpiresIn:        tok.ExpiresIn,
		RefreshExpiresIn: tok.RefreshExpiresIn,
		Scope:            tok.Scope,
	}
}

func introspectResponse(in *keycloak.Introspection) *IntrospectResponse {
	if in == nil || !in.Active {
		return &IntrospectResponse{Active: false}
	}
	return &IntrospectResponse{
		Active:    true,
		Subject:   in.Subject,
		Username:  in.Username,
		Email:     in.Email,
		ClientID:  in.ClientID,
		Scope:     in.Scope,
		ExpiresAt: in.ExpiresAt,
	}
}
