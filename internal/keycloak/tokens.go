package keycloak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Token is the grant response handed back to API callers.
type Token struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token,omitempty"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int64     `json:"expires_in"`
	RefreshExpiresIn int64     `json:"refresh_expires_in,omitempty"`
	Scope            string    `json:"scope,omitempty"`
	Expiry           time.Time `json:"-"`
}

// Introspection is the RFC 7662 answer for a token. Inactive tokens only
// carry Active=false.
type Introspection struct {
	Active    bool   `json:"active"`
	Subject   string `json:"sub,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Scope     string `json:"scope,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
}

func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.tokenURL(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// ServiceToken obtains an admin token through the client credentials grant.
func (c *Client) ServiceToken(ctx context.Context) (tok *Token, err error) {
	started := time.Now()
	defer func() { c.metrics.Track(opServiceToken, started, err) }()

	cfg := clientcredentials.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		TokenURL:     c.tokenURL(),
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	raw, err := cfg.Token(c.oauthContext(ctx))
	if err != nil {
		return nil, grantError(opServiceToken, err, nil)
	}
	return tokenFromOAuth(raw), nil
}

// UserToken exchanges a username and password for a user token pair. A 4xx
// rejection by Keycloak is reported as ErrInvalidCredentials.
func (c *Client) UserToken(ctx context.Context, username, password string) (tok *Token, err error) {
	started := time.Now()
	defer func() { c.metrics.Track(opUserToken, started, err) }()

	raw, err := c.oauthConfig().PasswordCredentialsToken(c.oauthContext(ctx), username, password)
	if err != nil {
		return nil, grantError(opUserToken, err, ErrInvalidCredentials)
	}
	return tokenFromOAuth(raw), nil
}

// RefreshToken redeems a refresh token for a new pair. A 4xx rejection by
// Keycloak is reported as ErrInvalidToken.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (tok *Token, err error) {
	started := time.Now()
	defer func() { c.metrics.Track(opRefreshToken, started, err) }()

	if refreshToken == "" {
		return nil, fmt.Errorf("%w: empty refresh token", ErrInvalidToken)
	}

	src := c.oauthConfig().TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	raw, err := src.Token()
	if err != nil {
		return nil, grantError(opRefreshToken, err, ErrInvalidToken)
	}
	return tokenFromOAuth(raw), nil
}

// RevokeToken ends the session behind a refresh token. It reports false when
// Keycloak rejected the token, which callers treat as already logged out.
func (c *Client) RevokeToken(ctx context.Context, refreshToken string) (bool, error) {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"refresh_token": {refreshToken},
	}
	resp, err := c.sendForm(ctx, opRevokeToken, c.realmURL("protocol/openid-connect/logout"), form)
	if err != nil {
		return false, err
	}
	switch resp.status {
	case http.StatusOK, http.StatusNoContent:
		return true, nil
	default:
		return false, nil
	}
}

// IntrospectToken asks Keycloak whether a token is active.
func (c *Client) IntrospectToken(ctx context.Context, token string) (*Introspection, error) {
	form := url.Values{
		"token":         {token},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	resp, err := c.sendForm(ctx, opIntrospectToken, c.realmURL("protocol/openid-connect/token/introspect"), form)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, resp.remoteError(opIntrospectToken, nil)
	}

	var out Introspection
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, fmt.Errorf("keycloak %s: decode response: %w", opIntrospectToken, err)
	}
	return &out, nil
}

// grantError converts a token endpoint failure. Only a client rejection (4xx)
// carries kind; 5xx answers stay plain remote failures and transport
// failures are returned wrapped.
func grantError(op string, err error, kind error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		if status < http.StatusBadRequest || status >= http.StatusInternalServerError {
			kind = nil
		}
		return &RemoteError{Op: op, StatusCode: status, Body: truncate(string(re.Body)), kind: kind}
	}
	return fmt.Errorf("keycloak %s: %w", op, err)
}

func tokenFromOAuth(raw *oauth2.Token) *Token {
	tok := &Token{
		AccessToken:  raw.AccessToken,
		RefreshToken: raw.RefreshToken,
		TokenType:    raw.TokenType,
		Expiry:       raw.Expiry,
	}
	if v, ok := numericExtra(raw, "expires_in"); ok {
		tok.ExpiresIn = v
	} else if !raw.Expiry.IsZero() {
		tok.ExpiresIn = int64(time.Until(raw.Expiry).Round(time.Second).Seconds())
	}
	if v, ok := numericExtra(raw, "refresh_expires_in"); ok {
		tok.RefreshExpiresIn = v
	}
	if scope, ok := raw.Extra("scope").(string); ok {
		tok.Scope = scope
	}
	return tok
}

func numericExtra(raw *oauth2.Token, key string) (int64, bool) {
	switch v := raw.Extra(key).(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}
