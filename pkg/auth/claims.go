package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RealmAccess lists the realm roles granted to the token subject.
type RealmAccess struct {
	Roles []string `json:"roles,omitempty"`
}

// KeycloakClaims is the subset of a Keycloak access token the API reads.
// The registered subject is the identity provider id of the caller.
type KeycloakClaims struct {
	PreferredUsername string      `json:"preferred_username,omitempty"`
	Email             string      `json:"email,omitempty"`
	EmailVerified     bool        `json:"email_verified,omitempty"`
	GivenName         string      `json:"given_name,omitempty"`
	FamilyName        string      `json:"family_name,omitempty"`
	Scope             string      `json:"scope,omitempty"`
	AuthorizedParty   string      `json:"azp,omitempty"`
	RealmAccess       RealmAccess `json:"realm_access,omitempty"`
	jwt.RegisteredClaims
}

// IdentityProviderID parses the subject claim.
func (c *KeycloakClaims) IdentityProviderID() (uuid.UUID, error) {
	if c == nil || c.Subject == "" {
		return uuid.Nil, fmt.Errorf("token has no subject")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse subject %q: %w", c.Subject, err)
	}
	return id, nil
}
