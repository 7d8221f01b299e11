package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken wraps every verification failure.
	ErrInvalidToken = errors.New("invalid access token")
	// ErrMissingKey is returned when no public key is supplied.
	ErrMissingKey = errors.New("signing key is required")
)

var signingMethod = jwt.SigningMethodRS256

// Verifier checks Keycloak issued access tokens against a realm public key.
// Only RS256 signatures and the expiry are enforced; the audience is not.
type Verifier struct {
	leeway time.Duration
	now    func() time.Time
}

type VerifierOption func(*Verifier)

// WithLeeway tolerates clock skew when validating exp/nbf/iat.
func WithLeeway(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.leeway = d
	}
}

// WithClock overrides the time source used for claim validation.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

func NewVerifier(opts ...VerifierOption) *Verifier {
	v := &Verifier{now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify validates the token signature and expiry and returns its claims.
func (v *Verifier) Verify(tokenString string, key *rsa.PublicKey) (*KeycloakClaims, error) {
	if key == nil {
		return nil, ErrMissingKey
	}
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	claims := &KeycloakClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != signingMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return key, nil
		},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims, nil
}
