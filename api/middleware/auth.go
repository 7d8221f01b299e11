package middleware

import (
	"context"
	"crypto/rsa"
	"net/http"

	"github.com/angelmondragon/userbridge-backend/api/responses"
	"github.com/angelmondragon/userbridge-backend/api/validators"
	"github.com/angelmondragon/userbridge-backend/internal/keycloak"
	pkgAuth "github.com/angelmondragon/userbridge-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/userbridge-backend/pkg/errors"
	"github.com/angelmondragon/userbridge-backend/pkg/logger"
)

// SigningKeySource returns the current realm signing key.
type SigningKeySource interface {
	SigningKey(ctx context.Context) (*keycloak.SigningKey, error)
}

type accessTokenVerifier interface {
	Verify(token string, key *rsa.PublicKey) (*pkgAuth.KeycloakClaims, error)
}

// Auth validates a Keycloak bearer token against the realm signing key and
// seeds the request context with the caller's identity.
func Auth(keys SigningKeySource, verifier accessTokenVerifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := validators.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "missing credentials"))
				return
			}

			key, err := keys.SigningKey(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, keycloak.ToAppError(err, "signing_key"))
				return
			}

			claims, err := verifier.Verify(token, key.PublicKey)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxSubject, claims.Subject)
			ctx = context.WithValue(ctx, ctxUsername, claims.PreferredUsername)
			if logg != nil {
				ctx = logg.WithSubject(ctx, claims.Subject)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
