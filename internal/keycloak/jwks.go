package keycloak

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// SigningKey is the realm public key used to verify access tokens.
type SigningKey struct {
	KeyID     string
	PublicKey *rsa.PublicKey
}

// SigningKey fetches the realm JWKS and returns the first RS256 signature key.
// The key set is fetched on every call.
func (c *Client) SigningKey(ctx context.Context) (*SigningKey, error) {
	resp, err := c.sendJSON(ctx, opSigningKey, http.MethodGet, c.realmURL("protocol/openid-connect/certs"), "", nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, resp.remoteError(opSigningKey, nil)
	}

	set, err := jwk.Parse(resp.body)
	if err != nil {
		return nil, fmt.Errorf("keycloak %s: parse jwks: %w", opSigningKey, err)
	}

	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		if alg := key.Algorithm(); alg == nil || alg.String() != jwa.RS256.String() {
			continue
		}
		if key.KeyUsage() != string(jwk.ForSignature) {
			continue
		}

		var pub rsa.PublicKey
		if err := key.Raw(&pub); err != nil {
			return nil, fmt.Errorf("keycloak %s: decode key %q: %w", opSigningKey, key.KeyID(), err)
		}
		return &SigningKey{KeyID: key.KeyID(), PublicKey: &pub}, nil
	}

	return nil, ErrNoSigningKey
}
