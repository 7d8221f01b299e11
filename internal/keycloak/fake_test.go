package keycloak

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/userbridge-backend/pkg/config"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/require"
)

const (
	testRealm  = "acme"
	testClient = "userbridge"
	testSecret = "s3cret"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values
	Auth   string
	Body   []byte
}

// fakeKeycloak routes requests to per-path handlers and records every call.
type fakeKeycloak struct {
	t        *testing.T
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]http.HandlerFunc
	server   *httptest.Server
}

func newFakeKeycloak(t *testing.T) *fakeKeycloak {
	t.Helper()
	f := &fakeKeycloak{t: t, routes: map[string]http.HandlerFunc{}}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeKeycloak) handle(method, path string, h http.HandlerFunc) {
	f.routes[method+" "+path] = h
}

func (f *fakeKeycloak) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	rec := recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Auth:   r.Header.Get("Authorization"),
		Body:   body,
	}
	if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		rec.Form, _ = url.ParseQuery(string(body))
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()

	h, ok := f.routes[r.Method+" "+r.URL.Path]
	if !ok {
		http.Error(w, "unexpected route "+r.Method+" "+r.URL.Path, http.StatusNotFound)
		return
	}
	h(w, r)
}

func (f *fakeKeycloak) calls() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeKeycloak) client(opts ...Option) *Client {
	f.t.Helper()
	client, err := NewClient(config.KeycloakConfig{
		ServerURL:    f.server.URL,
		Realm:        testRealm,
		ClientID:     testClient,
		ClientSecret: testSecret,
		HTTPTimeout:  5 * time.Second,
	}, opts...)
	require.NoError(f.t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func tokenResponse(access, refresh string) map[string]any {
	return map[string]any{
		"access_token":       access,
		"refresh_token":      refresh,
		"token_type":         "Bearer",
		"expires_in":         300,
		"refresh_expires_in": 1800,
		"scope":              "openid email profile",
	}
}

const (
	tokenPath      = "/realms/" + testRealm + "/protocol/openid-connect/token"
	logoutPath     = "/realms/" + testRealm + "/protocol/openid-connect/logout"
	introspectPath = "/realms/" + testRealm + "/protocol/openid-connect/token/introspect"
	certsPath      = "/realms/" + testRealm + "/protocol/openid-connect/certs"
	usersPath      = "/admin/realms/" + testRealm + "/users"
)

func newRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

// jwksJSON publishes pub with the given alg and use, plus any extra keys.
func jwksJSON(t *testing.T, entries ...jwkEntry) []byte {
	t.Helper()
	set := jwk.NewSet()
	for _, e := range entries {
		key, err := jwk.FromRaw(e.pub)
		require.NoError(t, err)
		require.NoError(t, key.Set(jwk.KeyIDKey, e.kid))
		if e.alg != "" {
			require.NoError(t, key.Set(jwk.AlgorithmKey, e.alg))
		}
		if e.use != "" {
			require.NoError(t, key.Set(jwk.KeyUsageKey, e.use))
		}
		require.NoError(t, set.AddKey(key))
	}
	data, err := json.Marshal(set)
	require.NoError(t, err)
	return data
}

type jwkEntry struct {
	kid string
	alg string
	use string
	pub *rsa.PublicKey
}
