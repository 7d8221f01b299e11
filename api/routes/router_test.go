package routes

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/userbridge-backend/internal/auth"
	"github.com/angelmondragon/userbridge-backend/internal/keycloak"
	"github.com/angelmondragon/userbridge-backend/internal/roles"
	"github.com/angelmondragon/userbridge-backend/internal/users"
	pkgAuth "github.com/angelmondragon/userbridge-backend/pkg/auth"
	"github.com/angelmondragon/userbridge-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/userbridge-backend/pkg/errors"
	"github.com/angelmondragon/userbridge-backend/pkg/logger"
	"github.com/angelmondragon/userbridge-backend/pkg/metrics"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubKeys struct {
	key *rsa.PublicKey
}

func (s stubKeys) SigningKey(ctx context.Context) (*keycloak.SigningKey, error) {
	return &keycloak.SigningKey{KeyID: "kid", PublicKey: s.key}, nil
}

type stubRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (s *stubRateStore) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[scope]++
	return s.counts[scope] <= limit, s.counts[scope], nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

func (stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.TokenResponse, error) {
	return &auth.TokenResponse{AccessToken: "new"}, nil
}

func (stubAuthService) Logout(ctx context.Context, req auth.LogoutRequest) (*auth.LogoutResponse, error) {
	return &auth.LogoutResponse{Revoked: true, Message: "logged out"}, nil
}

func (stubAuthService) Introspect(ctx context.Context, req auth.IntrospectRequest) (*auth.IntrospectResponse, error) {
	return &auth.IntrospectResponse{Active: false}, nil
}

func (stubAuthService) ClientToken(ctx context.Context) (*auth.TokenResponse, error) {
	return &auth.TokenResponse{AccessToken: "svc"}, nil
}

type stubUserService struct {
	user *users.UserDTO
}

func (s stubUserService) Create(ctx context.Context, req users.CreateUserRequest) (*users.UserDTO, error) {
	return &users.UserDTO{ID: uuid.New(), Username: req.Username, Email: req.Email}, nil
}

func (s stubUserService) Get(ctx context.Context, id uuid.UUID) (*users.UserDTO, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

func (s stubUserService) List(ctx context.Context, page, pageSize int) ([]users.UserDTO, error) {
	return []users.UserDTO{}, nil
}

func (s stubUserService) Update(ctx context.Context, id uuid.UUID, req users.UpdateUserRequest) (*users.UserDTO, error) {
	return s.Get(ctx, id)
}

func (s stubUserService) Delete(ctx context.Context, id uuid.UUID) error {
	return errors.New("not implemented")
}

func (s stubUserService) ResetPassword(ctx context.Context, id uuid.UUID, password string) error {
	return nil
}

type stubRolesService struct{}

func (stubRolesService) List(ctx context.Context) ([]roles.RoleDTO, error) {
	return []roles.RoleDTO{{ID: uuid.New(), Name: "admin", Capabilities: []roles.CapabilityDTO{}}}, nil
}

func (stubRolesService) ListForUser(ctx context.Context, userID uuid.UUID) ([]roles.RoleDTO, error) {
	return []roles.RoleDTO{}, nil
}

type routerFixture struct {
	handler http.Handler
	priv    *rsa.PrivateKey
	user    *users.UserDTO
}

func newRouterFixture(t *testing.T, env string, dbErr error) *routerFixture {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	reg := prometheus.NewRegistry()
	user := &users.UserDTO{ID: uuid.New(), Username: "jdoe"}
	cfg := &config.Config{
		App: config.AppConfig{Env: env},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:        time.Minute,
			LoginIPLimit:       2,
			LoginUsernameLimit: 2,
		},
	}
	handler := NewRouter(Deps{
		Config:       cfg,
		Logger:       logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:           stubPinger{err: dbErr},
		Redis:        stubPinger{},
		RateLimiter:  &stubRateStore{counts: map[string]int64{}},
		SigningKeys:  stubKeys{key: &priv.PublicKey},
		Verifier:     pkgAuth.NewVerifier(),
		Gatherer:     reg,
		HTTPMetrics:  metrics.NewHTTPMetrics(reg),
		AuthService:  stubAuthService{},
		UserService:  stubUserService{user: user},
		RolesService: stubRolesService{},
	})
	return &routerFixture{handler: handler, priv: priv, user: user}
}

func (f *routerFixture) token(t *testing.T) string {
	t.Helper()
	claims := pkgAuth.KeycloakClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(f.priv)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (f *routerFixture) do(method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "10.0.0.1:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	f := newRouterFixture(t, "dev", nil)
	if rec := f.do(http.MethodGet, "/health/live", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected live 200, got %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected ready 200, got %d", rec.Code)
	}

	down := newRouterFixture(t, "dev", errors.New("connection refused"))
	if rec := down.do(http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected ready 503, got %d", rec.Code)
	}
}

func TestUsersRequireBearerToken(t *testing.T) {
	f := newRouterFixture(t, "dev", nil)

	if rec := f.do(http.MethodGet, "/api/v1/users", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/api/v1/roles", "", "garbage"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/api/v1/users", "", f.token(t)); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
}

func TestUserRoutes(t *testing.T) {
	f := newRouterFixture(t, "dev", nil)
	token := f.token(t)

	rec := f.do(http.MethodGet, "/api/v1/users/"+f.user.ID.String(), "", token)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "jdoe") {
		t.Fatalf("expected user payload, got %d %s", rec.Code, rec.Body.String())
	}

	if rec := f.do(http.MethodGet, "/api/v1/users/not-a-uuid", "", token); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/api/v1/users/"+uuid.NewString(), "", token); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/api/v1/users?page_size=1000", "", token); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized page, got %d", rec.Code)
	}

	create := `{"username":"new","first_name":"N","last_name":"U","email":"New@Example.com","phone_number":"+15550100","password":"password123"}`
	rec = f.do(http.MethodPost, "/api/v1/users", create, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "new@example.com") {
		t.Fatalf("expected normalized email, got %s", rec.Body.String())
	}

	if rec := f.do(http.MethodPost, "/api/v1/users", `{"username":"x"}`, token); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid body, got %d", rec.Code)
	}

	rec = f.do(http.MethodPost, "/api/v1/users/"+f.user.ID.String()+"/password", `{"password":"short"}`, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", rec.Code)
	}

	rec = f.do(http.MethodGet, "/api/v1/users/"+f.user.ID.String()+"/roles", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for user roles, got %d", rec.Code)
	}
}

func TestClientTokenOnlyOutsideProduction(t *testing.T) {
	dev := newRouterFixture(t, "dev", nil)
	if rec := dev.do(http.MethodGet, "/api/v1/auth/token/client", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected client token route in dev, got %d", rec.Code)
	}

	prod := newRouterFixture(t, "prod", nil)
	if rec := prod.do(http.MethodGet, "/api/v1/auth/token/client", "", ""); rec.Code == http.StatusOK {
		t.Fatalf("client token route must not be served in prod")
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	f := newRouterFixture(t, "dev", nil)
	body := `{"username":"jdoe","password":"wrong"}`

	for i := 0; i < 2; i++ {
		if rec := f.do(http.MethodPost, "/api/v1/auth/login", body, ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, rec.Code)
		}
	}
	if rec := f.do(http.MethodPost, "/api/v1/auth/login", body, ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newRouterFixture(t, "dev", nil)
	f.do(http.MethodGet, "/health/live", "", "")

	rec := f.do(http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `http_requests_total{method="GET",route="/health/live",status="200"} 1`) {
		t.Fatalf("expected live request to be counted, got %s", rec.Body.String())
	}
}
