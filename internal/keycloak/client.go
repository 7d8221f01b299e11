package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/userbridge-backend/pkg/config"
	"github.com/angelmondragon/userbridge-backend/pkg/metrics"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout          = 10 * time.Second
	responseBodyLimit int64 = 64 * 1024
	errorBodyLimit          = 512
)

const (
	opServiceToken      = "service_token"
	opUserToken         = "user_token"
	opRefreshToken      = "refresh_token"
	opRevokeToken       = "revoke_token"
	opIntrospectToken   = "introspect_token"
	opSigningKey        = "signing_key"
	opFindUser          = "find_user"
	opCreateUser        = "create_user"
	opSetUserEnabled    = "set_user_enabled"
	opVerificationEmail = "verification_email"
	opResetPassword     = "reset_password"
)

var (
	errServerURLRequired = errors.New("keycloak server url is required")
	errRealmRequired     = errors.New("keycloak realm is required")
	errClientIDRequired  = errors.New("keycloak client id is required")
)

// Client talks to a single Keycloak realm using one confidential client for
// token grants and admin calls. Every method performs exactly one remote
// round trip per step and never retries.
type Client struct {
	httpClient   *http.Client
	serverURL    string
	realm        string
	clientID     string
	clientSecret string
	metrics      *metrics.IdentityProviderMetrics
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMetrics records call latency and outcome per operation.
func WithMetrics(m *metrics.IdentityProviderMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds a realm client from configuration.
func NewClient(cfg config.KeycloakConfig, opts ...Option) (*Client, error) {
	serverURL := strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	if serverURL == "" {
		return nil, errServerURLRequired
	}
	realm := strings.TrimSpace(cfg.Realm)
	if realm == "" {
		return nil, errRealmRequired
	}
	clientID := strings.TrimSpace(cfg.ClientID)
	if clientID == "" {
		return nil, errClientIDRequired
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		httpClient:   &http.Client{Timeout: timeout},
		serverURL:    serverURL,
		realm:        realm,
		clientID:     clientID,
		clientSecret: cfg.ClientSecret,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// realmURL builds {server}/realms/{realm}/{path}.
func (c *Client) realmURL(path string) string {
	return fmt.Sprintf("%s/realms/%s/%s", c.serverURL, url.PathEscape(c.realm), strings.TrimLeft(path, "/"))
}

// adminURL builds {server}/admin/realms/{realm}/{segments...} escaping each segment.
func (c *Client) adminURL(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	return fmt.Sprintf("%s/admin/realms/%s/%s", c.serverURL, url.PathEscape(c.realm), strings.Join(escaped, "/"))
}

func (c *Client) tokenURL() string {
	return c.realmURL("protocol/openid-connect/token")
}

// oauthContext routes golang.org/x/oauth2 requests through the client's transport.
func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r *response) remoteError(op string, kind error) *RemoteError {
	return &RemoteError{Op: op, StatusCode: r.status, Body: truncate(string(r.body)), kind: kind}
}

func (c *Client) send(op string, req *http.Request) (resp *response, err error) {
	started := time.Now()
	defer func() {
		failed := err
		if failed == nil && !resp.ok() {
			failed = fmt.Errorf("status %d", resp.status)
		}
		c.metrics.Track(op, started, failed)
	}()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keycloak %s: %w", op, err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(res.Body, responseBodyLimit))
	if err != nil {
		return nil, fmt.Errorf("keycloak %s: read response: %w", op, err)
	}

	return &response{status: res.StatusCode, header: res.Header, body: body}, nil
}

func (c *Client) sendJSON(ctx context.Context, op, method, endpoint, bearer string, query url.Values, payload any) (*response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("keycloak %s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("keycloak %s: build request: %w", op, err)
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return c.send(op, req)
}

func (c *Client) sendForm(ctx context.Context, op, endpoint string, form url.Values) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("keycloak %s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	return c.send(op, req)
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= errorBodyLimit {
		return s
	}
	return s[:errorBodyLimit]
}
