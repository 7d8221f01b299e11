package keycloak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
)

const verifyEmailAction = "VERIFY_EMAIL"

// UserRepresentation is the admin API user document.
type UserRepresentation struct {
	ID            string       `json:"id,omitempty"`
	Username      string       `json:"username"`
	FirstName     string       `json:"firstName,omitempty"`
	LastName      string       `json:"lastName,omitempty"`
	Email         string       `json:"email,omitempty"`
	Enabled       bool         `json:"enabled"`
	EmailVerified bool         `json:"emailVerified"`
	Credentials   []Credential `json:"credentials,omitempty"`
}

type Credential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// UserQuery selects a remote user by email or username. Email takes
// precedence when both are set.
type UserQuery struct {
	Username string
	Email    string
}

// NewUser is the profile registered in Keycloak on create.
type NewUser struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// FindUser returns the first exact match or nil when nothing matches.
func (c *Client) FindUser(ctx context.Context, token string, q UserQuery) (*UserRepresentation, error) {
	params := url.Values{}
	switch {
	case strings.TrimSpace(q.Email) != "":
		params.Set("email", strings.TrimSpace(q.Email))
	case strings.TrimSpace(q.Username) != "":
		params.Set("username", strings.TrimSpace(q.Username))
	default:
		return nil, ErrInvalidArgument
	}
	params.Set("exact", "true")

	resp, err := c.sendJSON(ctx, opFindUser, http.MethodGet, c.adminURL("users"), token, params, nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, resp.remoteError(opFindUser, nil)
	}

	var users []UserRepresentation
	if err := json.Unmarshal(resp.body, &users); err != nil {
		return nil, fmt.Errorf("keycloak %s: decode response: %w", opFindUser, err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// CreateUser registers the profile and returns the remote user id. An
// existing user with the same email (or username) is re-enabled and its id
// returned instead.
func (c *Client) CreateUser(ctx context.Context, token string, profile NewUser) (string, error) {
	existing, err := c.FindUser(ctx, token, UserQuery{Email: profile.Email, Username: profile.Username})
	if err != nil {
		return "", createFailed(err)
	}
	if existing != nil {
		if err := c.SetUserEnabled(ctx, token, existing.ID, true); err != nil {
			return "", createFailed(err)
		}
		return existing.ID, nil
	}

	payload := UserRepresentation{
		Username:  profile.Username,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Email:     profile.Email,
		Enabled:   true,
		Credentials: []Credential{{
			Type:      "password",
			Value:     profile.Password,
			Temporary: false,
		}},
	}

	resp, err := c.sendJSON(ctx, opCreateUser, http.MethodPost, c.adminURL("users"), token, nil, payload)
	if err != nil {
		return "", err
	}
	if !resp.ok() {
		return "", resp.remoteError(opCreateUser, ErrCreateFailed)
	}

	id := idFromLocation(resp.header.Get("Location"))
	if id == "" {
		return "", &RemoteError{Op: opCreateUser, StatusCode: resp.status, Body: "missing user id in Location header", kind: ErrCreateFailed}
	}
	return id, nil
}

// SetUserEnabled toggles the enabled flag of a remote user.
func (c *Client) SetUserEnabled(ctx context.Context, token, userID string, enabled bool) error {
	payload := map[string]bool{"enabled": enabled}
	resp, err := c.sendJSON(ctx, opSetUserEnabled, http.MethodPut, c.adminURL("users", userID), token, nil, payload)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return resp.remoteError(opSetUserEnabled, ErrUpdateFailed)
	}
	return nil
}

// SendVerificationEmail asks Keycloak to mail a VERIFY_EMAIL action link.
// redirectURL is optional.
func (c *Client) SendVerificationEmail(ctx context.Context, token, userID, redirectURL string) error {
	var params url.Values
	if redirectURL != "" {
		params = url.Values{
			"redirect_uri": {redirectURL},
			"client_id":    {c.clientID},
		}
	}

	endpoint := c.adminURL("users", userID, "execute-actions-email")
	resp, err := c.sendJSON(ctx, opVerificationEmail, http.MethodPut, endpoint, token, params, []string{verifyEmailAction})
	if err != nil {
		return err
	}
	if !resp.ok() {
		return resp.remoteError(opVerificationEmail, nil)
	}
	return nil
}

// ResetPassword replaces the password credential of a remote user.
func (c *Client) ResetPassword(ctx context.Context, token, userID, password string) error {
	payload := Credential{Type: "password", Value: password, Temporary: false}
	resp, err := c.sendJSON(ctx, opResetPassword, http.MethodPut, c.adminURL("users", userID, "reset-password"), token, nil, payload)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return resp.remoteError(opResetPassword, ErrUpdateFailed)
	}
	return nil
}

// createFailed tags a lookup or re-enable failure inside CreateUser so it
// unwraps to ErrCreateFailed as well as to its own cause.
func createFailed(err error) error {
	if errors.Is(err, ErrCreateFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCreateFailed, err)
}

// idFromLocation returns the last segment of a .../users/{id} Location
// header, or "" when the header does not name a user.
func idFromLocation(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return ""
	}
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	dir, id := path.Split(strings.TrimRight(u.Path, "/"))
	if id == "" || path.Base(strings.TrimRight(dir, "/")) != "users" {
		return ""
	}
	return id
}
