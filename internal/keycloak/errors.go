package keycloak

import (
	"errors"
	"fmt"

	pkgerrors "github.com/angelmondragon/userbridge-backend/pkg/errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNoSigningKey       = errors.New("no RS256 signing key published")
	ErrCreateFailed       = errors.New("identity provider user creation failed")
	ErrUpdateFailed       = errors.New("identity provider user update failed")
	ErrInvalidArgument    = errors.New("username or email is required")
)

// RemoteError is a non-success answer from Keycloak. When the failure belongs
// to one of the sentinel categories it unwraps to that sentinel.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
	kind       error
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("keycloak %s: status %d", e.Op, e.StatusCode)
	if e.kind != nil {
		msg = fmt.Sprintf("%s: %s", e.kind.Error(), msg)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	return msg
}

func (e *RemoteError) Unwrap() error {
	return e.kind
}

func (e *RemoteError) RemoteOp() string  { return e.Op }
func (e *RemoteError) RemoteStatus() int { return e.StatusCode }

// ToAppError maps a client error onto the API error codes. step names the
// part of a multi-step operation that failed and is attached to the details.
func ToAppError(err error, step string) *pkgerrors.Error {
	if err == nil {
		return nil
	}

	var appErr *pkgerrors.Error
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		appErr = pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid credentials")
	case errors.Is(err, ErrInvalidToken):
		appErr = pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid or expired token")
	case errors.Is(err, ErrInvalidArgument):
		appErr = pkgerrors.Wrap(pkgerrors.CodeValidation, err, ErrInvalidArgument.Error())
	case errors.Is(err, ErrNoSigningKey):
		appErr = pkgerrors.Wrap(pkgerrors.CodeDependency, err, ErrNoSigningKey.Error())
	case errors.Is(err, ErrCreateFailed):
		appErr = pkgerrors.Wrap(pkgerrors.CodeDependency, err, ErrCreateFailed.Error())
	case errors.Is(err, ErrUpdateFailed):
		appErr = pkgerrors.Wrap(pkgerrors.CodeDependency, err, ErrUpdateFailed.Error())
	default:
		appErr = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "identity provider request failed")
	}

	appErr.WithDetail("step", step)
	var remote *RemoteError
	if errors.As(err, &remote) {
		appErr.WithDetail("provider_status", remote.StatusCode)
		if remote.Body != "" {
			appErr.WithDetail("provider_body", remote.Body)
		}
	}
	return appErr
}
