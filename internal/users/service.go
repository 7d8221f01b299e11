package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/userbridge-backend/internal/keycloak"
	"github.com/angelmondragon/userbridge-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/userbridge-backend/pkg/errors"
	"github.com/angelmondragon/userbridge-backend/pkg/logger"
	"github.com/google/uuid"
)

// Steps of the multi-step user operations, reported in error details.
const (
	StepServiceToken      = "service_token"
	StepProviderCreate    = "provider_create"
	StepLocalCreate       = "local_create"
	StepVerificationEmail = "verification_email"
	StepLocalLookup       = "local_lookup"
	StepProviderDisable   = "provider_disable"
	StepLocalDelete       = "local_delete"
	StepLocalUpdate       = "local_update"
	StepProviderPassword  = "provider_reset_password"
)

// Service coordinates user lifecycle changes across Keycloak and the local
// store. Keycloak is always written first and local failures are never
// compensated remotely.
type Service interface {
	Create(ctx context.Context, req CreateUserRequest) (*UserDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	List(ctx context.Context, page, pageSize int) ([]UserDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*UserDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ResetPassword(ctx context.Context, id uuid.UUID, password string) error
}

type identityProvider interface {
	ServiceToken(ctx context.Context) (*keycloak.Token, error)
	CreateUser(ctx context.Context, token string, profile keycloak.NewUser) (string, error)
	SetUserEnabled(ctx context.Context, token, userID string, enabled bool) error
	SendVerificationEmail(ctx context.Context, token, userID, redirectURL string) error
	ResetPassword(ctx context.Context, token, userID, password string) error
}

type userRepository interface {
	Create(ctx context.Context, dto CreateUserDTO) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, page, pageSize int) ([]models.User, error)
	Update(ctx context.Context, id uuid.UUID, dto UpdateUserDTO) (*models.User, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	Repo                    userRepository
	IdentityProvider        identityProvider
	Logger                  *logger.Logger
	VerificationRedirectURL string
}

type service struct {
	repo        userRepository
	idp         identityProvider
	logg        *logger.Logger
	redirectURL string
}

// NewService constructs a users service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.IdentityProvider == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:        params.Repo,
		idp:         params.IdentityProvider,
		logg:        params.Logger,
		redirectURL: params.VerificationRedirectURL,
	}, nil
}

// Create registers the user in Keycloak, persists (or revives) the local
// row and triggers the verification email. A failed email is reported as an
// error even though both records now exist.
func (s *service) Create(ctx context.Context, req CreateUserRequest) (*UserDTO, error) {
	token, err := s.idp.ServiceToken(ctx)
	if err != nil {
		return nil, keycloak.ToAppError(err, StepServiceToken)
	}

	remoteID, err := s.idp.CreateUser(ctx, token.AccessToken, keycloak.NewUser{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return nil, keycloak.ToAppError(err, StepProviderCreate)
	}

	identityProviderID, err := uuid.Parse(remoteID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "identity provider returned a malformed user id").
			WithDetail("step", StepProviderCreate)
	}

	ctx = s.logg.WithField(ctx, "identity_provider_id", identityProviderID.String())

	user, err := s.repo.Create(ctx, CreateUserDTO{
		IdentityProviderID: identityProviderID,
		Username:           req.Username,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Email:              req.Email,
		PhoneNumber:        req.PhoneNumber,
	})
	if err != nil {
		s.logg.Error(s.logg.WithStep(ctx, StepLocalCreate), "user.create.remote_without_local", err)
		return nil, storeError(err, StepLocalCreate)
	}

	ctx = s.logg.WithUserID(ctx, user.ID.String())

	if err := s.idp.SendVerificationEmail(ctx, token.AccessToken, remoteID, s.redirectURL); err != nil {
		s.logg.Error(s.logg.WithStep(ctx, StepVerificationEmail), "user.create.verification_email_failed", err)
		return nil, keycloak.ToAppError(err, StepVerificationEmail).WithDetail("user_id", user.ID.String())
	}

	s.logg.Info(ctx, "user.created")
	return FromModel(user), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, StepLocalLookup)
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, page, pageSize int) ([]UserDTO, error) {
	rows, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		return nil, storeError(err, StepLocalLookup)
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// Update changes the local profile only; Keycloak is not touched.
func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*UserDTO, error) {
	user, err := s.repo.Update(ctx, id, req.toDTO())
	if err != nil {
		return nil, storeError(err, StepLocalUpdate)
	}
	return FromModel(user), nil
}

// Delete disables the Keycloak user first, then soft deletes the local row.
// A remote failure leaves the local row untouched.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return storeError(err, StepLocalLookup)
	}

	token, err := s.idp.ServiceToken(ctx)
	if err != nil {
		return keycloak.ToAppError(err, StepServiceToken)
	}

	if err := s.idp.SetUserEnabled(ctx, token.AccessToken, user.IdentityProviderID.String(), false); err != nil {
		return keycloak.ToAppError(err, StepProviderDisable)
	}

	ctx = s.logg.WithUserID(ctx, user.ID.String())
	if err := s.repo.SoftDelete(ctx, user.ID); err != nil {
		s.logg.Error(s.logg.WithStep(ctx, StepLocalDelete), "user.delete.disabled_without_local_delete", err)
		return storeError(err, StepLocalDelete)
	}

	s.logg.Info(ctx, "user.deleted")
	return nil
}

func (s *service) ResetPassword(ctx context.Context, id uuid.UUID, password string) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return storeError(err, StepLocalLookup)
	}

	token, err := s.idp.ServiceToken(ctx)
	if err != nil {
		return keycloak.ToAppError(err, StepServiceToken)
	}

	if err := s.idp.ResetPassword(ctx, token.AccessToken, user.IdentityProviderID.String(), password); err != nil {
		return keycloak.ToAppError(err, StepProviderPassword)
	}
	return nil
}

func storeError(err error, step string) error {
	var appErr *pkgerrors.Error
	switch {
	case errors.Is(err, ErrNotFound):
		appErr = pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	case errors.Is(err, ErrAlreadyExists):
		appErr = pkgerrors.Wrap(pkgerrors.CodeConflict, err, "user already exists")
	case errors.Is(err, ErrUniqueViolation):
		appErr = pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email, phone number or identity already in use")
	default:
		appErr = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "user store failure")
	}
	return appErr.WithDetail("step", step)
}
