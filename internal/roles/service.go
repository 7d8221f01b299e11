package roles

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/userbridge-backend/pkg/errors"
	"github.com/google/uuid"
)

// Service exposes the read-only role catalogue.
type Service interface {
	List(ctx context.Context) ([]RoleDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]RoleDTO, error)
}

type rolesRepository interface {
	List(ctx context.Context) ([]RoleWithCapabilities, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]RoleWithCapabilities, error)
}

type service struct {
	repo rolesRepository
}

// NewService constructs a roles service backed by the given repository.
func NewService(repo rolesRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("roles repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]RoleDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list roles")
	}
	return toDTOs(rows), nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]RoleDTO, error) {
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list user roles")
	}
	return toDTOs(rows), nil
}

func toDTOs(rows []RoleWithCapabilities) []RoleDTO {
	out := make([]RoleDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
