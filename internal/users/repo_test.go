package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryCreateInsertsUnverifiedUser(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	dto := newCreateDTO(1)
	user, err := repo.Create(ctx, dto)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, dto.IdentityProviderID, user.IdentityProviderID)
	assert.False(t, user.EmailVerified)
	assert.False(t, user.DeletedAt.Valid)

	found, err := repo.FindByIdentityProviderID(ctx, dto.IdentityProviderID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, dto.Email, found.Email)
}

func TestRepositoryCreateRejectsActiveDuplicate(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	dto := newCreateDTO(1)
	_, err := repo.Create(ctx, dto)
	require.NoError(t, err)

	again := newCreateDTO(2)
	again.IdentityProviderID = dto.IdentityProviderID
	_, err = repo.Create(ctx, again)
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRepositoryCreateRevivesSoftDeletedRow(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	dto := newCreateDTO(1)
	original, err := repo.Create(ctx, dto)
	require.NoError(t, err)

	verified := true
	_, err = repo.Update(ctx, original.ID, UpdateUserDTO{EmailVerified: &verified})
	require.NoError(t, err)
	require.NoError(t, repo.SoftDelete(ctx, original.ID))

	revivedDTO := CreateUserDTO{
		IdentityProviderID: dto.IdentityProviderID,
		Username:           "renamed",
		FirstName:          "New",
		LastName:           "Name",
		Email:              "renamed@example.com",
		PhoneNumber:        "+15559999999",
	}
	revived, err := repo.Create(ctx, revivedDTO)
	require.NoError(t, err)

	assert.Equal(t, original.ID, revived.ID, "revival must reuse the local id")
	assert.False(t, revived.DeletedAt.Valid)
	assert.False(t, revived.EmailVerified)
	assert.Equal(t, "New", revived.FirstName)
	assert.Equal(t, "Name", revived.LastName)
	assert.Equal(t, "+15559999999", revived.PhoneNumber)
	assert.Equal(t, "renamed@example.com", revived.Email)
	assert.Equal(t, "renamed", revived.Username)

	found, err := repo.FindByID(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, revived.ID, found.ID)
}

func TestRepositorySoftDeleteHidesRow(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, newCreateDTO(1))
	require.NoError(t, err)
	require.NoError(t, repo.SoftDelete(ctx, user.ID))

	_, err = repo.FindByID(ctx, user.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindByIdentityProviderID(ctx, user.IdentityProviderID)
	require.ErrorIs(t, err, ErrNotFound)

	deleted, err := repo.FindAnyByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, deleted.DeletedAt.Valid)
	assert.False(t, deleted.UpdatedAt.Before(user.UpdatedAt))

	require.ErrorIs(t, repo.SoftDelete(ctx, user.ID), ErrNotFound)
	require.ErrorIs(t, repo.SoftDelete(ctx, uuid.New()), ErrNotFound)
}

func TestRepositoryUniqueIndexesScopedToActiveRows(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	first, err := repo.Create(ctx, newCreateDTO(1))
	require.NoError(t, err)

	sameEmail := newCreateDTO(2)
	sameEmail.Email = first.Email
	_, err = repo.Create(ctx, sameEmail)
	require.ErrorIs(t, err, ErrUniqueViolation)

	samePhone := newCreateDTO(3)
	samePhone.PhoneNumber = first.PhoneNumber
	_, err = repo.Create(ctx, samePhone)
	require.ErrorIs(t, err, ErrUniqueViolation)

	require.NoError(t, repo.SoftDelete(ctx, first.ID))

	reused, err := repo.Create(ctx, sameEmail)
	require.NoError(t, err)
	assert.Equal(t, first.Email, reused.Email)
	assert.NotEqual(t, first.ID, reused.ID)
}

func TestRepositoryUpdate(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, newCreateDTO(1))
	require.NoError(t, err)
	other, err := repo.Create(ctx, newCreateDTO(2))
	require.NoError(t, err)

	first := "Updated"
	updated, err := repo.Update(ctx, user.ID, UpdateUserDTO{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Updated", updated.FirstName)
	assert.Equal(t, user.LastName, updated.LastName)
	assert.Equal(t, user.Email, updated.Email)
	assert.False(t, updated.UpdatedAt.Before(user.UpdatedAt))

	noop, err := repo.Update(ctx, user.ID, UpdateUserDTO{})
	require.NoError(t, err)
	assert.Equal(t, "Updated", noop.FirstName)

	_, err = repo.Update(ctx, user.ID, UpdateUserDTO{Email: &other.Email})
	require.ErrorIs(t, err, ErrUniqueViolation)

	_, err = repo.Update(ctx, uuid.New(), UpdateUserDTO{FirstName: &first})
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.SoftDelete(ctx, other.ID))
	_, err = repo.Update(ctx, other.ID, UpdateUserDTO{FirstName: &first})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryListPages(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		_, err := repo.Create(ctx, newCreateDTO(i))
		require.NoError(t, err)
	}

	page1, err := repo.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page1, 10)

	page2, err := repo.List(ctx, 2, 10)
	require.NoError(t, err)
	assert.Len(t, page2, 5)

	seen := map[uuid.UUID]bool{}
	for _, u := range append(page1, page2...) {
		assert.False(t, seen[u.ID], "user %s listed twice", u.ID)
		seen[u.ID] = true
	}

	page3, err := repo.List(ctx, 3, 10)
	require.NoError(t, err)
	assert.NotNil(t, page3)
	assert.Empty(t, page3)
}

func TestRepositoryListBeyondDataAndDeleted(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		u, err := repo.Create(ctx, newCreateDTO(i))
		require.NoError(t, err)
		ids = append(ids, u.ID)
	}

	beyond, err := repo.List(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond)

	require.NoError(t, repo.SoftDelete(ctx, ids[0]))
	active, err := repo.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, active, 4)
	for _, u := range active {
		assert.NotEqual(t, ids[0], u.ID)
	}
}
