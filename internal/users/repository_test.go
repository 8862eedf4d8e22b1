package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iwanyu/marketplace-backend/pkg/db"
	"github.com/iwanyu/marketplace-backend/pkg/db/dbtest"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
)

func TestRepositoryCreateAndLookup(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	created, err := repo.Create(ctx, NewUser{
		Email:        "amina@example.com",
		PasswordHash: "hash",
		FirstName:    "Amina",
		LastName:     "Uwase",
	})
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleCustomer, created.Role)
	require.True(t, created.IsActive)

	byEmail, err := repo.FindByEmail(ctx, "amina@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastLogin(ctx, created.ID, at))
	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID.LastLoginAt)

	_, err = repo.Create(ctx, NewUser{Email: "amina@example.com", PasswordHash: "x", FirstName: "A", LastName: "B"})
	require.Error(t, err)
	require.True(t, db.IsUniqueViolation(err, EmailUniqueConstraint) || db.IsUniqueViolation(err, "users.email"))

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
}

func TestUpdateRoleNeverDemotesAdmin(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	admin, err := repo.Create(ctx, NewUser{Email: "root@example.com", PasswordHash: "h", FirstName: "R", LastName: "T", Role: enums.UserRoleAdmin})
	require.NoError(t, err)
	customer, err := repo.Create(ctx, NewUser{Email: "shop@example.com", PasswordHash: "h", FirstName: "S", LastName: "P"})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateRole(ctx, admin.ID, enums.UserRoleVendor))
	require.NoError(t, repo.UpdateRole(ctx, customer.ID, enums.UserRoleVendor))

	reloadedAdmin, err := repo.FindByID(ctx, admin.ID)
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleAdmin, reloadedAdmin.Role)

	reloadedCustomer, err := repo.FindByID(ctx, customer.ID)
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleVendor, reloadedCustomer.Role)
}

func TestEmailIsNormalizedOnWriteAndLookup(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	created, err := repo.Create(ctx, NewUser{Email: "  Keza@Example.COM ", PasswordHash: "h", FirstName: "K", LastName: "M", Inactive: true})
	require.NoError(t, err)
	require.Equal(t, "keza@example.com", created.Email)
	require.False(t, created.IsActive)

	found, err := repo.FindByEmail(ctx, "KEZA@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	dto := FromModel(found)
	require.Equal(t, "keza@example.com", dto.Email)
	require.Nil(t, FromModel(nil))
}
