package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	product "github.com/iwanyu/marketplace-backend/internal/products"
	"github.com/iwanyu/marketplace-backend/pkg/db/dbtest"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
	"github.com/iwanyu/marketplace-backend/pkg/pagination"
)

func newCatalog(t *testing.T) (Service, *CategoryRepository) {
	t.Helper()
	conn := dbtest.Open(t)
	categories := NewCategoryRepository(conn)
	svc, err := NewService(product.NewRepository(conn), categories)
	require.NoError(t, err)
	return svc, categories
}

func TestCategoriesCountOnlyVisibleProducts(t *testing.T) {
	conn := dbtest.Open(t)
	categories := NewCategoryRepository(conn)
	svc, err := NewService(product.NewRepository(conn), categories)
	require.NoError(t, err)

	active := dbtest.SeedVendor(t, conn, "Active", enums.VendorStatusActive)
	suspended := dbtest.SeedVendor(t, conn, "Suspended", enums.VendorStatusSuspended)
	textiles := dbtest.SeedCategory(t, conn, "Textiles", "textiles")
	dbtest.SeedCategory(t, conn, "Art", "art")

	dbtest.SeedProduct(t, conn, active.ID, "Kitenge", 3000, 1, dbtest.WithCategory(textiles.ID))
	dbtest.SeedProduct(t, conn, active.ID, "Old Kitenge", 3000, 1, dbtest.WithCategory(textiles.ID), dbtest.WithStatus(enums.ProductStatusInactive))
	dbtest.SeedProduct(t, conn, suspended.ID, "Shadow Kitenge", 3000, 1, dbtest.WithCategory(textiles.ID))

	list, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "art", list[0].Slug)
	require.Zero(t, list[0].ProductCount)
	require.Equal(t, "textiles", list[1].Slug)
	require.EqualValues(t, 1, list[1].ProductCount)

	one, err := svc.GetCategory(context.Background(), "Textiles")
	require.NoError(t, err)
	require.EqualValues(t, 1, one.ProductCount)

	_, err = svc.GetCategory(context.Background(), "missing")
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestCreateCategory(t *testing.T) {
	svc, categories := newCatalog(t)
	ctx := context.Background()

	created, err := svc.CreateCategory(ctx, CreateCategoryInput{Name: "Home & Garden"})
	require.NoError(t, err)
	require.Equal(t, "home-garden", created.Slug)

	ok, err := categories.Exists(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.CreateCategory(ctx, CreateCategoryInput{Name: "home garden"})
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	_, err = svc.CreateCategory(ctx, CreateCategoryInput{Name: "!!!"})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	missing := uuid.New()
	_, err = svc.CreateCategory(ctx, CreateCategoryInput{Name: "Child", ParentID: &missing})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	child, err := svc.CreateCategory(ctx, CreateCategoryInput{Name: "Plants", ParentID: &created.ID})
	require.NoError(t, err)
	require.Equal(t, created.ID, *child.ParentID)
}

func TestPublicProductBrowsing(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(product.NewRepository(conn), NewCategoryRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	vendor := dbtest.SeedVendor(t, conn, "Musanze Market", enums.VendorStatusActive)
	pending := dbtest.SeedVendor(t, conn, "Later", enums.VendorStatusPending)
	coffee := dbtest.SeedCategory(t, conn, "Coffee", "coffee")

	beans := dbtest.SeedProduct(t, conn, vendor.ID, "Coffee Beans", 1250, 5, dbtest.WithCategory(coffee.ID))
	dbtest.SeedProduct(t, conn, vendor.ID, "Tea", 600, 5)
	hidden := dbtest.SeedProduct(t, conn, pending.ID, "Pending Beans", 1000, 5, dbtest.WithCategory(coffee.ID))

	bySlug, err := svc.ListProducts(ctx, ProductQuery{Category: "coffee"}, pagination.Params{})
	require.NoError(t, err)
	require.EqualValues(t, 1, bySlug.Pagination.Total)
	require.Equal(t, beans.ID, bySlug.Items[0].ID)
	require.True(t, bySlug.Items[0].Price.Equal(decimal.RequireFromString("12.50")))

	byID, err := svc.ListProducts(ctx, ProductQuery{Category: coffee.ID.String()}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, byID.Items, 1)

	minPrice := decimal.RequireFromString("7")
	priced, err := svc.ListProducts(ctx, ProductQuery{MinPrice: &minPrice}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, priced.Items, 1)

	maxPrice := decimal.RequireFromString("1")
	_, err = svc.ListProducts(ctx, ProductQuery{MinPrice: &minPrice, MaxPrice: &maxPrice}, pagination.Params{})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.ListProducts(ctx, ProductQuery{Sort: "random"}, pagination.Params{})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	got, err := svc.GetProduct(ctx, beans.ID)
	require.NoError(t, err)
	require.Equal(t, "Coffee Beans", got.Name)
	require.NotNil(t, got.Category)

	_, err = svc.GetProduct(ctx, hidden.ID)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
