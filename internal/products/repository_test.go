package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iwanyu/marketplace-backend/pkg/db/dbtest"
	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	"github.com/iwanyu/marketplace-backend/pkg/pagination"
)

func names(rows []models.Product) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Name)
	}
	return out
}

func TestListVisibleOnlyHidesInactiveProductsAndVendors(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	active := dbtest.SeedVendor(t, conn, "Kigali Crafts", enums.VendorStatusActive)
	pending := dbtest.SeedVendor(t, conn, "Pending Shop", enums.VendorStatusPending)

	dbtest.SeedProduct(t, conn, active.ID, "Basket", 1500, 3)
	dbtest.SeedProduct(t, conn, active.ID, "Hidden Mat", 900, 3, dbtest.WithStatus(enums.ProductStatusInactive))
	dbtest.SeedProduct(t, conn, active.ID, "Banned Mat", 900, 3, dbtest.WithStatus(enums.ProductStatusSuspended))
	dbtest.SeedProduct(t, conn, pending.ID, "Pending Bowl", 700, 3)

	rows, total, err := repo.List(ctx, ListFilters{VisibleOnly: true}, pagination.Params{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, []string{"Basket"}, names(rows))
	require.NotNil(t, rows[0].Vendor)

	all, total, err := repo.List(ctx, ListFilters{}, pagination.Params{})
	require.NoError(t, err)
	require.EqualValues(t, 4, total)
	require.Len(t, all, 4)
}

func TestListFilters(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	vendor := dbtest.SeedVendor(t, conn, "Nyamirambo Goods", enums.VendorStatusActive)
	kitchen := dbtest.SeedCategory(t, conn, "Kitchen", "kitchen")

	dbtest.SeedProduct(t, conn, vendor.ID, "Clay Pot", 2500, 0, dbtest.WithCategory(kitchen.ID),
		dbtest.WithVariants(models.ProductVariant{Name: "Large", Stock: 2}))
	dbtest.SeedProduct(t, conn, vendor.ID, "Wooden Spoon", 500, 10, dbtest.WithCategory(kitchen.ID))
	dbtest.SeedProduct(t, conn, vendor.ID, "Sold Out Mug", 800, 0)
	dbtest.SeedProduct(t, conn, vendor.ID, "100% Cotton_Scarf", 4000, 1)

	cases := []struct {
		name    string
		filters ListFilters
		want    []string
	}{
		{"category slug", ListFilters{VisibleOnly: true, CategorySlug: "kitchen", Sort: SortName}, []string{"Clay Pot", "Wooden Spoon"}},
		{"category id", ListFilters{VisibleOnly: true, CategoryID: &kitchen.ID, Sort: SortPriceDesc}, []string{"Clay Pot", "Wooden Spoon"}},
		{"query case insensitive", ListFilters{VisibleOnly: true, Query: "SPOON"}, []string{"Wooden Spoon"}},
		{"query escapes wildcards", ListFilters{VisibleOnly: true, Query: "100%"}, []string{"100% Cotton_Scarf"}},
		{"price range", ListFilters{VisibleOnly: true, MinPriceCents: ptr(int64(600)), MaxPriceCents: ptr(int64(3000)), Sort: SortPriceAsc}, []string{"Sold Out Mug", "Clay Pot"}},
		{"in stock counts variants", ListFilters{VisibleOnly: true, InStock: true, Sort: SortName}, []string{"100% Cotton_Scarf", "Clay Pot", "Wooden Spoon"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows, total, err := repo.List(ctx, tc.filters, pagination.Params{})
			require.NoError(t, err)
			require.Equal(t, tc.want, names(rows))
			require.EqualValues(t, len(tc.want), total)
		})
	}
}

func TestListPaginates(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	vendor := dbtest.SeedVendor(t, conn, "Paged", enums.VendorStatusActive)
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		dbtest.SeedProduct(t, conn, vendor.ID, name, 100, 1)
	}

	rows, total, err := repo.List(context.Background(), ListFilters{Sort: SortName}, pagination.Params{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Equal(t, []string{"C", "D"}, names(rows))
}

func TestCountByStatus(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	vendor := dbtest.SeedVendor(t, conn, "Counts", enums.VendorStatusActive)
	dbtest.SeedProduct(t, conn, vendor.ID, "One", 100, 1)
	dbtest.SeedProduct(t, conn, vendor.ID, "Two", 100, 1)
	dbtest.SeedProduct(t, conn, vendor.ID, "Three", 100, 1, dbtest.WithStatus(enums.ProductStatusInactive))

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, counts[enums.ProductStatusActive])
	require.EqualValues(t, 1, counts[enums.ProductStatusInactive])
	require.Zero(t, counts[enums.ProductStatusSuspended])
}

func ptr[T any](v T) *T { return &v }
