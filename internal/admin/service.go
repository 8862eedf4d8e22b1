// Package admin aggregates marketplace-wide figures for the admin dashboard.
package admin

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/iwanyu/marketplace-backend/pkg/enums"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
	"github.com/iwanyu/marketplace-backend/pkg/types"
)

type userCounter interface {
	Count(ctx context.Context) (int64, error)
}

type vendorCounter interface {
	CountByStatus(ctx context.Context) (map[enums.VendorStatus]int64, error)
}

type productCounter interface {
	CountByStatus(ctx context.Context) (map[enums.ProductStatus]int64, error)
}

type orderStats interface {
	CountByStatus(ctx context.Context) (map[enums.OrderStatus]int64, error)
	PaidRevenueCents(ctx context.Context) (int64, error)
}

// DashboardDTO is the admin overview.
type DashboardDTO struct {
	Users    int64                         `json:"users"`
	Vendors  map[enums.VendorStatus]int64  `json:"vendors"`
	Products map[enums.ProductStatus]int64 `json:"products"`
	Orders   map[enums.OrderStatus]int64   `json:"orders"`
	Revenue  decimal.Decimal               `json:"revenue"`
	Currency string                        `json:"currency"`
}

type Service interface {
	Dashboard(ctx context.Context) (*DashboardDTO, error)
}

type service struct {
	users    userCounter
	vendors  vendorCounter
	products productCounter
	orders   orderStats
	currency string
}

func NewService(users userCounter, vendors vendorCounter, products productCounter, orders orderStats, currency string) (Service, error) {
	if users == nil || vendors == nil || products == nil || orders == nil {
		return nil, fmt.Errorf("admin dashboard requires user, vendor, product and order sources")
	}
	return &service{users: users, vendors: vendors, products: products, orders: orders, currency: currency}, nil
}

func (s *service) Dashboard(ctx context.Context) (*DashboardDTO, error) {
	out := &DashboardDTO{Currency: s.currency}
	var revenue int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Users, err = s.users.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Vendors, err = s.vendors.CountByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Products, err = s.products.CountByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Orders, err = s.orders.CountByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		revenue, err = s.orders.PaidRevenueCents(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dashboard")
	}

	out.Vendors = withZeros(out.Vendors, []enums.VendorStatus{
		enums.VendorStatusPending, enums.VendorStatusActive, enums.VendorStatusSuspended, enums.VendorStatusRejected,
	})
	out.Products = withZeros(out.Products, []enums.ProductStatus{
		enums.ProductStatusActive, enums.ProductStatusInactive, enums.ProductStatusSuspended,
	})
	out.Orders = withZeros(out.Orders, append(append([]enums.OrderStatus{}, enums.OrderTimeline...), enums.OrderStatusCancelled))
	out.Revenue = types.FromCents(revenue)
	return out, nil
}

// withZeros fills in statuses that have no rows so the dashboard shape is stable.
func withZeros[K comparable](counts map[K]int64, keys []K) map[K]int64 {
	if counts == nil {
		counts = make(map[K]int64, len(keys))
	}
	for _, k := range keys {
		if _, ok := counts[k]; !ok {
			counts[k] = 0
		}
	}
	return counts
}
