package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	"github.com/iwanyu/marketplace-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their stock effects.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateShippingAddress(ctx context.Context, address *models.ShippingAddress) error
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Order, int64, error)
	ListVendorItems(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.OrderItem, int64, error)
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	HasPendingPaymentSince(ctx context.Context, orderID uuid.UUID, since time.Time) (bool, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, updates map[string]any) (bool, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, quantity int) (bool, error)
	RestoreStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, quantity int) error
	CountByStatus(ctx context.Context) (map[enums.OrderStatus]int64, error)
	PaidRevenueCents(ctx context.Context) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
