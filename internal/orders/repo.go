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

// OrderNumberConstraint is the unique index backing orders.order_number.
const OrderNumberConstraint = "orders_order_number_key"

type repository struct {
	db *gorm.DB
}

// NewRepository binds order persistence to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateShippingAddress(ctx context.Context, address *models.ShippingAddress) error {
	return r.db.WithContext(ctx).Create(address).Error
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items", "ShippingAddress", "User").Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindDetail(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("ShippingAddress").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Order, int64, error) {
	params = params.Normalize()
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.UserID != nil {
		q = q.Where("user_id = ?", *filters.UserID)
	}
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		q = q.Where("payment_status = ?", *filters.PaymentStatus)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Order
	err := q.
		Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) ListVendorItems(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.OrderItem, int64, error) {
	params = params.Normalize()
	q := r.db.WithContext(ctx).Model(&models.OrderItem{}).Where("vendor_id = ?", vendorID)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.OrderItem
	err := q.
		Preload("Order").
		Order("created_at DESC, id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// FindStalePending returns unpaid PENDING orders created before cutoff.
// Cash-on-delivery orders are never stale.
func (r *repository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_status <> ? AND payment_method <> ? AND created_at < ?",
			enums.OrderStatusPending, enums.OrderPaymentPaid, enums.PaymentMethodCashOnDelivery, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// HasPendingPaymentSince reports whether a checkout opened at or after since
// is still waiting on the gateway.
func (r *repository) HasPendingPaymentSince(ctx context.Context, orderID uuid.UUID, since time.Time) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND status = ? AND created_at >= ?", orderID, enums.PaymentStatusPending, since).
		Count(&n).Error
	return n > 0, err
}

// TransitionStatus applies updates only while the order is in one of from.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// DecrementStock takes quantity from the variant when set, else the product.
// It reports false when the row does not hold enough stock.
func (r *repository) DecrementStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, quantity int) (bool, error) {
	q := r.db.WithContext(ctx)
	if variantID != nil {
		q = q.Model(&models.ProductVariant{}).Where("id = ? AND product_id = ? AND stock >= ?", *variantID, productID, quantity)
	} else {
		q = q.Model(&models.Product{}).Where("id = ? AND stock >= ?", productID, quantity)
	}
	res := q.Update("stock", gorm.Expr("stock - ?", quantity))
	return res.RowsAffected == 1, res.Error
}

func (r *repository) RestoreStock(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, quantity int) error {
	q := r.db.WithContext(ctx)
	if variantID != nil {
		q = q.Model(&models.ProductVariant{}).Where("id = ?", *variantID)
	} else {
		q = q.Model(&models.Product{}).Where("id = ?", productID)
	}
	return q.Update("stock", gorm.Expr("stock + ?", quantity)).Error
}

func (r *repository) CountByStatus(ctx context.Context) (map[enums.OrderStatus]int64, error) {
	var rows []struct {
		Status enums.OrderStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}

func (r *repository) PaidRevenueCents(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(SUM(total_amount_cents), 0)").
		Where("payment_status = ?", enums.OrderPaymentPaid).
		Scan(&total).Error
	return total, err
}
