package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
)

// ReferenceConstraint is the unique index backing payments.provider_transaction_id.
const ReferenceConstraint = "payments_provider_transaction_id_key"

// Repository persists payment attempts and the payment side of orders.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Omit("Order").Create(payment).Error
}

// FindByReference loads the attempt created with the given tx_ref.
func (r *Repository) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_transaction_id = ?", enums.PaymentProviderFlutterwave, reference).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByOrder returns every attempt for an order, newest first.
func (r *Repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// Settle moves a PENDING attempt to status. It reports false when the attempt
// was already settled.
func (r *Repository) Settle(ctx context.Context, id uuid.UUID, status enums.PaymentStatus, chargeID *string) (bool, error) {
	updates := map[string]any{"status": status}
	if chargeID != nil {
		updates["provider_charge_id"] = *chargeID
	}
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		Updates(updates)
	return res.RowsAffected == 1, res.Error
}

// FindOrder loads an order with its buyer.
func (r *Repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("User").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkOrderPaid records the payment and confirms a still PENDING order. It
// returns the order status afterwards; CANCELLED means the order was abandoned
// before the charge landed.
func (r *Repository) MarkOrderPaid(ctx context.Context, orderID uuid.UUID) (enums.OrderStatus, error) {
	db := r.db.WithContext(ctx)
	err := db.Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("payment_status", enums.OrderPaymentPaid).Error
	if err != nil {
		return "", err
	}
	err = db.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Update("status", enums.OrderStatusConfirmed).Error
	if err != nil {
		return "", err
	}
	var order models.Order
	if err := db.Select("status").Take(&order, "id = ?", orderID).Error; err != nil {
		return "", err
	}
	return order.Status, nil
}

// MarkOrderFailed flags the order payment as failed unless another attempt
// already paid it.
func (r *Repository) MarkOrderFailed(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status <> ?", orderID, enums.OrderPaymentPaid).
		Update("payment_status", enums.OrderPaymentFailed).Error
}
