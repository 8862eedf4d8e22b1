package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/iwanyu/marketplace-backend/pkg/enums"
)

// OrderLine is the per-item summary carried on order events.
type OrderLine struct {
	ProductID         uuid.UUID  `json:"product_id"`
	SelectedVariantID *uuid.UUID `json:"selected_variant_id,omitempty"`
	VendorID          uuid.UUID  `json:"vendor_id"`
	Quantity          int        `json:"quantity"`
	PriceCents        int64      `json:"price_cents"`
}

// OrderCreatedEvent is emitted when checkout commits.
type OrderCreatedEvent struct {
	OrderID          uuid.UUID           `json:"order_id"`
	OrderNumber      string              `json:"order_number"`
	UserID           uuid.UUID           `json:"user_id"`
	TotalAmountCents int64               `json:"total_amount_cents"`
	Currency         string              `json:"currency"`
	PaymentMethod    enums.PaymentMethod `json:"payment_method"`
	Items            []OrderLine         `json:"items"`
}

// OrderCancelledEvent is emitted when a buyer cancels or the expiry job
// abandons an order; stock has already been restored.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// OrderStatusChangedEvent tracks admin-driven fulfilment progress.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	From           enums.OrderStatus `json:"from"`
	To             enums.OrderStatus `json:"to"`
	TrackingNumber *string           `json:"tracking_number,omitempty"`
}

// PaymentEvent covers payment attempts as they are opened and settled, and
// completed charges against orders that were already cancelled.
type PaymentEvent struct {
	PaymentID   uuid.UUID           `json:"payment_id"`
	OrderID     uuid.UUID           `json:"order_id"`
	Reference   string              `json:"reference"`
	AmountCents int64               `json:"amount_cents"`
	Currency    string              `json:"currency"`
	Status      enums.PaymentStatus `json:"status"`
	Source      string              `json:"source,omitempty"`
}

// VendorEvent covers vendor applications and moderation decisions.
type VendorEvent struct {
	VendorID     uuid.UUID          `json:"vendor_id"`
	UserID       uuid.UUID          `json:"user_id"`
	BusinessName string             `json:"business_name"`
	From         enums.VendorStatus `json:"from,omitempty"`
	To           enums.VendorStatus `json:"to"`
	Reason       *string            `json:"reason,omitempty"`
}

// ProductStatusChangedEvent is emitted on vendor or admin status changes.
type ProductStatusChangedEvent struct {
	ProductID uuid.UUID           `json:"product_id"`
	VendorID  uuid.UUID           `json:"vendor_id"`
	From      enums.ProductStatus `json:"from"`
	To        enums.ProductStatus `json:"to"`
}
