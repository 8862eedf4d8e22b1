package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	"github.com/iwanyu/marketplace-backend/pkg/types"
)

// InitializeInput starts a hosted checkout for an order.
type InitializeInput struct {
	OrderID     uuid.UUID `json:"order_id" validate:"required"`
	RedirectURL *string   `json:"redirect_url,omitempty" validate:"omitempty,url"`
}

// RetryInput starts another attempt for an unpaid order.
type RetryInput struct {
	RedirectURL *string `json:"redirect_url,omitempty" validate:"omitempty,url"`
}

// CheckoutDTO is returned by initialize and retry.
type CheckoutDTO struct {
	PaymentLink string    `json:"payment_link"`
	Reference   string    `json:"reference"`
	PaymentID   uuid.UUID `json:"payment_id"`
}

// VerifyDTO reports the outcome of a verification.
type VerifyDTO struct {
	Verified      bool                     `json:"verified"`
	PaymentID     uuid.UUID                `json:"payment_id"`
	Reference     string                   `json:"reference"`
	Status        enums.PaymentStatus      `json:"status"`
	OrderID       uuid.UUID                `json:"order_id"`
	OrderStatus   enums.OrderStatus        `json:"order_status"`
	PaymentStatus enums.OrderPaymentStatus `json:"payment_status"`
	Message       string                   `json:"message,omitempty"`
}

// PaymentDTO is one gateway attempt.
type PaymentDTO struct {
	ID        uuid.UUID             `json:"id"`
	Provider  enums.PaymentProvider `json:"provider"`
	Reference string                `json:"reference"`
	ChargeID  *string               `json:"charge_id,omitempty"`
	Amount    decimal.Decimal       `json:"amount"`
	Currency  string                `json:"currency"`
	Status    enums.PaymentStatus   `json:"status"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// StatusDTO is the payment overview of an order.
type StatusDTO struct {
	OrderID       uuid.UUID                `json:"order_id"`
	OrderNumber   string                   `json:"order_number"`
	OrderStatus   enums.OrderStatus        `json:"order_status"`
	PaymentStatus enums.OrderPaymentStatus `json:"payment_status"`
	PaymentMethod enums.PaymentMethod      `json:"payment_method"`
	TotalAmount   decimal.Decimal          `json:"total_amount"`
	Currency      string                   `json:"currency"`
	Payments      []PaymentDTO             `json:"payments"`
}

// WebhookResult tells the caller what happened to a delivery. Every result is
// acknowledged to the gateway.
type WebhookResult struct {
	Processed bool   `json:"processed"`
	Reason    string `json:"reason,omitempty"`
}

func paymentFromModel(p *models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:        p.ID,
		Provider:  p.Provider,
		Reference: p.ProviderTransactionID,
		ChargeID:  p.ProviderChargeID,
		Amount:    types.FromCents(p.AmountCents),
		Currency:  p.Currency,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
