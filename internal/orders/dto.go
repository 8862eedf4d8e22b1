package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	"github.com/iwanyu/marketplace-backend/pkg/types"
)

// ShippingAddressInput is captured at checkout and stored once per order.
type ShippingAddressInput struct {
	FullName   string  `json:"full_name" validate:"required,max=200"`
	Phone      string  `json:"phone" validate:"required,max=32"`
	Line1      string  `json:"line1" validate:"required,max=255"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=255"`
	City       string  `json:"city" validate:"required,max=100"`
	State      *string `json:"state,omitempty" validate:"omitempty,max=100"`
	PostalCode *string `json:"postal_code,omitempty" validate:"omitempty,max=20"`
	Country    string  `json:"country" validate:"required,max=100"`
}

// CreateOrderInput turns a subset of the caller's cart into an order.
type CreateOrderInput struct {
	ShippingAddress ShippingAddressInput `json:"shipping_address" validate:"required"`
	PaymentMethod   enums.PaymentMethod  `json:"payment_method" validate:"required"`
	CartItemIDs     []uuid.UUID          `json:"cart_item_ids" validate:"required,min=1"`
}

// UpdateStatusInput is the admin fulfilment update.
type UpdateStatusInput struct {
	Status         enums.OrderStatus `json:"status" validate:"required"`
	TrackingNumber *string           `json:"tracking_number,omitempty" validate:"omitempty,max=100"`
}

// ListFilters narrows order listings.
type ListFilters struct {
	UserID        *uuid.UUID
	Status        *enums.OrderStatus
	PaymentStatus *enums.OrderPaymentStatus
}

// CreatedOrderDTO is returned by checkout.
type CreatedOrderDTO struct {
	ID            uuid.UUID                `json:"id"`
	OrderNumber   string                   `json:"order_number"`
	TotalAmount   decimal.Decimal          `json:"total_amount"`
	Currency      string                   `json:"currency"`
	Status        enums.OrderStatus        `json:"status"`
	PaymentMethod enums.PaymentMethod      `json:"payment_method"`
	PaymentStatus enums.OrderPaymentStatus `json:"payment_status"`
	CreatedAt     time.Time                `json:"created_at"`
}

// OrderSummaryDTO is one row in an order listing.
type OrderSummaryDTO struct {
	ID             uuid.UUID                `json:"id"`
	OrderNumber    string                   `json:"order_number"`
	UserID         uuid.UUID                `json:"user_id"`
	Status         enums.OrderStatus        `json:"status"`
	PaymentMethod  enums.PaymentMethod      `json:"payment_method"`
	PaymentStatus  enums.OrderPaymentStatus `json:"payment_status"`
	TotalAmount    decimal.Decimal          `json:"total_amount"`
	Currency       string                   `json:"currency"`
	ItemCount      int                      `json:"item_count"`
	TrackingNumber *string                  `json:"tracking_number,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// OrderItemDTO is a purchased line with its price snapshot.
type OrderItemDTO struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         uuid.UUID       `json:"product_id"`
	VendorID          uuid.UUID       `json:"vendor_id"`
	SelectedVariantID *uuid.UUID      `json:"selected_variant_id,omitempty"`
	ProductName       string          `json:"product_name"`
	VariantName       *string         `json:"variant_name,omitempty"`
	Quantity          int             `json:"quantity"`
	Price             decimal.Decimal `json:"price"`
	LineTotal         decimal.Decimal `json:"line_total"`
}

// AddressDTO mirrors the stored shipping address.
type AddressDTO struct {
	FullName   string  `json:"full_name"`
	Phone      string  `json:"phone"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      *string `json:"state,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
	Country    string  `json:"country"`
}

// OrderDTO is the detailed order view.
type OrderDTO struct {
	OrderSummaryDTO
	Items           []OrderItemDTO `json:"items"`
	ShippingAddress *AddressDTO    `json:"shipping_address,omitempty"`
}

// TrackingStage is one step of the fulfilment timeline.
type TrackingStage struct {
	Status    enums.OrderStatus `json:"status"`
	Completed bool              `json:"completed"`
}

// TrackingDTO is the customer-facing progress view.
type TrackingDTO struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	CurrentStatus  enums.OrderStatus `json:"current_status"`
	Cancelled      bool              `json:"cancelled"`
	TrackingNumber *string           `json:"tracking_number,omitempty"`
	Stages         []TrackingStage   `json:"stages"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// VendorItemDTO is an order line sold by a vendor.
type VendorItemDTO struct {
	OrderItemDTO
	OrderID       uuid.UUID                `json:"order_id"`
	OrderNumber   string                   `json:"order_number"`
	OrderStatus   enums.OrderStatus        `json:"order_status"`
	PaymentStatus enums.OrderPaymentStatus `json:"payment_status"`
	OrderedAt     time.Time                `json:"ordered_at"`
}

func summaryFromModel(o *models.Order) OrderSummaryDTO {
	return OrderSummaryDTO{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		Status:         o.Status,
		PaymentMethod:  o.PaymentMethod,
		PaymentStatus:  o.PaymentStatus,
		TotalAmount:    types.FromCents(o.TotalAmountCents),
		Currency:       o.Currency,
		ItemCount:      len(o.Items),
		TrackingNumber: o.TrackingNumber,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func itemFromModel(i *models.OrderItem) OrderItemDTO {
	return OrderItemDTO{
		ID:                i.ID,
		ProductID:         i.ProductID,
		VendorID:          i.VendorID,
		SelectedVariantID: i.SelectedVariantID,
		ProductName:       i.ProductName,
		VariantName:       i.VariantName,
		Quantity:          i.Quantity,
		Price:             types.FromCents(i.PriceCents),
		LineTotal:         types.FromCents(i.LineTotalCents()),
	}
}

func detailFromModel(o *models.Order) *OrderDTO {
	dto := &OrderDTO{
		OrderSummaryDTO: summaryFromModel(o),
		Items:           make([]OrderItemDTO, 0, len(o.Items)),
	}
	for i := range o.Items {
		dto.Items = append(dto.Items, itemFromModel(&o.Items[i]))
	}
	if a := o.ShippingAddress; a != nil {
		dto.ShippingAddress = &AddressDTO{
			FullName:   a.FullName,
			Phone:      a.Phone,
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
		}
	}
	return dto
}

func summariesFromModels(rows []models.Order) []OrderSummaryDTO {
	out := make([]OrderSummaryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, summaryFromModel(&rows[i]))
	}
	return out
}

func vendorItemFromModel(i *models.OrderItem) VendorItemDTO {
	dto := VendorItemDTO{OrderItemDTO: itemFromModel(i), OrderID: i.OrderID}
	if i.Order != nil {
		dto.OrderNumber = i.Order.OrderNumber
		dto.OrderStatus = i.Order.Status
		dto.PaymentStatus = i.Order.PaymentStatus
		dto.OrderedAt = i.Order.CreatedAt
	}
	return dto
}

func trackingFromModel(o *models.Order) *TrackingDTO {
	cancelled := o.Status == enums.OrderStatusCancelled
	rank := o.Status.Rank()
	stages := make([]TrackingStage, 0, len(enums.OrderTimeline))
	for i, stage := range enums.OrderTimeline {
		completed := rank >= i
		if cancelled {
			completed = stage == enums.OrderStatusPending
		}
		stages = append(stages, TrackingStage{Status: stage, Completed: completed})
	}
	return &TrackingDTO{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		CurrentStatus:  o.Status,
		Cancelled:      cancelled,
		TrackingNumber: o.TrackingNumber,
		Stages:         stages,
		UpdatedAt:      o.UpdatedAt,
	}
}
