package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/pkg/enums"
)

// ShippingAddress is captured once per order.
type ShippingAddress struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	FullName   string    `gorm:"column:full_name;not null"`
	Phone      string    `gorm:"column:phone;not null"`
	Line1      string    `gorm:"column:line1;not null"`
	Line2      *string   `gorm:"column:line2"`
	City       string    `gorm:"column:city;not null"`
	State      *string   `gorm:"column:state"`
	PostalCode *string   `gorm:"column:postal_code"`
	Country    string    `gorm:"column:country;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (a *ShippingAddress) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// Order is immutable apart from its status fields and tracking number.
type Order struct {
	ID                uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string                   `gorm:"column:order_number;not null;uniqueIndex:orders_order_number_key"`
	UserID            uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	Status            enums.OrderStatus        `gorm:"column:status;type:text;not null;default:'PENDING'"`
	TotalAmountCents  int64                    `gorm:"column:total_amount_cents;not null"`
	Currency          string                   `gorm:"column:currency;not null"`
	PaymentMethod     enums.PaymentMethod      `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus     enums.OrderPaymentStatus `gorm:"column:payment_status;type:text;not null;default:'PENDING'"`
	ShippingAddressID uuid.UUID                `gorm:"column:shipping_address_id;type:uuid;not null"`
	TrackingNumber    *string                  `gorm:"column:tracking_number"`
	ShippingAddress   *ShippingAddress         `gorm:"foreignKey:ShippingAddressID"`
	Items             []OrderItem              `gorm:"foreignKey:OrderID"`
	User              *User                    `gorm:"foreignKey:UserID"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots price and vendor at purchase time.
type OrderItem struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID         uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	VendorID          uuid.UUID  `gorm:"column:vendor_id;type:uuid;not null;index"`
	SelectedVariantID *uuid.UUID `gorm:"column:selected_variant_id;type:uuid"`
	ProductName       string     `gorm:"column:product_name;not null"`
	VariantName       *string    `gorm:"column:variant_name"`
	Quantity          int        `gorm:"column:quantity;not null"`
	PriceCents        int64      `gorm:"column:price_cents;not null"`
	Order             *Order     `gorm:"foreignKey:OrderID"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// LineTotalCents is price × quantity.
func (i OrderItem) LineTotalCents() int64 {
	return i.PriceCents * int64(i.Quantity)
}
