package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItem is one mutable line of a user's cart.
type CartItem struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID            uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID         uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	SelectedVariantID *uuid.UUID      `gorm:"column:selected_variant_id;type:uuid"`
	Quantity          int             `gorm:"column:quantity;not null"`
	Product           *Product        `gorm:"foreignKey:ProductID"`
	Variant           *ProductVariant `gorm:"foreignKey:SelectedVariantID"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// UnitPriceCents is the live price: variant override when set, else product.
func (c CartItem) UnitPriceCents() int64 {
	if c.Variant != nil && c.Variant.PriceCents != nil {
		return *c.Variant.PriceCents
	}
	if c.Product != nil {
		return c.Product.PriceCents
	}
	return 0
}

// AvailableStock is the stock of the selected variant, else the product.
func (c CartItem) AvailableStock() int {
	if c.SelectedVariantID != nil && c.Variant != nil {
		return c.Variant.Stock
	}
	if c.Product != nil {
		return c.Product.Stock
	}
	return 0
}
