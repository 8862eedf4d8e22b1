package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/pkg/enums"
)

// Category groups products for browsing.
type Category struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name        string     `gorm:"column:name;not null"`
	Slug        string     `gorm:"column:slug;not null;uniqueIndex:categories_slug_key"`
	Description *string    `gorm:"column:description"`
	ParentID    *uuid.UUID `gorm:"column:parent_id;type:uuid"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Product is a vendor listing. Stock is a plain counter; see orders for how
// it is decremented.
type Product struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	VendorID    uuid.UUID           `gorm:"column:vendor_id;type:uuid;not null;index"`
	CategoryID  *uuid.UUID          `gorm:"column:category_id;type:uuid;index"`
	Name        string              `gorm:"column:name;not null"`
	Slug        string              `gorm:"column:slug;not null"`
	Description *string             `gorm:"column:description"`
	PriceCents  int64               `gorm:"column:price_cents;not null"`
	Stock       int                 `gorm:"column:stock;not null;default:0"`
	SKU         *string             `gorm:"column:sku"`
	Status      enums.ProductStatus `gorm:"column:status;type:text;not null;default:'ACTIVE'"`
	Vendor      *Vendor             `gorm:"foreignKey:VendorID"`
	Category    *Category           `gorm:"foreignKey:CategoryID"`
	Variants    []ProductVariant    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProductVariant is a purchasable configuration with its own stock and an
// optional price override.
type ProductVariant struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Name       string    `gorm:"column:name;not null"`
	SKU        *string   `gorm:"column:sku"`
	PriceCents *int64    `gorm:"column:price_cents"`
	Stock      int       `gorm:"column:stock;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
