package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	"github.com/iwanyu/marketplace-backend/pkg/types"
)

// ProductDTO represents the product payload returned to clients. Prices are in
// major units.
type ProductDTO struct {
	ID          uuid.UUID           `json:"id"`
	VendorID    uuid.UUID           `json:"vendor_id"`
	CategoryID  *uuid.UUID          `json:"category_id,omitempty"`
	Name        string              `json:"name"`
	Slug        string              `json:"slug"`
	Description *string             `json:"description,omitempty"`
	Price       decimal.Decimal     `json:"price"`
	Stock       int                 `json:"stock"`
	SKU         *string             `json:"sku,omitempty"`
	Status      enums.ProductStatus `json:"status"`
	Variants    []VariantDTO        `json:"variants"`
	Vendor      *VendorSummaryDTO   `json:"vendor,omitempty"`
	Category    *CategorySummaryDTO `json:"category,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// VariantDTO is a purchasable configuration of a product.
type VariantDTO struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	SKU       *string          `json:"sku,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Stock     int              `json:"stock"`
	CreatedAt time.Time        `json:"created_at"`
}

// VendorSummaryDTO is the seller data embedded on product reads.
type VendorSummaryDTO struct {
	ID           uuid.UUID `json:"id"`
	BusinessName string    `json:"business_name"`
}

// CategorySummaryDTO is the category data embedded on product reads.
type CategorySummaryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// FromModel maps a product row, including any preloaded associations.
func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:          p.ID,
		VendorID:    p.VendorID,
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       types.FromCents(p.PriceCents),
		Stock:       p.Stock,
		SKU:         p.SKU,
		Status:      p.Status,
		Variants:    make([]VariantDTO, 0, len(p.Variants)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for i := range p.Variants {
		dto.Variants = append(dto.Variants, VariantFromModel(&p.Variants[i]))
	}
	if p.Vendor != nil {
		dto.Vendor = &VendorSummaryDTO{ID: p.Vendor.ID, BusinessName: p.Vendor.BusinessName}
	}
	if p.Category != nil {
		dto.Category = &CategorySummaryDTO{ID: p.Category.ID, Name: p.Category.Name, Slug: p.Category.Slug}
	}
	return dto
}

// VariantFromModel maps a variant row.
func VariantFromModel(v *models.ProductVariant) VariantDTO {
	dto := VariantDTO{
		ID:        v.ID,
		Name:      v.Name,
		SKU:       v.SKU,
		Stock:     v.Stock,
		CreatedAt: v.CreatedAt,
	}
	if v.PriceCents != nil {
		price := types.FromCents(*v.PriceCents)
		dto.Price = &price
	}
	return dto
}

// FromModels maps a page of product rows.
func FromModels(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
