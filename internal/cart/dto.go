package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	"github.com/iwanyu/marketplace-backend/pkg/types"
)

// AddItemInput is the payload for adding a product to the cart.
type AddItemInput struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,min=1"`
}

// UpdateItemInput changes the quantity of an existing line.
type UpdateItemInput struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// ItemDTO is a cart line priced at the current catalog price.
type ItemDTO struct {
	ID             uuid.UUID           `json:"id"`
	ProductID      uuid.UUID           `json:"product_id"`
	ProductName    string              `json:"product_name"`
	ProductStatus  enums.ProductStatus `json:"product_status"`
	VariantID      *uuid.UUID          `json:"variant_id,omitempty"`
	VariantName    *string             `json:"variant_name,omitempty"`
	Quantity       int                 `json:"quantity"`
	UnitPrice      decimal.Decimal     `json:"unit_price"`
	LineTotal      decimal.Decimal     `json:"line_total"`
	AvailableStock int                 `json:"available_stock"`
}

// CartDTO is the full cart view.
type CartDTO struct {
	Items         []ItemDTO       `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ItemCount     int             `json:"item_count"`
	TotalQuantity int             `json:"total_quantity"`
}

// CountDTO backs the cart badge.
type CountDTO struct {
	ItemCount     int64 `json:"item_count"`
	TotalQuantity int64 `json:"total_quantity"`
}

func itemFromModel(item models.CartItem) ItemDTO {
	unit := item.UnitPriceCents()
	dto := ItemDTO{
		ID:             item.ID,
		ProductID:      item.ProductID,
		VariantID:      item.SelectedVariantID,
		Quantity:       item.Quantity,
		UnitPrice:      types.FromCents(unit),
		LineTotal:      types.FromCents(unit * int64(item.Quantity)),
		AvailableStock: item.AvailableStock(),
	}
	if item.Product != nil {
		dto.ProductName = item.Product.Name
		dto.ProductStatus = item.Product.Status
	}
	if item.Variant != nil {
		name := item.Variant.Name
		dto.VariantName = &name
	}
	return dto
}

func cartFromModels(items []models.CartItem) CartDTO {
	out := CartDTO{Items: make([]ItemDTO, 0, len(items)), Subtotal: decimal.Zero}
	var subtotal int64
	for _, item := range items {
		subtotal += item.UnitPriceCents() * int64(item.Quantity)
		out.TotalQuantity += item.Quantity
		out.Items = append(out.Items, itemFromModel(item))
	}
	out.ItemCount = len(out.Items)
	out.Subtotal = types.FromCents(subtotal)
	return out
}
