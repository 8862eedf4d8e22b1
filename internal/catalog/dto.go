package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iwanyu/marketplace-backend/pkg/db/models"
)

// CategoryDTO is a category with the number of visible products in it.
type CategoryDTO struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	Description  *string    `json:"description,omitempty"`
	ParentID     *uuid.UUID `json:"parent_id,omitempty"`
	ProductCount int64      `json:"product_count"`
	CreatedAt    time.Time  `json:"created_at"`
}

// CreateCategoryInput is the admin payload for a new category.
type CreateCategoryInput struct {
	Name        string     `json:"name" validate:"required,max=100"`
	Description *string    `json:"description,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
}

// ProductQuery is the public browse filter set. Prices are in major units.
type ProductQuery struct {
	Category string
	VendorID *uuid.UUID
	Query    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
	Sort     string
}

type categoryRow struct {
	models.Category
	ProductCount int64 `gorm:"column:product_count"`
}

func categoryFromRow(row categoryRow) CategoryDTO {
	return CategoryDTO{
		ID:           row.ID,
		Name:         row.Name,
		Slug:         row.Slug,
		Description:  row.Description,
		ParentID:     row.ParentID,
		ProductCount: row.ProductCount,
		CreatedAt:    row.CreatedAt,
	}
}
