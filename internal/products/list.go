package product

import (
	"github.com/google/uuid"

	"github.com/iwanyu/marketplace-backend/pkg/enums"
)

// Sort orders accepted by product listings.
const (
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortName      = "name"
)

var sortClauses = map[string]string{
	SortNewest:    "products.created_at DESC, products.id DESC",
	SortOldest:    "products.created_at ASC, products.id ASC",
	SortPriceAsc:  "products.price_cents ASC, products.id ASC",
	SortPriceDesc: "products.price_cents DESC, products.id ASC",
	SortName:      "products.name ASC, products.id ASC",
}

// ValidSort reports whether s is a supported sort key. Empty means newest.
func ValidSort(s string) bool {
	if s == "" {
		return true
	}
	_, ok := sortClauses[s]
	return ok
}

// ListFilters describe the supported filter knobs for product listings.
type ListFilters struct {
	// VisibleOnly restricts to ACTIVE products of ACTIVE vendors.
	VisibleOnly   bool
	Status        *enums.ProductStatus
	VendorID      *uuid.UUID
	CategoryID    *uuid.UUID
	CategorySlug  string
	Query         string
	MinPriceCents *int64
	MaxPriceCents *int64
	InStock       bool
	Sort          string
}
