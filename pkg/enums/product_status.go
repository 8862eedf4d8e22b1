package enums

// ProductStatus controls storefront visibility. SUSPENDED is admin-only.
type ProductStatus string

const (
	ProductStatusActive    ProductStatus = "ACTIVE"
	ProductStatusInactive  ProductStatus = "INACTIVE"
	ProductStatusSuspended ProductStatus = "SUSPENDED"
)

var validProductStatuses = []ProductStatus{
	ProductStatusActive,
	ProductStatusInactive,
	ProductStatusSuspended,
}

// String implements fmt.Stringer.
func (s ProductStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProductStatus.
func (s ProductStatus) IsValid() bool {
	return contains(validProductStatuses, s)
}

// ParseProductStatus converts raw input into a ProductStatus.
func ParseProductStatus(value string) (ProductStatus, error) {
	return parse(validProductStatuses, value, "product status")
}
