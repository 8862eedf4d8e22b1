package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
)

// SeedUser inserts an active user with the given role.
func SeedUser(t testing.TB, conn *gorm.DB, email string, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		IsActive:     true,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedVendor inserts a vendor owned by a fresh VENDOR user.
func SeedVendor(t testing.TB, conn *gorm.DB, name string, status enums.VendorStatus) *models.Vendor {
	t.Helper()
	owner := SeedUser(t, conn, uuid.NewString()+"@vendor.test", enums.UserRoleVendor)
	vendor := &models.Vendor{
		UserID:       owner.ID,
		BusinessName: name,
		Status:       status,
	}
	if err := conn.Create(vendor).Error; err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	return vendor
}

// SeedCategory inserts a category with the given slug.
func SeedCategory(t testing.TB, conn *gorm.DB, name, slug string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, Slug: slug}
	if err := conn.Create(category).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return category
}

// ProductOption tweaks a seeded product before insert.
type ProductOption func(*models.Product)

func WithCategory(id uuid.UUID) ProductOption {
	return func(p *models.Product) { p.CategoryID = &id }
}

func WithStatus(status enums.ProductStatus) ProductOption {
	return func(p *models.Product) { p.Status = status }
}

func WithVariants(variants ...models.ProductVariant) ProductOption {
	return func(p *models.Product) { p.Variants = variants }
}

// SeedProduct inserts an ACTIVE product for vendor.
func SeedProduct(t testing.TB, conn *gorm.DB, vendorID uuid.UUID, name string, priceCents int64, stock int, opts ...ProductOption) *models.Product {
	t.Helper()
	product := &models.Product{
		VendorID:   vendorID,
		Name:       name,
		Slug:       name,
		PriceCents: priceCents,
		Stock:      stock,
		Status:     enums.ProductStatusActive,
	}
	for _, opt := range opts {
		opt(product)
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// SeedOrder inserts a PENDING, unpaid order for userID with a throwaway
// shipping address and no items.
func SeedOrder(t testing.TB, conn *gorm.DB, userID uuid.UUID, totalCents int64, method enums.PaymentMethod) *models.Order {
	t.Helper()
	address := &models.ShippingAddress{
		UserID:   userID,
		FullName: "Test Buyer",
		Phone:    "+250788000000",
		Line1:    "KN 5 Rd",
		City:     "Kigali",
		Country:  "Rwanda",
	}
	if err := conn.Create(address).Error; err != nil {
		t.Fatalf("seed address: %v", err)
	}
	order := &models.Order{
		OrderNumber:       "ORD-" + uuid.NewString(),
		UserID:            userID,
		Status:            enums.OrderStatusPending,
		TotalAmountCents:  totalCents,
		Currency:          "RWF",
		PaymentMethod:     method,
		PaymentStatus:     enums.OrderPaymentPending,
		ShippingAddressID: address.ID,
	}
	if err := conn.Omit("ShippingAddress", "Items", "User").Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}
