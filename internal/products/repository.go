package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/pkg/db"
	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	"github.com/iwanyu/marketplace-backend/pkg/pagination"
)

// Repository wires together all product-related persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindDetail loads a product with variants, vendor and category.
func (r *Repository) FindDetail(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Vendor").
		Preload("Category").
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindVisibleDetail is FindDetail restricted to ACTIVE products of ACTIVE vendors.
func (r *Repository) FindVisibleDetail(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := visible(r.db.WithContext(ctx).Model(&models.Product{})).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Vendor").
		Preload("Category").
		Where("products.id = ?", id).
		First(&product).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts a new product row together with any variants.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct applies column updates to a product.
func (r *Repository) UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateStatus sets the product status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ProductStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// CreateVariant inserts a variant for an existing product.
func (r *Repository) CreateVariant(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error) {
	if err := r.db.WithContext(ctx).Create(variant).Error; err != nil {
		return nil, err
	}
	return variant, nil
}

// FindVariant loads a variant by id.
func (r *Repository) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// List returns one page of products matching filters and the unpaginated total.
func (r *Repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Product, int64, error) {
	params = params.Normalize()
	q := r.applyFilters(r.db.WithContext(ctx).Model(&models.Product{}), filters)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order, ok := sortClauses[filters.Sort]
	if !ok {
		order = sortClauses[SortNewest]
	}

	var rows []models.Product
	err := q.
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Vendor").
		Preload("Category").
		Order(order).
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CountByStatus returns product counts keyed by status.
func (r *Repository) CountByStatus(ctx context.Context) (map[enums.ProductStatus]int64, error) {
	var rows []struct {
		Status enums.ProductStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.ProductStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}

func (r *Repository) applyFilters(q *gorm.DB, f ListFilters) *gorm.DB {
	if f.VisibleOnly {
		q = visible(q)
	}
	if f.Status != nil {
		q = q.Where("products.status = ?", *f.Status)
	}
	if f.VendorID != nil {
		q = q.Where("products.vendor_id = ?", *f.VendorID)
	}
	if f.CategoryID != nil {
		q = q.Where("products.category_id = ?", *f.CategoryID)
	}
	if slug := strings.TrimSpace(f.CategorySlug); slug != "" {
		q = q.Where("products.category_id IN (?)",
			r.db.Model(&models.Category{}).Select("id").Where("slug = ?", slug))
	}
	if like := db.ContainsPattern(f.Query); like != "" {
		q = q.Where("(LOWER(products.name) LIKE ? ESCAPE '\\' OR LOWER(COALESCE(products.description, '')) LIKE ? ESCAPE '\\')", like, like)
	}
	if f.MinPriceCents != nil {
		q = q.Where("products.price_cents >= ?", *f.MinPriceCents)
	}
	if f.MaxPriceCents != nil {
		q = q.Where("products.price_cents <= ?", *f.MaxPriceCents)
	}
	if f.InStock {
		q = q.Where("(products.stock > 0 OR EXISTS (SELECT 1 FROM product_variants pv WHERE pv.product_id = products.id AND pv.stock > 0))")
	}
	return q
}

func visible(q *gorm.DB) *gorm.DB {
	return q.
		Joins("JOIN vendors ON vendors.id = products.vendor_id").
		Where("products.status = ? AND vendors.status = ?", enums.ProductStatusActive, enums.VendorStatusActive)
}
