package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
)

// SlugUniqueConstraint is the unique index backing categories.slug.
const SlugUniqueConstraint = "categories_slug_key"

const visibleProductCount = `(SELECT COUNT(*) FROM products p
  JOIN vendors v ON v.id = p.vendor_id
  WHERE p.category_id = categories.id AND p.status = ? AND v.status = ?) AS product_count`

// CategoryRepository reads and writes categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Exists reports whether a category id is known.
func (r *CategoryRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&total).Error
	return total > 0, err
}

// Create inserts a category.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

// ListWithCounts returns every category ordered by name with visible product counts.
func (r *CategoryRepository) ListWithCounts(ctx context.Context) ([]categoryRow, error) {
	var rows []categoryRow
	err := r.withCounts(ctx).Order("categories.name ASC").Find(&rows).Error
	return rows, err
}

// FindBySlug loads one category with its visible product count.
func (r *CategoryRepository) FindBySlug(ctx context.Context, slug string) (*categoryRow, error) {
	var row categoryRow
	err := r.withCounts(ctx).Where("categories.slug = ?", slug).Take(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *CategoryRepository) withCounts(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("categories").
		Select("categories.*, "+visibleProductCount, enums.ProductStatusActive, enums.VendorStatusActive)
}
