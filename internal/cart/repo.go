package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/pkg/db/models"
)

// Repository persists cart lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) withLive(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Product").Preload("Variant")
}

// ListByUser returns the user's lines, oldest first, with product and variant loaded.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.withLive(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

// FindForUser loads one line owned by userID.
func (r *Repository) FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.withLive(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByIDsForUser loads the listed lines that belong to userID.
func (r *Repository) FindByIDsForUser(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	if len(ids) == 0 {
		return items, nil
	}
	err := r.withLive(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

// FindLine returns the existing line for a (product, variant) pair, if any.
func (r *Repository) FindLine(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartItem, error) {
	q := r.db.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID)
	if variantID == nil {
		q = q.Where("selected_variant_id IS NULL")
	} else {
		q = q.Where("selected_variant_id = ?", *variantID)
	}
	var item models.CartItem
	if err := q.First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a new line.
func (r *Repository) Create(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateQuantity sets the quantity on a line.
func (r *Repository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", id).
		Update("quantity", quantity).Error
}

// Delete removes one line owned by userID and reports whether it existed.
func (r *Repository) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.CartItem{})
	return res.RowsAffected > 0, res.Error
}

// DeleteByIDs removes the listed lines owned by userID.
func (r *Repository) DeleteByIDs(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// DeleteAll empties the user's cart.
func (r *Repository) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

// Count returns the number of lines and the sum of their quantities.
func (r *Repository) Count(ctx context.Context, userID uuid.UUID) (lines int64, quantity int64, err error) {
	var row struct {
		LineCount int64
		Quantity  int64
	}
	err = r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Select("COUNT(*) AS line_count, COALESCE(SUM(quantity), 0) AS quantity").
		Where("user_id = ?", userID).
		Scan(&row).Error
	return row.LineCount, row.Quantity, err
}
