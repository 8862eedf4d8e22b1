package vendors

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/pkg/db"
	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	"github.com/iwanyu/marketplace-backend/pkg/pagination"
)

// UserUniqueConstraint keeps one vendor profile per user.
const UserUniqueConstraint = "vendors_user_id_key"

type Repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, vendor *models.Vendor) error {
	return r.db.WithContext(ctx).Omit("User").Create(vendor).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Preload("User").First(&vendor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Preload("User").First(&vendor, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

// List pages vendors newest first.
func (r *Repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Vendor, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Vendor{})
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	if like := db.ContainsPattern(filters.Query); like != "" {
		q = q.Where("LOWER(business_name) LIKE ? ESCAPE '\\'", like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Vendor
	err := q.Preload("User").
		Order("created_at DESC, id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).Error
	return rows, total, err
}

// TransitionStatus moves the vendor from `from` to `to`. It reports false when
// the row no longer has status `from`.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.VendorStatus, reason *string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "status_reason": reason})
	return res.RowsAffected == 1, res.Error
}

// CountByStatus groups vendors by moderation status.
func (r *Repository) CountByStatus(ctx context.Context) (map[enums.VendorStatus]int64, error) {
	var rows []struct {
		Status enums.VendorStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.VendorStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}
