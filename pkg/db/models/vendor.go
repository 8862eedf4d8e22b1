package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/pkg/enums"
)

// Vendor is a seller profile owned by exactly one user.
type Vendor struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	UserID       uuid.UUID          `gorm:"column:user_id;type:uuid;not null;uniqueIndex:vendors_user_id_key"`
	BusinessName string             `gorm:"column:business_name;not null"`
	Description  *string            `gorm:"column:description"`
	Phone        *string            `gorm:"column:phone"`
	Status       enums.VendorStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	StatusReason *string            `gorm:"column:status_reason"`
	User         *User              `gorm:"foreignKey:UserID"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *Vendor) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
