package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/pkg/enums"
)

// Payment is one gateway attempt for an order. ProviderTransactionID holds the
// reference we generate and send as tx_ref.
type Payment struct {
	ID                    uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID               uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	Provider              enums.PaymentProvider `gorm:"column:provider;type:text;not null"`
	ProviderTransactionID string                `gorm:"column:provider_transaction_id;not null;uniqueIndex:payments_provider_transaction_id_key"`
	ProviderChargeID      *string               `gorm:"column:provider_charge_id"`
	AmountCents           int64                 `gorm:"column:amount_cents;not null"`
	Currency              string                `gorm:"column:currency;not null"`
	Status                enums.PaymentStatus   `gorm:"column:status;type:text;not null;default:'PENDING'"`
	Metadata              map[string]any        `gorm:"column:metadata;type:jsonb;serializer:json"`
	Order                 *Order                `gorm:"foreignKey:OrderID"`
	CreatedAt             time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
