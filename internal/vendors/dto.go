package vendors

import (
	"time"

	"github.com/google/uuid"

	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
)

// ApplyInput is a vendor application.
type ApplyInput struct {
	BusinessName string  `json:"business_name" validate:"required,min=2,max=120"`
	Description  *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
}

// SetStatusInput is an admin moderation decision.
type SetStatusInput struct {
	Status enums.VendorStatus `json:"status" validate:"required"`
	Reason *string            `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// ListFilters narrows the admin vendor listing.
type ListFilters struct {
	Status *enums.VendorStatus
	Query  string
}

type OwnerDTO struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

// VendorDTO is the vendor profile.
type VendorDTO struct {
	ID           uuid.UUID          `json:"id"`
	UserID       uuid.UUID          `json:"user_id"`
	BusinessName string             `json:"business_name"`
	Description  *string            `json:"description,omitempty"`
	Phone        *string            `json:"phone,omitempty"`
	Status       enums.VendorStatus `json:"status"`
	StatusReason *string            `json:"status_reason,omitempty"`
	Owner        *OwnerDTO          `json:"owner,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func fromModel(v *models.Vendor) *VendorDTO {
	if v == nil {
		return nil
	}
	dto := &VendorDTO{
		ID:           v.ID,
		UserID:       v.UserID,
		BusinessName: v.BusinessName,
		Description:  v.Description,
		Phone:        v.Phone,
		Status:       v.Status,
		StatusReason: v.StatusReason,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
	if v.User != nil {
		dto.Owner = &OwnerDTO{
			ID:        v.User.ID,
			Email:     v.User.Email,
			FirstName: v.User.FirstName,
			LastName:  v.User.LastName,
		}
	}
	return dto
}
