package vendors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/internal/users"
	"github.com/iwanyu/marketplace-backend/pkg/db"
	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
	"github.com/iwanyu/marketplace-backend/pkg/outbox"
	"github.com/iwanyu/marketplace-backend/pkg/outbox/payloads"
	"github.com/iwanyu/marketplace-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service covers vendor onboarding and moderation.
type Service interface {
	Apply(ctx context.Context, userID uuid.UUID, input ApplyInput) (*VendorDTO, error)
	Me(ctx context.Context, userID uuid.UUID) (*VendorDTO, error)
	// ActiveVendor returns the caller's vendor profile when it may sell.
	ActiveVendor(ctx context.Context, userID uuid.UUID) (*VendorDTO, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Result[VendorDTO], error)
	SetStatus(ctx context.Context, actor outbox.ActorRef, vendorID uuid.UUID, input SetStatusInput) (*VendorDTO, error)
	CountByStatus(ctx context.Context) (map[enums.VendorStatus]int64, error)
}

type service struct {
	repo   *Repository
	users  *users.Repository
	tx     txRunner
	outbox outbox.Emitter
}

// NewService builds the vendor service.
func NewService(repo *Repository, usersRepo *users.Repository, tx txRunner, emitter outbox.Emitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: repo, users: usersRepo, tx: tx, outbox: emitter}, nil
}

func (s *service) Apply(ctx context.Context, userID uuid.UUID, input ApplyInput) (*VendorDTO, error) {
	name := strings.TrimSpace(input.BusinessName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business_name is required")
	}
	if _, err := s.repo.FindByUserID(ctx, userID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "vendor profile already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}

	vendor := &models.Vendor{
		UserID:       userID,
		BusinessName: name,
		Description:  trimmed(input.Description),
		Phone:        trimmed(input.Phone),
		Status:       enums.VendorStatusPending,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, vendor); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVendorApplied,
			AggregateType: enums.AggregateVendor,
			AggregateID:   vendor.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.VendorEvent{
				VendorID:     vendor.ID,
				UserID:       userID,
				BusinessName: vendor.BusinessName,
				To:           enums.VendorStatusPending,
			},
		})
	})
	if err != nil {
		if db.IsUniqueViolation(err, UserUniqueConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "vendor profile already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create vendor")
	}
	return s.load(ctx, vendor.ID)
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*VendorDTO, error) {
	vendor, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, lookupErr(err)
	}
	return fromModel(vendor), nil
}

func (s *service) ActiveVendor(ctx context.Context, userID uuid.UUID) (*VendorDTO, error) {
	vendor, err := s.repo.FindByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor profile required")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	if vendor.Status != enums.VendorStatusActive {
		return nil, pkgerrors.Newf(pkgerrors.CodeForbidden, "vendor account is %s", strings.ToLower(string(vendor.Status)))
	}
	return fromModel(vendor), nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Result[VendorDTO], error) {
	params = params.Normalize()
	if filters.Status != nil && !filters.Status.IsValid() {
		return pagination.Result[VendorDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "status is invalid")
	}
	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return pagination.Result[VendorDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors")
	}
	items := make([]VendorDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *fromModel(&rows[i]))
	}
	return pagination.NewResult(items, params, total), nil
}

func (s *service) SetStatus(ctx context.Context, actor outbox.ActorRef, vendorID uuid.UUID, input SetStatusInput) (*VendorDTO, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status is invalid")
	}
	vendor, err := s.repo.FindByID(ctx, vendorID)
	if err != nil {
		return nil, lookupErr(err)
	}
	from := vendor.Status
	if !from.CanTransitionTo(input.Status) {
		return nil, pkgerrors.Newf(pkgerrors.CodeBadRequest, "cannot move vendor from %s to %s", from, input.Status)
	}
	reason := trimmed(input.Reason)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, vendor.ID, from, input.Status, reason)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "vendor status changed concurrently")
		}
		if input.Status == enums.VendorStatusActive {
			if err := s.users.WithTx(tx).UpdateRole(ctx, vendor.UserID, enums.UserRoleVendor); err != nil {
				return err
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVendorStatusChanged,
			AggregateType: enums.AggregateVendor,
			AggregateID:   vendor.ID,
			Actor:         &actor,
			Data: payloads.VendorEvent{
				VendorID:     vendor.ID,
				UserID:       vendor.UserID,
				BusinessName: vendor.BusinessName,
				From:         from,
				To:           input.Status,
				Reason:       reason,
			},
		})
	})
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeConflict {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update vendor status")
	}
	return s.load(ctx, vendor.ID)
}

func (s *service) CountByStatus(ctx context.Context) (map[enums.VendorStatus]int64, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count vendors")
	}
	return counts, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*VendorDTO, error) {
	vendor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err)
	}
	return fromModel(vendor), nil
}

func lookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
