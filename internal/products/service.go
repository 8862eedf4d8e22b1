package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
	"github.com/iwanyu/marketplace-backend/pkg/outbox"
	"github.com/iwanyu/marketplace-backend/pkg/outbox/payloads"
	"github.com/iwanyu/marketplace-backend/pkg/pagination"
	"github.com/iwanyu/marketplace-backend/pkg/types"
)

// Service exposes vendor and admin product management operations.
type Service interface {
	CreateProduct(ctx context.Context, vendorID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, vendorID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	AddVariant(ctx context.Context, vendorID, productID uuid.UUID, input VariantInput) (*VariantDTO, error)
	SetVendorStatus(ctx context.Context, actor outbox.ActorRef, vendorID, productID uuid.UUID, status enums.ProductStatus) (*ProductDTO, error)
	SetAdminStatus(ctx context.Context, actor outbox.ActorRef, productID uuid.UUID, status enums.ProductStatus) (*ProductDTO, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Result[ProductDTO], error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string               `json:"name" validate:"required,max=200"`
	Description *string              `json:"description,omitempty"`
	Price       decimal.Decimal      `json:"price"`
	Stock       int                  `json:"stock" validate:"gte=0"`
	SKU         *string              `json:"sku,omitempty" validate:"omitempty,max=64"`
	CategoryID  *uuid.UUID           `json:"category_id,omitempty"`
	Variants    []VariantInput       `json:"variants,omitempty" validate:"omitempty,dive"`
	Status      *enums.ProductStatus `json:"status,omitempty"`
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
	SKU         *string          `json:"sku,omitempty" validate:"omitempty,max=64"`
	CategoryID  *uuid.UUID       `json:"category_id,omitempty"`
}

// VariantInput describes a variant; a nil price inherits the product price.
type VariantInput struct {
	Name  string           `json:"name" validate:"required,max=100"`
	SKU   *string          `json:"sku,omitempty" validate:"omitempty,max=64"`
	Price *decimal.Decimal `json:"price,omitempty"`
	Stock int              `json:"stock" validate:"gte=0"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type categoryChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type service struct {
	repo       *Repository
	tx         txRunner
	outbox     outbox.Emitter
	categories categoryChecker
}

// NewService constructs a product service instance.
func NewService(repo *Repository, tx txRunner, emitter outbox.Emitter, categories categoryChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category checker required")
	}
	return &service{repo: repo, tx: tx, outbox: emitter, categories: categories}, nil
}

func (s *service) CreateProduct(ctx context.Context, vendorID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}
	priceCents, err := positiveCents(input.Price, "price")
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	status := enums.ProductStatusActive
	if input.Status != nil {
		if *input.Status == enums.ProductStatusSuspended || !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be ACTIVE or INACTIVE")
		}
		status = *input.Status
	}

	variants := make([]models.ProductVariant, 0, len(input.Variants))
	for _, v := range input.Variants {
		row, err := variantModel(v)
		if err != nil {
			return nil, err
		}
		variants = append(variants, row)
	}

	created, err := s.repo.CreateProduct(ctx, &models.Product{
		VendorID:    vendorID,
		CategoryID:  input.CategoryID,
		Name:        name,
		Slug:        types.Slugify(name),
		Description: input.Description,
		PriceCents:  priceCents,
		Stock:       input.Stock,
		SKU:         input.SKU,
		Status:      status,
		Variants:    variants,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	return s.detail(ctx, created.ID)
}

func (s *service) UpdateProduct(ctx context.Context, vendorID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if _, err := s.ownedProduct(ctx, s.repo, vendorID, productID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		updates["name"] = name
		updates["slug"] = types.Slugify(name)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Price != nil {
		cents, err := positiveCents(*input.Price, "price")
		if err != nil {
			return nil, err
		}
		updates["price_cents"] = cents
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
		}
		updates["stock"] = *input.Stock
	}
	if input.SKU != nil {
		updates["sku"] = *input.SKU
	}
	if input.CategoryID != nil {
		if err := s.checkCategory(ctx, input.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *input.CategoryID
	}

	if err := s.repo.UpdateProduct(ctx, productID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
	}
	return s.detail(ctx, productID)
}

func (s *service) AddVariant(ctx context.Context, vendorID, productID uuid.UUID, input VariantInput) (*VariantDTO, error) {
	if _, err := s.ownedProduct(ctx, s.repo, vendorID, productID); err != nil {
		return nil, err
	}
	row, err := variantModel(input)
	if err != nil {
		return nil, err
	}
	row.ProductID = productID
	created, err := s.repo.CreateVariant(ctx, &row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create variant")
	}
	dto := VariantFromModel(created)
	return &dto, nil
}

// SetVendorStatus lets the owning vendor toggle ACTIVE/INACTIVE. A product an
// admin suspended stays suspended.
func (s *service) SetVendorStatus(ctx context.Context, actor outbox.ActorRef, vendorID, productID uuid.UUID, status enums.ProductStatus) (*ProductDTO, error) {
	if status != enums.ProductStatusActive && status != enums.ProductStatusInactive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be ACTIVE or INACTIVE")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.ownedProduct(ctx, repo, vendorID, productID)
		if err != nil {
			return err
		}
		if current.Status == enums.ProductStatusSuspended {
			return pkgerrors.New(pkgerrors.CodeForbidden, "product is suspended by an administrator")
		}
		return s.transition(ctx, tx, repo, actor, current, status)
	})
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, productID)
}

func (s *service) SetAdminStatus(ctx context.Context, actor outbox.ActorRef, productID uuid.UUID, status enums.ProductStatus) (*ProductDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product status")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, productID)
		if err != nil {
			return notFoundOr(err, "load product")
		}
		return s.transition(ctx, tx, repo, actor, current, status)
	})
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, productID)
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Result[ProductDTO], error) {
	if !ValidSort(filters.Sort) {
		return pagination.Result[ProductDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported sort")
	}
	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return pagination.Result[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return pagination.NewResult(FromModels(rows), params, total), nil
}

func (s *service) transition(ctx context.Context, tx *gorm.DB, repo *Repository, actor outbox.ActorRef, current *models.Product, status enums.ProductStatus) error {
	if current.Status == status {
		return nil
	}
	if err := repo.UpdateStatus(ctx, current.ID, status); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product status")
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventProductStatusChanged,
		AggregateType: enums.AggregateProduct,
		AggregateID:   current.ID,
		Actor:         &actor,
		Data: payloads.ProductStatusChangedEvent{
			ProductID: current.ID,
			VendorID:  current.VendorID,
			From:      current.Status,
			To:        status,
		},
	})
}

func (s *service) ownedProduct(ctx context.Context, repo *Repository, vendorID, productID uuid.UUID) (*models.Product, error) {
	product, err := repo.FindByID(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "load product")
	}
	if product.VendorID != vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) detail(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	row, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load product")
	}
	return FromModel(row), nil
}

func (s *service) checkCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	ok, err := s.categories.Exists(ctx, *id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check category")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
	}
	return nil
}

func variantModel(v VariantInput) (models.ProductVariant, error) {
	name := strings.TrimSpace(v.Name)
	if name == "" {
		return models.ProductVariant{}, pkgerrors.New(pkgerrors.CodeValidation, "variant name is required")
	}
	if v.Stock < 0 {
		return models.ProductVariant{}, pkgerrors.New(pkgerrors.CodeValidation, "variant stock must not be negative")
	}
	row := models.ProductVariant{Name: name, SKU: v.SKU, Stock: v.Stock}
	if v.Price != nil {
		cents, err := positiveCents(*v.Price, "variant price")
		if err != nil {
			return models.ProductVariant{}, err
		}
		row.PriceCents = &cents
	}
	return row, nil
}

func positiveCents(amount decimal.Decimal, field string) (int64, error) {
	cents, err := types.ToCents(amount)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, field+" is invalid").WithDetails(map[string]string{field: err.Error()})
	}
	if cents <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, field+" must be greater than zero")
	}
	return cents, nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
