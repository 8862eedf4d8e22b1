package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
}

// Service exposes the shopper's cart operations. Nothing here reserves stock;
// availability is re-checked at order creation.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	Add(ctx context.Context, userID uuid.UUID, input AddItemInput) (*ItemDTO, error)
	Update(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*ItemDTO, error)
	Remove(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
	Count(ctx context.Context, userID uuid.UUID) (*CountDTO, error)
}

type service struct {
	repo     *Repository
	tx       txRunner
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, tx: tx, products: products}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	dto := cartFromModels(items)
	return &dto, nil
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, input AddItemInput) (*ItemDTO, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	if product.Status != enums.ProductStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "product is not available")
	}

	available := product.Stock
	if input.VariantID != nil {
		variant, err := s.products.FindVariant(ctx, *input.VariantID)
		if err != nil {
			return nil, notFoundOr(err, "variant not found", "load variant")
		}
		if variant.ProductID != product.ID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		available = variant.Stock
	}

	var itemID uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindLine(ctx, userID, product.ID, input.VariantID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
		}

		quantity := input.Quantity
		if existing != nil {
			quantity += existing.Quantity
		}
		if quantity > available {
			return insufficientStock(product.Name, available)
		}

		if existing != nil {
			itemID = existing.ID
			if err := repo.UpdateQuantity(ctx, existing.ID, quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
			}
			return nil
		}

		item := &models.CartItem{
			UserID:            userID,
			ProductID:         product.ID,
			SelectedVariantID: input.VariantID,
			Quantity:          quantity,
		}
		if err := repo.Create(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart line")
		}
		itemID = item.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.line(ctx, itemID, userID)
}

func (s *service) Update(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*ItemDTO, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	item, err := s.repo.FindForUser(ctx, itemID, userID)
	if err != nil {
		return nil, notFoundOr(err, "cart item not found", "load cart line")
	}
	if item.Product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if available := item.AvailableStock(); input.Quantity > available {
		return nil, insufficientStock(item.Product.Name, available)
	}
	if err := s.repo.UpdateQuantity(ctx, item.ID, input.Quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
	}
	item.Quantity = input.Quantity
	dto := itemFromModel(*item)
	return &dto, nil
}

func (s *service) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, itemID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart line")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.repo.DeleteAll(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

func (s *service) Count(ctx context.Context, userID uuid.UUID) (*CountDTO, error) {
	lines, quantity, err := s.repo.Count(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count cart")
	}
	return &CountDTO{ItemCount: lines, TotalQuantity: quantity}, nil
}

func (s *service) line(ctx context.Context, id, userID uuid.UUID) (*ItemDTO, error) {
	item, err := s.repo.FindForUser(ctx, id, userID)
	if err != nil {
		return nil, notFoundOr(err, "cart item not found", "load cart line")
	}
	dto := itemFromModel(*item)
	return &dto, nil
}

func insufficientStock(product string, available int) error {
	return pkgerrors.Newf(pkgerrors.CodeBadRequest, "insufficient stock for %s", product).
		WithDetails(map[string]int{"available": available})
}

func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, internal)
}
