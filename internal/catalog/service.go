package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	product "github.com/iwanyu/marketplace-backend/internal/products"
	"github.com/iwanyu/marketplace-backend/pkg/db"
	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
	"github.com/iwanyu/marketplace-backend/pkg/pagination"
	"github.com/iwanyu/marketplace-backend/pkg/types"
)

// Service is the public, read-mostly catalog surface.
type Service interface {
	ListProducts(ctx context.Context, query ProductQuery, params pagination.Params) (pagination.Result[product.ProductDTO], error)
	GetProduct(ctx context.Context, id uuid.UUID) (*product.ProductDTO, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	GetCategory(ctx context.Context, slug string) (*CategoryDTO, error)
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error)
}

type service struct {
	products   *product.Repository
	categories *CategoryRepository
}

func NewService(products *product.Repository, categories *CategoryRepository) (Service, error) {
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category repository required")
	}
	return &service{products: products, categories: categories}, nil
}

func (s *service) ListProducts(ctx context.Context, query ProductQuery, params pagination.Params) (pagination.Result[product.ProductDTO], error) {
	if !product.ValidSort(query.Sort) {
		return pagination.Result[product.ProductDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "sort must be one of newest, oldest, price_asc, price_desc, name")
	}

	filters := product.ListFilters{
		VisibleOnly: true,
		VendorID:    query.VendorID,
		Query:       query.Query,
		InStock:     query.InStock,
		Sort:        query.Sort,
	}
	if category := strings.TrimSpace(query.Category); category != "" {
		if id, err := uuid.Parse(category); err == nil {
			filters.CategoryID = &id
		} else {
			filters.CategorySlug = category
		}
	}
	if query.MinPrice != nil {
		cents, err := types.ToCents(*query.MinPrice)
		if err != nil {
			return pagination.Result[product.ProductDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "min_price is invalid")
		}
		filters.MinPriceCents = &cents
	}
	if query.MaxPrice != nil {
		cents, err := types.ToCents(*query.MaxPrice)
		if err != nil {
			return pagination.Result[product.ProductDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "max_price is invalid")
		}
		filters.MaxPriceCents = &cents
	}
	if filters.MinPriceCents != nil && filters.MaxPriceCents != nil && *filters.MinPriceCents > *filters.MaxPriceCents {
		return pagination.Result[product.ProductDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "min_price must not exceed max_price")
	}

	rows, total, err := s.products.List(ctx, filters, params)
	if err != nil {
		return pagination.Result[product.ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return pagination.NewResult(product.FromModels(rows), params, total), nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*product.ProductDTO, error) {
	row, err := s.products.FindVisibleDetail(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product.FromModel(row), nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.categories.ListWithCounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, categoryFromRow(row))
	}
	return out, nil
}

func (s *service) GetCategory(ctx context.Context, slug string) (*CategoryDTO, error) {
	row, err := s.categories.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
	}
	dto := categoryFromRow(*row)
	return &dto, nil
}

func (s *service) CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	slug := types.Slugify(name)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must contain letters or digits")
	}
	if input.ParentID != nil {
		ok, err := s.categories.Exists(ctx, *input.ParentID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check parent category")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent category does not exist")
		}
	}

	row := &models.Category{
		Name:        name,
		Slug:        slug,
		Description: input.Description,
		ParentID:    input.ParentID,
	}
	if err := s.categories.Create(ctx, row); err != nil {
		if db.IsUniqueViolation(err, SlugUniqueConstraint) || db.IsUniqueViolation(err, "categories.slug") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create category")
	}
	return &CategoryDTO{
		ID:          row.ID,
		Name:        row.Name,
		Slug:        row.Slug,
		Description: row.Description,
		ParentID:    row.ParentID,
		CreatedAt:   row.CreatedAt,
	}, nil
}
