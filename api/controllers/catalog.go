package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iwanyu/marketplace-backend/api/responses"
	"github.com/iwanyu/marketplace-backend/api/validators"
	"github.com/iwanyu/marketplace-backend/internal/catalog"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
	"github.com/iwanyu/marketplace-backend/pkg/logger"
)

// CatalogListProducts serves the public product browse with filters and sort.
func CatalogListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query, err := parseProductQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), query, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CatalogGetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		id, err := validators.ParsePathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func CatalogListCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

func CatalogGetCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		slug := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "slug")))
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "category slug is required"))
			return
		}
		category, err := svc.GetCategory(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}

func parseProductQuery(r *http.Request) (catalog.ProductQuery, error) {
	q := r.URL.Query()
	query := catalog.ProductQuery{
		Category: strings.TrimSpace(q.Get("category")),
		Query:    validators.SanitizeString(q.Get("q"), 200),
		Sort:     strings.ToLower(strings.TrimSpace(q.Get("sort"))),
	}

	var err error
	if query.VendorID, err = validators.ParseQueryUUID(r, "vendor_id"); err != nil {
		return query, err
	}
	if query.MinPrice, err = validators.ParseQueryDecimal(r, "min_price"); err != nil {
		return query, err
	}
	if query.MaxPrice, err = validators.ParseQueryDecimal(r, "max_price"); err != nil {
		return query, err
	}
	if query.InStock, err = validators.ParseQueryBool(r, "in_stock"); err != nil {
		return query, err
	}
	if query.MinPrice != nil && query.MaxPrice != nil && query.MinPrice.GreaterThan(*query.MaxPrice) {
		return query, pkgerrors.New(pkgerrors.CodeValidation, "min_price must not exceed max_price")
	}
	return query, nil
}
