package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/iwanyu/marketplace-backend/api/responses"
	"github.com/iwanyu/marketplace-backend/internal/vendors"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
	"github.com/iwanyu/marketplace-backend/pkg/logger"
)

type activeVendorResolver interface {
	ActiveVendor(ctx context.Context, userID uuid.UUID) (*vendors.VendorDTO, error)
}

// VendorContext resolves the caller's ACTIVE vendor profile and stores its id
// on the request. Callers without one are rejected with 403.
func VendorContext(resolver activeVendorResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vendor service unavailable"))
				return
			}
			userID, ok := UserUUIDFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}

			vendor, err := resolver.ActiveVendor(r.Context(), userID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithVendorID(r.Context(), vendor.ID)
			if logg != nil {
				ctx = logg.WithVendorID(ctx, vendor.ID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
