// Package reqctx resolves the authenticated caller for controllers.
package reqctx

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/iwanyu/marketplace-backend/api/middleware"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
	"github.com/iwanyu/marketplace-backend/pkg/outbox"
)

// UserID returns the authenticated user or a 401.
func UserID(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return id, nil
}

// Actor is the outbox actor for the authenticated user.
func Actor(r *http.Request) (outbox.ActorRef, error) {
	id, err := UserID(r)
	if err != nil {
		return outbox.ActorRef{}, err
	}
	return outbox.ActorRef{UserID: id, Role: middleware.RoleFromContext(r.Context())}, nil
}

// VendorID extracts the active vendor resolved by middleware.VendorContext.
func VendorID(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.VendorIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor access required")
	}
	return id, nil
}
