package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iwanyu/marketplace-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	Role      enums.UserRole
	SessionID uuid.UUID
}

// AccessTokenClaims represents the typed JWT issued to clients. The registered
// jti carries the session id that must exist server side.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// SessionID parses the jti back into a session id.
func (c *AccessTokenClaims) SessionID() (uuid.UUID, error) {
	return uuid.Parse(c.ID)
}
