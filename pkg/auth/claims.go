package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/martincervantes/procurehub-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT. JTI
// doubles as the Redis session key so logout can revoke a live token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Name   string
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients. Name rides
// along so lifecycle mutations can stamp actor names without a user lookup.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Name   string         `json:"name"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
