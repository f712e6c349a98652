package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
)

// AccessTokenPayload is what the caller knows when minting a token. An empty
// JTI is filled with a random id.
type AccessTokenPayload struct {
	PrincipalID   uuid.UUID
	PrincipalType enums.PrincipalType
	ShopID        *uuid.UUID
	JTI           string
}

// AccessTokenClaims is the JWT body handed to clients. The jti doubles as the
// server-side session id.
type AccessTokenClaims struct {
	PrincipalID   uuid.UUID           `json:"principal_id"`
	PrincipalType enums.PrincipalType `json:"principal_type"`
	ShopID        *uuid.UUID          `json:"shop_id,omitempty"`
	jwt.RegisteredClaims
}

func (c *AccessTokenClaims) IsShopkeeper() bool {
	return c.PrincipalType == enums.PrincipalTypeShopkeeper && c.ShopID != nil
}

// checkPrincipal enforces that shopkeepers always carry their shop and users never do.
func checkPrincipal(id uuid.UUID, kind enums.PrincipalType, shopID *uuid.UUID) error {
	switch {
	case id == uuid.Nil:
		return errors.New("principal id is required")
	case !kind.IsValid():
		return fmt.Errorf("invalid principal type %q", kind)
	case kind == enums.PrincipalTypeShopkeeper && shopID == nil:
		return errors.New("shopkeeper tokens require a shop id")
	case kind == enums.PrincipalTypeUser && shopID != nil:
		return errors.New("user tokens cannot carry a shop id")
	}
	return nil
}
