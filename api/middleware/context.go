package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
)

type contextKey string

const (
	ctxPrincipalID   contextKey = "principal_id"
	ctxPrincipalType contextKey = "principal_type"
	ctxShopID        contextKey = "shop_id"
	ctxAccessID      contextKey = "access_id"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	ID       uuid.UUID
	Type     enums.PrincipalType
	ShopID   *uuid.UUID
	AccessID string
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	id, ok := ctx.Value(ctxPrincipalID).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return Principal{}, false
	}
	p := Principal{ID: id}
	if v, ok := ctx.Value(ctxPrincipalType).(enums.PrincipalType); ok {
		p.Type = v
	}
	if v, ok := ctx.Value(ctxShopID).(uuid.UUID); ok {
		shopID := v
		p.ShopID = &shopID
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		p.AccessID = v
	}
	return p, true
}

// UserIDFromContext returns the caller id when the caller is a consumer.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.Type != enums.PrincipalTypeUser {
		return uuid.Nil, false
	}
	return p.ID, true
}

// ShopIDFromContext returns the shop owned by a shopkeeper caller.
func ShopIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.Type != enums.PrincipalTypeShopkeeper || p.ShopID == nil {
		return uuid.Nil, false
	}
	return *p.ShopID, true
}

func AccessIDFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.AccessID
}

// WithPrincipal injects an authenticated principal into the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxPrincipalID, p.ID)
	ctx = context.WithValue(ctx, ctxPrincipalType, p.Type)
	if p.ShopID != nil {
		ctx = context.WithValue(ctx, ctxShopID, *p.ShopID)
	}
	if p.AccessID != "" {
		ctx = context.WithValue(ctx, ctxAccessID, p.AccessID)
	}
	return ctx
}

// CurrentUserID returns the consumer making the request or a forbidden error.
func CurrentUserID(ctx context.Context) (uuid.UUID, error) {
	id, ok := UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "user context missing")
	}
	return id, nil
}

// CurrentShopID returns the shop of the shopkeeper making the request.
func CurrentShopID(ctx context.Context) (uuid.UUID, error) {
	id, ok := ShopIDFromContext(ctx)
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}
	return id, nil
}
