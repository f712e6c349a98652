package middleware

import (
	"net/http"

	"github.com/angelmondragon/aquaflow-backend/api/responses"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
)

// RequirePrincipal only lets callers of the given account type through.
// Shopkeepers must also carry the shop they own.
func RequirePrincipal(kind enums.PrincipalType, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "principal context missing"))
				return
			}
			if p.Type != kind {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, string(kind)+" access required"))
				return
			}
			if kind == enums.PrincipalTypeShopkeeper && p.ShopID == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireUser(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequirePrincipal(enums.PrincipalTypeUser, logg)
}

func RequireShopkeeper(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequirePrincipal(enums.PrincipalTypeShopkeeper, logg)
}
