package controllers

import (
	"net/http"

	"github.com/angelmondragon/aquaflow-backend/api/middleware"
	"github.com/angelmondragon/aquaflow-backend/api/responses"
	"github.com/angelmondragon/aquaflow-backend/api/validators"
	"github.com/angelmondragon/aquaflow-backend/internal/auth"
	pkgAuth "github.com/angelmondragon/aquaflow-backend/pkg/auth"
	"github.com/angelmondragon/aquaflow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
)

func requireBearer(r *http.Request) (string, error) {
	if token := middleware.BearerToken(r); token != "" {
		return token, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
}

// AuthLogout ends the session named by the bearer token's jti. Expired
// tokens are accepted so a stale client can still sign out.
func AuthLogout(svc auth.Service, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "auth")
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		err := func() error {
			token, err := requireBearer(r)
			if err != nil {
				return err
			}
			claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, token)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
			}
			if claims.ID == "" {
				return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
			}
			return svc.Logout(ctx, claims.ID)
		}()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthRefresh rotates the refresh token and mints a new access token. The
// (possibly expired) access token identifies which session to rotate.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "auth")
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		token, err := requireBearer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pair, err := svc.Refresh(r.Context(), token, body.RefreshToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pair)
	}
}
