package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/aquaflow-backend/api/responses"
	pkgAuth "github.com/angelmondragon/aquaflow-backend/pkg/auth"
	"github.com/angelmondragon/aquaflow-backend/pkg/auth/session"
	"github.com/angelmondragon/aquaflow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
)

// Auth requires a bearer access token whose session is still live and puts
// the resulting Principal on the request context.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			p, err := authenticate(ctx, cfg, verifier, BearerToken(r))
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			ctx = WithPrincipal(ctx, p)
			if logg != nil {
				ctx = logg.WithPrincipal(ctx, string(p.Type), p.ID.String())
				if p.ShopID != nil {
					ctx = logg.WithShopID(ctx, p.ShopID.String())
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, cfg config.JWTConfig, verifier session.AccessSessionChecker, token string) (Principal, error) {
	if token == "" {
		return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	switch {
	case errors.Is(err, pkgAuth.ErrTokenExpired):
		return Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "token expired")
	case err != nil:
		return Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	case claims.ID == "":
		return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	// Logout and refresh rotation revoke the access id server-side.
	if verifier != nil {
		live, err := verifier.HasSession(ctx, claims.ID)
		if err != nil {
			return Principal{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !live {
			return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}

	return Principal{
		ID:       claims.PrincipalID,
		Type:     claims.PrincipalType,
		ShopID:   claims.ShopID,
		AccessID: claims.ID,
	}, nil
}

// BearerToken returns the credential from "Authorization: Bearer <token>".
// A header without the scheme is taken as the raw token.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(rest)
	}
	return header
}
