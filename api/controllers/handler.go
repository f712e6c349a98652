package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/aquaflow-backend/api/middleware"
	"github.com/angelmondragon/aquaflow-backend/api/responses"
	"github.com/angelmondragon/aquaflow-backend/api/validators"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
)

// unavailable answers every request with a 500 for a route whose backing
// service was not wired.
func unavailable(logg *logger.Logger, what string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, what+" service unavailable"))
	}
}

// decodeAndRespond decodes a Req body, hands it to call and renders the
// result with status.
func decodeAndRespond[Req, Resp any](logg *logger.Logger, status int, call func(context.Context, Req) (Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body Req
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := call(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// serve renders fn's result with status, or the error envelope.
func serve(logg *logger.Logger, status int, fn func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := fn(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// serveUser resolves the calling consumer before handing off to fn and
// renders fn's result with status.
func serveUser(logg *logger.Logger, status int, fn func(r *http.Request, userID uuid.UUID) (any, error)) http.HandlerFunc {
	return servePrincipal(logg, status, middleware.CurrentUserID, fn)
}

// serveShop is serveUser for shopkeeper routes; fn receives the caller's shop.
func serveShop(logg *logger.Logger, status int, fn func(r *http.Request, shopID uuid.UUID) (any, error)) http.HandlerFunc {
	return servePrincipal(logg, status, middleware.CurrentShopID, fn)
}

func servePrincipal(
	logg *logger.Logger,
	status int,
	resolve func(context.Context) (uuid.UUID, error),
	fn func(r *http.Request, id uuid.UUID) (any, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := resolve(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		serve(logg, status, func(r *http.Request) (any, error) { return fn(r, id) })(w, r)
	}
}
