package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/aquaflow-backend/api/middleware"
	"github.com/angelmondragon/aquaflow-backend/api/responses"
	"github.com/angelmondragon/aquaflow-backend/api/validators"
	"github.com/angelmondragon/aquaflow-backend/internal/notifications"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
)

// notificationRecipient maps the caller to their inbox: consumers read their
// own, shopkeepers read their shop's.
func notificationRecipient(ctx context.Context) (notifications.Recipient, error) {
	if userID, ok := middleware.UserIDFromContext(ctx); ok {
		return notifications.Recipient{Type: enums.NotificationRecipientUser, ID: userID}, nil
	}
	if shopID, ok := middleware.ShopIDFromContext(ctx); ok {
		return notifications.Recipient{Type: enums.NotificationRecipientShop, ID: shopID}, nil
	}
	return notifications.Recipient{}, pkgerrors.New(pkgerrors.CodeForbidden, "principal context missing")
}

// serveInbox resolves the caller's inbox before handing off to fn.
func serveInbox(logg *logger.Logger, fn func(r *http.Request, inbox notifications.Recipient) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inbox, err := notificationRecipient(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := fn(r, inbox)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListNotifications pages through the caller's inbox, newest first.
// ?unread_only=true restricts the page to unread entries.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "notifications")
	}
	return serveInbox(logg, func(r *http.Request, inbox notifications.Recipient) (any, error) {
		page, err := validators.ParsePageParams(r)
		if err != nil {
			return nil, err
		}
		params := notifications.ListParams{Recipient: inbox, Limit: page.Limit, Cursor: page.Cursor}
		if raw := strings.TrimSpace(r.URL.Query().Get("unread_only")); raw != "" {
			if params.UnreadOnly, err = strconv.ParseBool(raw); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unread_only value")
			}
		}
		return svc.List(r.Context(), params)
	})
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "notifications")
	}
	return serveInbox(logg, func(r *http.Request, inbox notifications.Recipient) (any, error) {
		id, err := validators.ParseUUIDParam(r, "notificationId")
		if err != nil {
			return nil, err
		}
		if err := svc.MarkRead(r.Context(), inbox, id); err != nil {
			return nil, err
		}
		return map[string]any{"read": true}, nil
	})
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "notifications")
	}
	return serveInbox(logg, func(r *http.Request, inbox notifications.Recipient) (any, error) {
		n, err := svc.MarkAllRead(r.Context(), inbox)
		if err != nil {
			return nil, err
		}
		return map[string]any{"updated": n}, nil
	})
}
