package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/api/validators"
	"github.com/angelmondragon/aquaflow-backend/internal/users"
	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
)

// ProfileStore reads and updates consumer profiles.
type ProfileStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, dto users.UpdateProfileDTO) error
}

type updateProfileRequest struct {
	Name    *string `json:"name" validate:"omitempty,max=100"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Pincode *string `json:"pincode" validate:"omitempty,pincode"`
}

// UserProfile returns the signed-in consumer.
func UserProfile(store ProfileStore, logg *logger.Logger) http.HandlerFunc {
	if store == nil {
		return unavailable(logg, "user")
	}
	return serveUser(logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) (any, error) {
		user, err := loadUser(r.Context(), store, userID)
		if err != nil {
			return nil, err
		}
		return users.FromModel(user), nil
	})
}

// UserUpdateProfile applies optional name, email and pincode edits and
// returns the stored result.
func UserUpdateProfile(store ProfileStore, logg *logger.Logger) http.HandlerFunc {
	if store == nil {
		return unavailable(logg, "user")
	}
	return serveUser(logg, http.StatusOK, func(r *http.Request, userID uuid.UUID) (any, error) {
		var body updateProfileRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		dto := users.UpdateProfileDTO{Name: body.Name, Email: body.Email, Pincode: body.Pincode}
		if err := store.UpdateProfile(r.Context(), userID, dto); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
		}
		user, err := loadUser(r.Context(), store, userID)
		if err != nil {
			return nil, err
		}
		return users.FromModel(user), nil
	})
}

func loadUser(ctx context.Context, store ProfileStore, userID uuid.UUID) (*models.User, error) {
	user, err := store.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
