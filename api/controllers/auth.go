package controllers

import (
	"net/http"

	"github.com/angelmondragon/aquaflow-backend/internal/auth"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
)

// UserSendOTP registers the phone number on first contact and texts a login code.
func UserSendOTP(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "auth")
	}
	return decodeAndRespond(logg, http.StatusOK, svc.SendOTP)
}

// UserVerifyOTP exchanges a valid code for a token pair.
func UserVerifyOTP(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "auth")
	}
	return decodeAndRespond(logg, http.StatusOK, svc.VerifyOTP)
}

func ShopkeeperLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "auth")
	}
	return decodeAndRespond(logg, http.StatusOK, svc.ShopkeeperLogin)
}
