package controllers

import (
	"net/http"

	"github.com/angelmondragon/aquaflow-backend/internal/auth"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
)

// ShopkeeperRegister onboards a shopkeeper together with their shop.
func ShopkeeperRegister(reg auth.RegisterService, logg *logger.Logger) http.HandlerFunc {
	if reg == nil {
		return unavailable(logg, "register")
	}
	return decodeAndRespond(logg, http.StatusCreated, reg.Register)
}
