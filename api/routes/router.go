package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/aquaflow-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/aquaflow-backend/api/controllers/orders"
	subscriptioncontrollers "github.com/angelmondragon/aquaflow-backend/api/controllers/subscriptions"
	"github.com/angelmondragon/aquaflow-backend/api/middleware"
	"github.com/angelmondragon/aquaflow-backend/internal/address"
	"github.com/angelmondragon/aquaflow-backend/internal/auth"
	"github.com/angelmondragon/aquaflow-backend/internal/complaints"
	"github.com/angelmondragon/aquaflow-backend/internal/notifications"
	"github.com/angelmondragon/aquaflow-backend/internal/orders"
	"github.com/angelmondragon/aquaflow-backend/internal/payments"
	"github.com/angelmondragon/aquaflow-backend/internal/shops"
	"github.com/angelmondragon/aquaflow-backend/internal/subscriptions"
	"github.com/angelmondragon/aquaflow-backend/pkg/auth/session"
	"github.com/angelmondragon/aquaflow-backend/pkg/config"
	"github.com/angelmondragon/aquaflow-backend/pkg/db"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/aquaflow-backend/pkg/redis"
)

// Cache is the part of the Redis client the HTTP surface relies on.
type Cache interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Services bundles the domain services mounted by the router. Nil services
// answer with an internal error instead of panicking.
type Services struct {
	Auth          auth.Service
	Register      auth.RegisterService
	Profiles      controllers.ProfileStore
	Addresses     address.Service
	Shops         shops.Service
	Orders        orders.Service
	Subscriptions subscriptions.Service
	Payments      payments.Service
	Complaints    complaints.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cache Cache,
	sessions session.AccessSessionChecker,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	otpPolicy := middleware.NewAuthRateLimitPolicy(
		"otp",
		cfg.AuthRateLimit.OTPWindow,
		cfg.AuthRateLimit.OTPIPLimit,
		cfg.AuthRateLimit.OTPPhoneLimit,
		"phone_number",
	)
	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	readiness := map[string]db.Pinger{}
	if dbP != nil {
		readiness["database"] = dbP
	}
	if cache != nil {
		readiness["redis"] = cache
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cache, cfg.App.RateLimit, cfg.App.RateLimitWindow, logg))

			r.With(middleware.AuthRateLimit(otpPolicy, cache, logg)).Post("/users/send-otp", controllers.UserSendOTP(svc.Auth, logg))
			r.With(middleware.AuthRateLimit(otpPolicy, cache, logg)).Post("/users/verify-otp", controllers.UserVerifyOTP(svc.Auth, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, cache, logg)).Post("/shopkeeper/register", controllers.ShopkeeperRegister(svc.Register, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, cache, logg)).Post("/shopkeeper/login", controllers.ShopkeeperLogin(svc.Auth, logg))
			r.Post("/auth/refresh", controllers.AuthRefresh(svc.Auth, logg))
			r.Post("/auth/logout", controllers.AuthLogout(svc.Auth, cfg.JWT, logg))

			r.Get("/shops/by-pincode", controllers.ShopsByPincode(svc.Shops, logg))
			r.Get("/shops/{slug}", controllers.ShopBySlug(svc.Shops, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Use(middleware.RateLimit(cache, cfg.App.RateLimit, cfg.App.RateLimitWindow, logg))
			r.Use(middleware.Idempotency(cache, logg))

			r.Get("/notifications", controllers.ListNotifications(svc.Notifications, logg))
			r.Post("/notifications/read-all", controllers.MarkAllNotificationsRead(svc.Notifications, logg))
			r.Post("/notifications/{notificationId}/read", controllers.MarkNotificationRead(svc.Notifications, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireUser(logg))
				mountUserRoutes(r, svc, logg)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireShopkeeper(logg))
				mountShopkeeperRoutes(r, svc, logg)
			})
		})
	})

	return r
}

func mountUserRoutes(r chi.Router, svc Services, logg *logger.Logger) {
	r.Get("/users/me", controllers.UserProfile(svc.Profiles, logg))
	r.Put("/users/me", controllers.UserUpdateProfile(svc.Profiles, logg))
	r.Get("/users/shops", controllers.ShopSearch(svc.Shops, logg))

	r.Get("/users/addresses", controllers.AddressList(svc.Addresses, logg))
	r.Post("/users/addresses", controllers.AddressAdd(svc.Addresses, logg))
	r.Put("/users/addresses/{addressId}/default", controllers.AddressSetDefault(svc.Addresses, logg))
	r.Delete("/users/addresses/{addressId}", controllers.AddressDelete(svc.Addresses, logg))

	r.Post("/users/complaints", controllers.ComplaintSubmit(svc.Complaints, logg))
	r.Get("/users/complaints", controllers.ComplaintListMine(svc.Complaints, logg))

	r.Post("/orders/one-time", ordercontrollers.PlaceOneTime(svc.Orders, logg))
	r.Post("/orders/subscription", subscriptioncontrollers.Create(svc.Subscriptions, logg))
	r.Post("/orders/subscription/order-jars", subscriptioncontrollers.OrderJars(svc.Subscriptions, logg))
	r.Get("/orders/history", ordercontrollers.History(svc.Orders, logg))
	r.Get("/orders/{orderId}", ordercontrollers.Detail(svc.Orders, logg))
	r.Post("/orders/{orderId}/rating", ordercontrollers.Rate(svc.Orders, logg))
	r.Get("/tracking/orders/{orderId}", ordercontrollers.Track(svc.Orders, logg))

	r.Get("/subscriptions", subscriptioncontrollers.List(svc.Subscriptions, logg))
	r.Get("/subscriptions/{subscriptionId}", subscriptioncontrollers.Detail(svc.Subscriptions, logg))
	r.Post("/subscriptions/{subscriptionId}/pause", subscriptioncontrollers.Pause(svc.Subscriptions, logg))
	r.Post("/subscriptions/{subscriptionId}/resume", subscriptioncontrollers.Resume(svc.Subscriptions, logg))
	r.Post("/subscriptions/{subscriptionId}/cancel", subscriptioncontrollers.Cancel(svc.Subscriptions, logg))

	r.Post("/payment/monthly", controllers.PaymentMonthly(svc.Subscriptions, logg))
	r.Post("/payment/initiate", controllers.PaymentInitiate(svc.Orders, svc.Subscriptions, logg))
	r.Get("/payment/history", controllers.PaymentHistory(svc.Payments, logg))
	r.Get("/payment/{paymentRef}", controllers.PaymentDetail(svc.Payments, logg))
}

func mountShopkeeperRoutes(r chi.Router, svc Services, logg *logger.Logger) {
	r.Get("/shopkeeper/profile", controllers.ShopkeeperProfile(svc.Shops, logg))
	r.Put("/shopkeeper/shop", controllers.ShopkeeperUpdateShop(svc.Shops, logg))

	r.Get("/shopkeeper/orders", ordercontrollers.ShopList(svc.Orders, svc.Subscriptions, logg))
	r.Get("/shopkeeper/orders/stats", ordercontrollers.ShopStats(svc.Orders, logg))
	r.Put("/shopkeeper/orders/{orderId}/status", ordercontrollers.UpdateStatus(svc.Orders, logg))
	r.Post("/shopkeeper/orders/{orderId}/assign", ordercontrollers.AssignDelivery(svc.Orders, logg))
	r.Post("/shopkeeper/orders/{orderId}/location", ordercontrollers.UpdateLocation(svc.Orders, logg))

	r.Get("/shopkeeper/subscriptions", subscriptioncontrollers.ShopList(svc.Subscriptions, logg))
	r.Post("/shopkeeper/subscriptions/{subscriptionId}/deliver", subscriptioncontrollers.RecordDelivery(svc.Subscriptions, logg))

	r.Get("/shopkeeper/complaints", controllers.ShopComplaintList(svc.Complaints, logg))
	r.Put("/shopkeeper/complaints/{complaintId}/status", controllers.ShopComplaintUpdateStatus(svc.Complaints, logg))
}
