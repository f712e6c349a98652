package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/aquaflow-backend/internal/orders"
	"github.com/angelmondragon/aquaflow-backend/internal/shops"
	pkgAuth "github.com/angelmondragon/aquaflow-backend/pkg/auth"
	"github.com/angelmondragon/aquaflow-backend/pkg/config"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct {
	revoked map[string]bool
}

func (s stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return !s.revoked[accessID], nil
}

type stubShopsService struct {
	shops.Service
	pincode string
}

func (s *stubShopsService) ByPincode(ctx context.Context, pincode string) (*shops.SearchResult, error) {
	s.pincode = pincode
	return &shops.SearchResult{Shops: []shops.ShopDTO{}, SearchType: shops.SearchByPincode}, nil
}

type stubOrdersService struct {
	orders.Service
	statsShop uuid.UUID
}

func (s *stubOrdersService) Stats(ctx context.Context, shopID uuid.UUID) (*orders.Stats, error) {
	s.statsShop = shopID
	return &orders.Stats{TotalOrders: 3, TotalRevenue: decimal.NewFromInt(120)}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Env:             "test",
			Port:            "0",
			CORSOrigins:     []string{"*"},
			RateLimit:       100,
			RateLimitWindow: time.Minute,
		},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config, svc Services, sessions stubSessionManager) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(cfg, logg, stubPinger{}, nil, sessions, svc)
}

func buildToken(t *testing.T, cfg *config.Config, payload pkgAuth.AccessTokenPayload) string {
	t.Helper()
	if payload.JTI == "" {
		payload.JTI = uuid.NewString()
	}
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func userToken(t *testing.T, cfg *config.Config) string {
	return buildToken(t, cfg, pkgAuth.AccessTokenPayload{
		PrincipalID:   uuid.New(),
		PrincipalType: enums.PrincipalTypeUser,
	})
}

func shopkeeperToken(t *testing.T, cfg *config.Config, shopID uuid.UUID) string {
	return buildToken(t, cfg, pkgAuth.AccessTokenPayload{
		PrincipalID:   uuid.New(),
		PrincipalType: enums.PrincipalTypeShopkeeper,
		ShopID:        &shopID,
	})
}

func serve(router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, resp.Body.String())
	}
	return body.Error.Code
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig(), Services{}, stubSessionManager{})

	resp := serve(router, http.MethodGet, "/health/live", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("X-AquaFlow-Env"); got != "test" {
		t.Fatalf("expected env header test, got %q", got)
	}
}

func TestHealthReadyWithoutRedis(t *testing.T) {
	router := newTestRouter(testConfig(), Services{}, stubSessionManager{})

	resp := serve(router, http.MethodGet, "/health/ready", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(testConfig(), Services{}, stubSessionManager{})

	resp := serve(router, http.MethodGet, "/metrics", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), Services{}, stubSessionManager{})

	resp := serve(router, http.MethodGet, "/api/v1/orders/history", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED, got %s", code)
	}
}

func TestPrivateGroupRejectsRevokedSession(t *testing.T) {
	cfg := testConfig()
	jti := uuid.NewString()
	token := buildToken(t, cfg, pkgAuth.AccessTokenPayload{
		PrincipalID:   uuid.New(),
		PrincipalType: enums.PrincipalTypeUser,
		JTI:           jti,
	})
	router := newTestRouter(cfg, Services{}, stubSessionManager{revoked: map[string]bool{jti: true}})

	resp := serve(router, http.MethodGet, "/api/v1/orders/history", token)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestShopkeeperRoutesRejectUsers(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Services{}, stubSessionManager{})

	resp := serve(router, http.MethodGet, "/api/v1/shopkeeper/orders", userToken(t, cfg))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %s", code)
	}
}

func TestUserRoutesRejectShopkeepers(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Services{}, stubSessionManager{})

	resp := serve(router, http.MethodGet, "/api/v1/orders/history", shopkeeperToken(t, cfg, uuid.New()))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestShopkeeperReachesStats(t *testing.T) {
	cfg := testConfig()
	shopID := uuid.New()
	ordersSvc := &stubOrdersService{}
	router := newTestRouter(cfg, Services{Orders: ordersSvc}, stubSessionManager{})

	resp := serve(router, http.MethodGet, "/api/v1/shopkeeper/orders/stats", shopkeeperToken(t, cfg, shopID))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if ordersSvc.statsShop != shopID {
		t.Fatalf("expected stats for shop %s, got %s", shopID, ordersSvc.statsShop)
	}
}

func TestPublicShopLookupNeedsNoToken(t *testing.T) {
	shopsSvc := &stubShopsService{}
	router := newTestRouter(testConfig(), Services{Shops: shopsSvc}, stubSessionManager{})

	resp := serve(router, http.MethodGet, "/api/v1/shops/by-pincode?pincode=560001", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if shopsSvc.pincode != "560001" {
		t.Fatalf("expected pincode forwarded, got %q", shopsSvc.pincode)
	}
}

func TestMissingServiceAnswersInternalError(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Services{}, stubSessionManager{})

	resp := serve(router, http.MethodGet, "/api/v1/subscriptions", userToken(t, cfg))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}
