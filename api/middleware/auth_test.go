package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/aquaflow-backend/pkg/auth"
	"github.com/angelmondragon/aquaflow-backend/pkg/auth/session"
	"github.com/angelmondragon/aquaflow-backend/pkg/config"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
)

var jwtCfg = config.JWTConfig{Secret: "secret", Issuer: "aquaflow-test", ExpirationMinutes: 60}

type liveSessions struct {
	live bool
	err  error
}

func (s liveSessions) HasSession(context.Context, string) (bool, error) {
	return s.live, s.err
}

func signedToken(t *testing.T, kind enums.PrincipalType, shopID *uuid.UUID, issuedAt time.Time) string {
	t.Helper()
	token, err := auth.MintAccessToken(jwtCfg, issuedAt, auth.AccessTokenPayload{
		PrincipalID:   uuid.New(),
		PrincipalType: kind,
		ShopID:        shopID,
		JTI:           session.NewAccessID(),
	})
	require.NoError(t, err)
	return token
}

func withBearer(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuthRejects(t *testing.T) {
	userToken := signedToken(t, enums.PrincipalTypeUser, nil, time.Now())

	cases := []struct {
		name     string
		token    string
		sessions liveSessions
		want     int
	}{
		{name: "no header", sessions: liveSessions{live: true}, want: http.StatusUnauthorized},
		{name: "garbage token", token: "invalid", sessions: liveSessions{live: true}, want: http.StatusUnauthorized},
		{
			name:     "expired token",
			token:    signedToken(t, enums.PrincipalTypeUser, nil, time.Now().Add(-3*time.Hour)),
			sessions: liveSessions{live: true},
			want:     http.StatusUnauthorized,
		},
		{name: "revoked session", token: userToken, sessions: liveSessions{live: false}, want: http.StatusUnauthorized},
		{name: "session store down", token: userToken, sessions: liveSessions{err: errors.New("redis down")}, want: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reached := false
			h := Auth(jwtCfg, tc.sessions, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { reached = true }))
			resp := httptest.NewRecorder()
			h.ServeHTTP(resp, withBearer(tc.token))

			assert.Equal(t, tc.want, resp.Code)
			assert.False(t, reached)
		})
	}
}

func TestAuthPrincipalOnContext(t *testing.T) {
	shopID := uuid.New()

	var seen Principal
	var seenShop uuid.UUID
	var hasShop bool
	h := Auth(jwtCfg, liveSessions{live: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		seenShop, hasShop = ShopIDFromContext(r.Context())
	}))

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, withBearer(signedToken(t, enums.PrincipalTypeShopkeeper, &shopID, time.Now())))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, enums.PrincipalTypeShopkeeper, seen.Type)
	assert.True(t, hasShop)
	assert.Equal(t, shopID, seenShop)
	assert.NotEmpty(t, seen.AccessID)

	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, withBearer(signedToken(t, enums.PrincipalTypeUser, nil, time.Now())))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, enums.PrincipalTypeUser, seen.Type)
	assert.NotEqual(t, uuid.Nil, seen.ID)
	assert.False(t, hasShop)
}

func TestBearerToken(t *testing.T) {
	for header, want := range map[string]string{
		"Bearer abc.def":   "abc.def",
		"bearer   abc.def": "abc.def",
		"abc.def":          "abc.def",
		"":                 "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		assert.Equal(t, want, BearerToken(req), header)
	}
}

func TestRequireAccountType(t *testing.T) {
	shopID := uuid.New()
	user := &Principal{ID: uuid.New(), Type: enums.PrincipalTypeUser}
	keeper := &Principal{ID: uuid.New(), Type: enums.PrincipalTypeShopkeeper, ShopID: &shopID}
	shopless := &Principal{ID: uuid.New(), Type: enums.PrincipalTypeShopkeeper}

	cases := []struct {
		name      string
		principal *Principal
		guard     func(http.Handler) http.Handler
		want      int
	}{
		{"anonymous", nil, RequireUser(nil), http.StatusUnauthorized},
		{"user on user route", user, RequireUser(nil), http.StatusOK},
		{"shopkeeper on user route", keeper, RequireUser(nil), http.StatusForbidden},
		{"user on shop route", user, RequireShopkeeper(nil), http.StatusForbidden},
		{"shopkeeper without shop", shopless, RequireShopkeeper(nil), http.StatusForbidden},
		{"shopkeeper on shop route", keeper, RequireShopkeeper(nil), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.principal != nil {
				req = req.WithContext(WithPrincipal(req.Context(), *tc.principal))
			}
			resp := httptest.NewRecorder()
			tc.guard(passThrough).ServeHTTP(resp, req)
			assert.Equal(t, tc.want, resp.Code)
		})
	}
}
