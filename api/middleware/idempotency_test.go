package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
)

const monthlyPattern = "/api/v1/payment/monthly"

type replayStore struct {
	mu   sync.Mutex
	vals map[string]string
	sets int
}

func newReplayStore() *replayStore {
	return &replayStore{vals: map[string]string{}}
}

func (s *replayStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vals[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (s *replayStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[key] = value.(string)
	s.sets++
	return nil
}

func (s *replayStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.vals[key]; taken {
		return false, nil
	}
	s.vals[key] = value.(string)
	return true, nil
}

func (s *replayStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.vals, k)
	}
	return nil
}

func (s *replayStore) IdempotencyKey(scope, id string) string {
	return "test:idem:" + scope + ":" + id
}

// routed builds a request as chi would hand it to the middleware: the route
// pattern is resolved and the caller is a signed-in consumer.
func routed(userID uuid.UUID, method, pattern, body, key string) *http.Request {
	req := httptest.NewRequest(method, pattern, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	ctx = WithPrincipal(ctx, Principal{ID: userID, Type: enums.PrincipalTypeUser})
	return req.WithContext(ctx)
}

func errorCodeOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestRouteRules(t *testing.T) {
	rule, ok := routeRule(http.MethodPost, "/api/v1/payment/monthly")
	require.True(t, ok)
	assert.True(t, rule.required)
	assert.Equal(t, criticalIdempotencyTTL, rule.ttl)

	rule, ok = routeRule(http.MethodPost, "/api/v1/payment/initiate")
	require.True(t, ok)
	assert.True(t, rule.required)

	rule, ok = routeRule(http.MethodPost, "/api/v1/orders/subscription/order-jars")
	require.True(t, ok)
	assert.False(t, rule.required)

	_, ok = routeRule(http.MethodGet, "/api/v1/orders/history")
	assert.False(t, ok)
}

func TestIdempotencyRequiresKeyForPayments(t *testing.T) {
	ran := false
	h := Idempotency(newReplayStore(), nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { ran = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, routed(uuid.New(), http.MethodPost, monthlyPattern, `{}`, ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), errorCodeOf(t, rec))
	assert.False(t, ran)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, routed(uuid.New(), http.MethodPost, monthlyPattern, `{}`, strings.Repeat("k", maxIdempotencyKey+1)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, ran)
}

func TestIdempotencyOptionalRouteWithoutKeyPassesThrough(t *testing.T) {
	store := newReplayStore()
	calls := 0
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	user := uuid.New()
	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), routed(user, http.MethodPost, "/api/v1/orders/one-time", `{"quantity":2}`, ""))
	}
	assert.Equal(t, 2, calls)
	assert.Zero(t, store.sets)
}

func TestIdempotencyReplaysSettledPayment(t *testing.T) {
	calls := 0
	h := Idempotency(newReplayStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"payment_ref":"PAY-1"}}`))
	}))

	user := uuid.New()
	body := `{"subscription_id":"` + uuid.NewString() + `"}`

	first := httptest.NewRecorder()
	h.ServeHTTP(first, routed(user, http.MethodPost, monthlyPattern, body, "cycle-3"))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Empty(t, first.Header().Get(replayedHeader))

	again := httptest.NewRecorder()
	h.ServeHTTP(again, routed(user, http.MethodPost, monthlyPattern, body, "cycle-3"))
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, "true", again.Header().Get(replayedHeader))
	assert.Equal(t, "application/json", again.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"payment_ref":"PAY-1"}}`, again.Body.String())
	assert.Equal(t, 1, calls)
}

func TestIdempotencyRejectsReusedKeyWithNewBody(t *testing.T) {
	h := Idempotency(newReplayStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	user := uuid.New()

	h.ServeHTTP(httptest.NewRecorder(), routed(user, http.MethodPost, monthlyPattern, `{"subscription_id":"a"}`, "k1"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, routed(user, http.MethodPost, monthlyPattern, `{"subscription_id":"b"}`, "k1"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCodeOf(t, rec))
}

func TestIdempotencyReleasesKeyAfterServerError(t *testing.T) {
	store := newReplayStore()
	status := http.StatusServiceUnavailable
	calls := 0
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(status)
	}))
	user := uuid.New()

	h.ServeHTTP(httptest.NewRecorder(), routed(user, http.MethodPost, monthlyPattern, `{}`, "retry-me"))
	assert.Empty(t, store.vals, "a 5xx must not leave a record behind")

	status = http.StatusOK
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, routed(user, http.MethodPost, monthlyPattern, `{}`, "retry-me"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyInFlightDuplicateConflicts(t *testing.T) {
	store := newReplayStore()
	user := uuid.New()
	var nested *httptest.ResponseRecorder

	var h http.Handler
	h = Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if nested == nil {
			nested = httptest.NewRecorder()
			h.ServeHTTP(nested, routed(user, http.MethodPost, monthlyPattern, `{}`, "dup"))
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, routed(user, http.MethodPost, monthlyPattern, `{}`, "dup"))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, nested)
	assert.Equal(t, http.StatusConflict, nested.Code)
	assert.Equal(t, string(pkgerrors.CodeConflict), errorCodeOf(t, nested))
}

func TestIdempotencyKeysAreScopedPerPrincipal(t *testing.T) {
	calls := 0
	h := Idempotency(newReplayStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), routed(uuid.New(), http.MethodPost, monthlyPattern, `{}`, "same"))
	h.ServeHTTP(httptest.NewRecorder(), routed(uuid.New(), http.MethodPost, monthlyPattern, `{}`, "same"))
	assert.Equal(t, 2, calls)
}
