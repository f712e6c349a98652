package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/aquaflow-backend/pkg/config"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) CompareAndDelete(_ context.Context, key, expected string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[key] != expected {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func (m *memStore) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func TestManagerGenerateAndRotate(t *testing.T) {
	store := newMemStore()
	manager := newManager(store, time.Hour)
	ctx := context.Background()
	shopID := uuid.New()
	principal := Principal{ID: uuid.New(), Type: enums.PrincipalTypeShopkeeper, ShopID: &shopID}

	token, err := manager.Generate(ctx, "access-123", principal)
	require.NoError(t, err)
	stored := store.data["sess:access-123"]
	assert.NotContains(t, stored, token, "raw refresh token must not be persisted")
	assert.Equal(t, time.Hour, store.ttls["sess:access-123"])

	_, err = manager.Rotate(ctx, "access-123", "wrong")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	rotation, err := manager.Rotate(ctx, "access-123", token)
	require.NoError(t, err)
	assert.NotEqual(t, token, rotation.RefreshToken)
	assert.NotEqual(t, "access-123", rotation.AccessID)
	assert.Equal(t, principal.ID, rotation.Principal.ID)
	require.NotNil(t, rotation.Principal.ShopID)
	assert.Equal(t, shopID, *rotation.Principal.ShopID)

	_, exists := store.data["sess:access-123"]
	assert.False(t, exists, "old session must be consumed")

	_, err = manager.Rotate(ctx, "access-123", token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "a refresh token is single use")
}

func TestManagerRotateIsSingleUseUnderConcurrency(t *testing.T) {
	store := newMemStore()
	manager := newManager(store, time.Hour)
	ctx := context.Background()

	token, err := manager.Generate(ctx, "access-1", Principal{ID: uuid.New(), Type: enums.PrincipalTypeUser})
	require.NoError(t, err)

	const racers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.Rotate(ctx, "access-1", token); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, store.len(), "exactly one successor session")
}

func TestManagerRevokeEndsSession(t *testing.T) {
	manager := newManager(newMemStore(), time.Hour)
	ctx := context.Background()

	_, err := manager.Generate(ctx, "access-1", Principal{ID: uuid.New(), Type: enums.PrincipalTypeUser})
	require.NoError(t, err)

	ok, err := manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, manager.Revoke(ctx, "access-1"))
	ok, err = manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManagerRejectsBadInput(t *testing.T) {
	manager := newManager(newMemStore(), time.Hour)
	ctx := context.Background()

	_, err := manager.Generate(ctx, "access-1", Principal{})
	assert.Error(t, err)
	_, err = manager.Generate(ctx, " ", Principal{ID: uuid.New(), Type: enums.PrincipalTypeUser})
	assert.Error(t, err)
	_, err = manager.Rotate(ctx, "", "token")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = manager.HasSession(ctx, "")
	assert.Error(t, err)
}

func TestNewManagerValidatesTTLs(t *testing.T) {
	_, err := NewManager(nil, config.JWTConfig{})
	assert.Error(t, err)
}
