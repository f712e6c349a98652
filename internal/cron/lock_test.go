package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cycleKey = "aqua:lock:cron-worker"

type memLeases struct {
	data    map[string]string
	lastTTL time.Duration
	err     error
}

func newMemLeases() *memLeases { return &memLeases{data: map[string]string{}} }

func (s *memLeases) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if _, taken := s.data[key]; taken {
		return false, nil
	}
	s.data[key] = value.(string)
	s.lastTTL = ttl
	return true, nil
}

func (s *memLeases) CompareAndDelete(_ context.Context, key, expected string) (bool, error) {
	if s.data[key] != expected {
		return false, nil
	}
	delete(s.data, key)
	return true, nil
}

func TestRedisLockSingleHolder(t *testing.T) {
	ctx := context.Background()
	leases := newMemLeases()
	a, err := NewRedisLock(leases, cycleKey, 0)
	require.NoError(t, err)
	b, err := NewRedisLock(leases, cycleKey, 0)
	require.NoError(t, err)

	won, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, won)
	assert.Equal(t, defaultLockTTL, leases.lastTTL)
	assert.True(t, strings.Contains(leases.data[cycleKey], "/"), "lease value names the holder")

	won, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, won)

	require.NoError(t, b.Release(ctx))
	assert.Contains(t, leases.data, cycleKey, "a worker that never won must not free the lease")

	require.NoError(t, a.Release(ctx))
	won, _ = b.Acquire(ctx)
	assert.True(t, won)
}

func TestRedisLockLapsedHolderKeepsOffSuccessor(t *testing.T) {
	ctx := context.Background()
	leases := newMemLeases()
	stale, _ := NewRedisLock(leases, cycleKey, time.Minute)
	next, _ := NewRedisLock(leases, cycleKey, time.Minute)

	won, _ := stale.Acquire(ctx)
	require.True(t, won)
	delete(leases.data, cycleKey) // ttl elapsed
	won, _ = next.Acquire(ctx)
	require.True(t, won)

	require.NoError(t, stale.Release(ctx))
	assert.Contains(t, leases.data, cycleKey)
}

func TestRedisLockErrors(t *testing.T) {
	_, err := NewRedisLock(nil, cycleKey, time.Minute)
	assert.Error(t, err)
	_, err = NewRedisLock(newMemLeases(), "", time.Minute)
	assert.Error(t, err)

	leases := newMemLeases()
	leases.err = errors.New("connection reset")
	lock, err := NewRedisLock(leases, cycleKey, time.Minute)
	require.NoError(t, err)
	won, err := lock.Acquire(context.Background())
	assert.False(t, won)
	assert.ErrorContains(t, err, cycleKey)
	assert.NoError(t, lock.Release(context.Background()))
}
