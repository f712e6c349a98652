package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/aquaflow-backend/pkg/instance"
)

const defaultLockTTL = 10 * time.Minute

// Lock keeps two cron workers from running the same cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type leaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}

// RedisLock is a single-key lease whose value names the holding worker.
type RedisLock struct {
	store  leaseStore
	key    string
	ttl    time.Duration
	holder func() string

	mu   sync.Mutex
	held string
}

func NewRedisLock(store leaseStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("redis client required for lock")
	case key == "":
		return nil, errors.New("lock key is required")
	case ttl <= 0:
		ttl = defaultLockTTL
	}
	return &RedisLock{
		store: store,
		key:   key,
		ttl:   ttl,
		holder: func() string {
			return instance.GetID() + "/" + uuid.NewString()
		},
	}, nil
}

// Acquire takes the lease when nobody holds it. Each acquisition writes a
// fresh holder value, so a worker whose lease lapsed cannot free the next
// holder's lock.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	value := l.holder()
	won, err := l.store.SetNX(ctx, l.key, value, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if won {
		l.mu.Lock()
		l.held = value
		l.mu.Unlock()
	}
	return won, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	value := l.held
	l.held = ""
	l.mu.Unlock()

	if value == "" {
		return nil
	}
	if _, err := l.store.CompareAndDelete(ctx, l.key, value); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
