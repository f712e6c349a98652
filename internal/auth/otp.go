package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/aquaflow-backend/pkg/config"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
)

var (
	// ErrOTPCooldown is returned when a code is requested again too soon.
	ErrOTPCooldown = errors.New("otp requested too recently")
	// ErrOTPInvalid covers a wrong, expired, exhausted or never-issued code.
	ErrOTPInvalid = errors.New("invalid otp")
)

// OTPStore is the TTL key/value surface the OTP service needs. The Redis
// client satisfies it.
type OTPStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	OTPKey(phone string) string
}

type otpRecord struct {
	Code      string    `json:"code"`
	SentAt    time.Time `json:"sent_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// OTPService issues and checks one-time passwords. Delivery is mocked: the
// code is fixed by configuration and written to the log.
type OTPService struct {
	store OTPStore
	cfg   config.OTPConfig
	logg  *logger.Logger
	now   func() time.Time
}

func NewOTPService(store OTPStore, cfg config.OTPConfig, logg *logger.Logger) (*OTPService, error) {
	if store == nil {
		return nil, fmt.Errorf("otp store is required")
	}
	if strings.TrimSpace(cfg.Code) == "" {
		return nil, fmt.Errorf("otp code is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("otp ttl must be positive")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &OTPService{store: store, cfg: cfg, logg: logg, now: time.Now}, nil
}

// Send stores a fresh code for phone unless one was sent within the resend
// cooldown.
func (o *OTPService) Send(ctx context.Context, phone string) error {
	now := o.now().UTC()
	key := o.store.OTPKey(phone)

	existing, err := o.load(ctx, key)
	if err != nil {
		return err
	}
	if existing != nil && now.Before(existing.ExpiresAt) && now.Sub(existing.SentAt) < o.cfg.ResendCooldown {
		return ErrOTPCooldown
	}

	rec := otpRecord{
		Code:      o.cfg.Code,
		SentAt:    now,
		ExpiresAt: now.Add(o.cfg.TTL),
	}
	if err := o.save(ctx, key, rec, o.cfg.TTL); err != nil {
		return err
	}
	if o.logg != nil {
		o.logg.Info(o.logg.WithField(ctx, "phone_number", maskPhone(phone)), "otp sent")
	}
	return nil
}

// Verify consumes the pending code for phone. A wrong code burns one attempt
// and the code is discarded once attempts run out.
func (o *OTPService) Verify(ctx context.Context, phone, code string) error {
	now := o.now().UTC()
	key := o.store.OTPKey(phone)

	rec, err := o.load(ctx, key)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrOTPInvalid
	}
	if !now.Before(rec.ExpiresAt) || rec.Attempts >= o.cfg.MaxAttempts {
		_ = o.store.Del(ctx, key)
		return ErrOTPInvalid
	}

	if rec.Code == strings.TrimSpace(code) {
		return o.store.Del(ctx, key)
	}

	rec.Attempts++
	if rec.Attempts >= o.cfg.MaxAttempts {
		if err := o.store.Del(ctx, key); err != nil {
			return err
		}
		return ErrOTPInvalid
	}
	if err := o.save(ctx, key, *rec, rec.ExpiresAt.Sub(now)); err != nil {
		return err
	}
	return ErrOTPInvalid
}

func (o *OTPService) load(ctx context.Context, key string) (*otpRecord, error) {
	raw, err := o.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load otp: %w", err)
	}
	var rec otpRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, nil
	}
	return &rec, nil
}

func (o *OTPService) save(ctx context.Context, key string, rec otpRecord, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode otp: %w", err)
	}
	if err := o.store.Set(ctx, key, string(payload), ttl); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
