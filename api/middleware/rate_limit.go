package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/aquaflow-backend/api/responses"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
)

const (
	defaultRateLimit       = 120
	defaultRateLimitWindow = time.Minute
	maxAuthBody            = 64 << 10
)

type fixedWindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit caps traffic per principal with a fixed window. Anonymous callers
// are keyed by client IP. Limiter outages fail open.
func RateLimit(limiter fixedWindowLimiter, limit int64, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = defaultRateLimit
	}
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			scope := "ip:" + clientIP(r)
			if p, ok := PrincipalFromContext(ctx); ok {
				scope = string(p.Type) + ":" + p.ID.String()
			}

			allowed, count, err := limiter.FixedWindowAllow(ctx, scope, limit, window)
			if err != nil {
				if logg != nil {
					logg.Error(ctx, "rate_limit.unavailable", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max(limit-count, 0), 10))
			if !allowed {
				rejectRateLimited(ctx, logg, w, window, map[string]any{"scope": scope, "attempts": count})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthRateLimitPolicy throttles an unauthenticated auth surface per client IP
// and per identity. The identity is the first non-empty body field among
// identityFields (email for shopkeepers, phone_number for OTP).
type AuthRateLimitPolicy struct {
	name           string
	window         time.Duration
	ipLimit        int64
	identityLimit  int64
	identityFields []string
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, identityLimit int, identityFields ...string) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	if len(identityFields) == 0 {
		identityFields = []string{"email"}
	}
	return AuthRateLimitPolicy{
		name:           name,
		window:         window,
		ipLimit:        int64(ipLimit),
		identityLimit:  int64(identityLimit),
		identityFields: identityFields,
	}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.identityLimit > 0)
}

// AuthRateLimit fails closed: a limiter error rejects the attempt, since these
// routes guard credentials and OTP delivery.
func AuthRateLimit(policy AuthRateLimitPolicy, limiter fixedWindowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			check := func(kind, subject string, limit int64) bool {
				if limit <= 0 || subject == "" {
					return true
				}
				scope := "auth:" + policy.name + ":" + kind + ":" + subject
				allowed, count, err := limiter.FixedWindowAllow(ctx, scope, limit, policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return false
				}
				if !allowed {
					rejectRateLimited(ctx, logg, w, policy.window, map[string]any{
						"policy":   policy.name,
						"scope":    kind,
						"subject":  subject,
						"attempts": count,
						"limit":    limit,
					})
				}
				return allowed
			}

			if !check("ip", clientIP(r), policy.ipLimit) {
				return
			}

			if policy.identityLimit > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxAuthBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if !check("id", identityHash(body, policy.identityFields), policy.identityLimit) {
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, window time.Duration, fields map[string]any) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, fields), "rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(window.Round(time.Second).Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}

// identityHash returns a stable digest of the first usable identity field so
// raw emails and phone numbers never reach Redis keys or logs.
func identityHash(payload []byte, fields []string) string {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	for _, field := range fields {
		raw, _ := body[field].(string)
		if value := normalizeIdentity(field, raw); value != "" {
			sum := sha256.Sum256([]byte(value))
			return hex.EncodeToString(sum[:16])
		}
	}
	return ""
}

// normalizeIdentity folds case for emails and reduces phone numbers to their
// last ten digits so "+91 98765 43210" and "9876543210" share a counter.
func normalizeIdentity(field, value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if !strings.Contains(field, "phone") {
		return value
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, value)
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
