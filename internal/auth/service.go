package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/internal/users"
	pkgAuth "github.com/angelmondragon/aquaflow-backend/pkg/auth"
	"github.com/angelmondragon/aquaflow-backend/pkg/auth/session"
	"github.com/angelmondragon/aquaflow-backend/pkg/config"
	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
	"github.com/angelmondragon/aquaflow-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid email or password"

// Service defines the behavior needed by the auth controllers.
type Service interface {
	SendOTP(ctx context.Context, req SendOTPRequest) (*SendOTPResponse, error)
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*LoginResponse, error)
	ShopkeeperLogin(ctx context.Context, req ShopkeeperLoginRequest) (*ShopkeeperAuthResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessID string) error
}

type userRepository interface {
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	FindOrCreateByPhone(ctx context.Context, phone, pincode string) (*models.User, bool, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, dto users.UpdateProfileDTO) error
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	RecordOTPFailure(ctx context.Context, id uuid.UUID, threshold int, blockUntil time.Time) (int, error)
}

type shopkeeperRepository interface {
	FindShopkeeperByEmail(ctx context.Context, email string) (*models.Shopkeeper, error)
	FindByShopkeeperID(ctx context.Context, shopkeeperID uuid.UUID) (*models.Shop, error)
	RecordShopkeeperLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateShopkeeperPassword(ctx context.Context, id uuid.UUID, hash string) error
}

type otpProvider interface {
	Send(ctx context.Context, phone string) error
	Verify(ctx context.Context, phone, code string) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string, principal session.Principal) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (*session.Rotation, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users          userRepository
	Shopkeepers    shopkeeperRepository
	OTP            otpProvider
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	OTPConfig      config.OTPConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
	Clock          func() time.Time
}

type service struct {
	users       userRepository
	shopkeepers shopkeeperRepository
	otp         otpProvider
	tokens      tokenIssuer
	otpCfg      config.OTPConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs the login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Shopkeepers == nil {
		return nil, fmt.Errorf("shopkeeper repository is required")
	}
	if params.OTP == nil {
		return nil, fmt.Errorf("otp provider is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		users:       params.Users,
		shopkeepers: params.Shopkeepers,
		otp:         params.OTP,
		tokens:      tokenIssuer{sessions: params.SessionManager, jwtCfg: params.JWTConfig},
		otpCfg:      params.OTPConfig,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
		now:         now,
	}, nil
}

func (s *service) SendOTP(ctx context.Context, req SendOTPRequest) (*SendOTPResponse, error) {
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone_number is required")
	}
	pincode := strings.TrimSpace(req.Pincode)

	user, created, err := s.users.FindOrCreateByPhone(ctx, phone, pincode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if !created && pincode != "" && pincode != user.Pincode {
		if err := s.users.UpdateProfile(ctx, user.ID, users.UpdateProfileDTO{Pincode: &pincode}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update pincode")
		}
		user.Pincode = pincode
	}

	if user.BlockedAt(s.now()) {
		return nil, otpBlocked(user.OTPBlockedUntil)
	}
	if err := s.otp.Send(ctx, phone); err != nil {
		if errors.Is(err, ErrOTPCooldown) {
			return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "otp already sent, please wait before requesting again").
				WithReason(pkgerrors.ReasonOTPCooldown)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send otp")
	}

	return &SendOTPResponse{
		UserID:      user.ID,
		PhoneNumber: user.PhoneNumber,
		Pincode:     user.Pincode,
		ExpiresIn:   int(s.otpCfg.TTL.Seconds()),
	}, nil
}

func (s *service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*LoginResponse, error) {
	phone := strings.TrimSpace(req.PhoneNumber)
	user, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found, request an otp first")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	now := s.now()
	if user.BlockedAt(now) {
		return nil, otpBlocked(user.OTPBlockedUntil)
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}

	if err := s.otp.Verify(ctx, phone, req.OTP); err != nil {
		if !errors.Is(err, ErrOTPInvalid) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify otp")
		}
		return nil, s.recordFailure(ctx, user, now)
	}

	if err := s.users.RecordLogin(ctx, user.ID, now.UTC()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record login")
	}
	loginAt := now.UTC()
	user.LastLoginAt = &loginAt
	user.OTPFailedAttempts = 0
	user.OTPBlockedUntil = nil

	pair, err := s.tokens.issue(ctx, now, session.Principal{ID: user.ID, Type: enums.PrincipalTypeUser})
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         users.FromModel(user),
	}, nil
}

func (s *service) recordFailure(ctx context.Context, user *models.User, now time.Time) error {
	blockUntil := now.Add(s.otpCfg.BlockDuration).UTC()
	attempts, err := s.users.RecordOTPFailure(ctx, user.ID, s.otpCfg.BlockThreshold, blockUntil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record otp failure")
	}
	if s.otpCfg.BlockThreshold > 0 && attempts >= s.otpCfg.BlockThreshold {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithPrincipal(ctx, enums.PrincipalTypeUser.String(), user.ID.String()), "otp login blocked after repeated failures")
		}
		return otpBlocked(&blockUntil)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid otp")
}

func (s *service) ShopkeeperLogin(ctx context.Context, req ShopkeeperLoginRequest) (*ShopkeeperAuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	keeper, err := s.shopkeepers.FindShopkeeperByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup shopkeeper")
	}

	valid, err := security.VerifyPassword(req.Password, keeper.PasswordHash)
	if err != nil && !errors.Is(err, security.ErrInvalidHash) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if !keeper.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}
	s.upgradePasswordHash(ctx, keeper, req.Password)

	shop, err := s.shopkeepers.FindByShopkeeperID(ctx, keeper.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop details not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup shop")
	}

	now := s.now()
	if err := s.shopkeepers.RecordShopkeeperLogin(ctx, keeper.ID, now.UTC()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record login")
	}
	loginAt := now.UTC()
	keeper.LastLoginAt = &loginAt
	keeper.IsVerified = true

	pair, err := s.tokens.issue(ctx, now, shopkeeperPrincipal(keeper, shop))
	if err != nil {
		return nil, err
	}
	return &ShopkeeperAuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Shopkeeper:   shopkeeperDTO(keeper),
		Shop:         shopSummary(shop),
	}, nil
}

// upgradePasswordHash re-hashes with the current argon2 parameters. Failures
// are logged; the login itself already succeeded.
func (s *service) upgradePasswordHash(ctx context.Context, keeper *models.Shopkeeper, password string) {
	if !security.NeedsRehash(keeper.PasswordHash, s.passwordCfg) {
		return
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err == nil {
		err = s.shopkeepers.UpdateShopkeeperPassword(ctx, keeper.ID, hash)
	}
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "shopkeeper_id", keeper.ID.String()), "password rehash skipped")
		}
		return
	}
	keeper.PasswordHash = hash
}

// Refresh exchanges a refresh token for a new pair. The access token may be
// expired; it only identifies the session being rotated.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.tokens.jwtCfg, accessToken)
	if err != nil || strings.TrimSpace(claims.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}
	rotation, err := s.tokens.sessions.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}
	if rotation.Principal.ID != claims.PrincipalID || rotation.Principal.Type != claims.PrincipalType {
		_ = s.tokens.sessions.Revoke(ctx, rotation.AccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}

	access, err := s.tokens.mint(s.now(), rotation.AccessID, rotation.Principal)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: rotation.RefreshToken}, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	if err := s.tokens.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// tokenIssuer mints an access token and its refresh session together.
type tokenIssuer struct {
	sessions sessionManager
	jwtCfg   config.JWTConfig
}

func (t tokenIssuer) issue(ctx context.Context, now time.Time, principal session.Principal) (*TokenPair, error) {
	accessID := session.NewAccessID()
	access, err := t.mint(now, accessID, principal)
	if err != nil {
		return nil, err
	}
	refresh, err := t.sessions.Generate(ctx, accessID, principal)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (t tokenIssuer) mint(now time.Time, accessID string, principal session.Principal) (string, error) {
	token, err := pkgAuth.MintAccessToken(t.jwtCfg, now, pkgAuth.AccessTokenPayload{
		PrincipalID:   principal.ID,
		PrincipalType: principal.Type,
		ShopID:        principal.ShopID,
		JTI:           accessID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}

func shopkeeperPrincipal(keeper *models.Shopkeeper, shop *models.Shop) session.Principal {
	shopID := shop.ID
	return session.Principal{ID: keeper.ID, Type: enums.PrincipalTypeShopkeeper, ShopID: &shopID}
}

func otpBlocked(until *time.Time) *pkgerrors.Error {
	details := map[string]any{"reason": pkgerrors.ReasonOTPBlocked}
	if until != nil {
		details["blocked_until"] = until.UTC()
	}
	return pkgerrors.New(pkgerrors.CodeRateLimit, "too many failed attempts, please try again later").WithDetails(details)
}
