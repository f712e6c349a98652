package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/internal/shops"
	"github.com/angelmondragon/aquaflow-backend/pkg/config"
	"github.com/angelmondragon/aquaflow-backend/pkg/db"
	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/formats"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
	"github.com/angelmondragon/aquaflow-backend/pkg/security"
)

var maxRegisterPrice = decimal.NewFromInt(200)

// RegisterService handles the shopkeeper onboarding transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterShopkeeperRequest) (*ShopkeeperAuthResponse, error)
}

type registerShopRepository interface {
	ShopkeeperTaken(ctx context.Context, email, phone string) (bool, error)
	ShopTaken(ctx context.Context, gstNumber, phone string) (bool, error)
	CreateShopkeeper(ctx context.Context, keeper *models.Shopkeeper) error
	UniqueSlug(ctx context.Context, name string) (string, error)
	Create(ctx context.Context, shop *models.Shop) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	TxRunner        txRunner
	ShopRepoFactory func(tx *gorm.DB) registerShopRepository
	SessionManager  sessionManager
	JWTConfig       config.JWTConfig
	PasswordConfig  config.PasswordConfig
	Logger          *logger.Logger
	Clock           func() time.Time
}

type registerService struct {
	tx          txRunner
	shopRepo    func(tx *gorm.DB) registerShopRepository
	tokens      tokenIssuer
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	factory := params.ShopRepoFactory
	if factory == nil {
		factory = func(tx *gorm.DB) registerShopRepository { return shops.NewRepository(tx) }
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &registerService{
		tx:          params.TxRunner,
		shopRepo:    factory,
		tokens:      tokenIssuer{sessions: params.SessionManager, jwtCfg: params.JWTConfig},
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
		now:         now,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterShopkeeperRequest) (*ShopkeeperAuthResponse, error) {
	req, err := normalizeRegister(req)
	if err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var (
		keeper *models.Shopkeeper
		shop   *models.Shop
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.shopRepo(tx)

		taken, err := repo.ShopkeeperTaken(ctx, req.Email, req.PhoneNumber)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check shopkeeper")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "shopkeeper already exists with this email or phone number")
		}
		taken, err = repo.ShopTaken(ctx, req.GSTNumber, req.PhoneNumber)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check shop")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "shop already exists with this gst number or phone number")
		}

		keeper = &models.Shopkeeper{
			Email:        req.Email,
			PasswordHash: passwordHash,
			OwnerName:    req.OwnerName,
			PhoneNumber:  req.PhoneNumber,
			IsVerified:   true,
			IsActive:     true,
		}
		if err := repo.CreateShopkeeper(ctx, keeper); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "shopkeeper already exists with this email or phone number")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create shopkeeper")
		}

		slug, err := repo.UniqueSlug(ctx, req.ShopName)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "allocate shop slug")
		}
		email := req.Email
		shop = &models.Shop{
			ShopkeeperID: keeper.ID,
			Slug:         slug,
			ShopName:     req.ShopName,
			OwnerName:    req.OwnerName,
			PhoneNumber:  req.PhoneNumber,
			Email:        &email,
			Address:      req.Address,
			City:         req.City,
			State:        req.State,
			Pincode:      req.Pincode,
			Latitude:     *req.Latitude,
			Longitude:    *req.Longitude,
			GSTNumber:    req.GSTNumber,
			PricePerJar:  req.PricePerJar,
			Rating:       decimal.Zero,
			IsActive:     true,
			IsVerified:   true,
		}
		if err := repo.Create(ctx, shop); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "shop already exists with this gst number or phone number")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create shop")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithShopID(ctx, shop.ID.String())
		s.logg.Info(s.logg.WithField(logCtx, "slug", shop.Slug), "shopkeeper registered")
	}

	now := s.now()
	loginAt := now.UTC()
	keeper.LastLoginAt = &loginAt
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

func normalizeRegister(req RegisterShopkeeperRequest) (RegisterShopkeeperRequest, error) {
	req.OwnerName = strings.TrimSpace(req.OwnerName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.ShopName = strings.TrimSpace(req.ShopName)
	req.Address = strings.TrimSpace(req.Address)
	req.City = strings.TrimSpace(req.City)
	req.State = strings.TrimSpace(req.State)
	req.Pincode = strings.TrimSpace(req.Pincode)
	req.GSTNumber = strings.ToUpper(strings.TrimSpace(req.GSTNumber))

	details := map[string]string{}
	for field, value := range map[string]string{
		"owner_name": req.OwnerName,
		"email":      req.Email,
		"shop_name":  req.ShopName,
		"address":    req.Address,
		"city":       req.City,
		"state":      req.State,
	} {
		if value == "" {
			details[field] = "is required"
		}
	}
	if len(req.Password) < security.MinPasswordLength {
		details["password"] = fmt.Sprintf("must be at least %d characters", security.MinPasswordLength)
	}
	if !formats.Phone(req.PhoneNumber) {
		details["phone_number"] = "must be a valid phone number"
	}
	if !formats.Pincode(req.Pincode) {
		details["pincode"] = "must be a 6-digit pincode"
	}
	if !formats.GSTIN(req.GSTNumber) {
		details["gst_number"] = "must be a valid GSTIN"
	}
	if req.PricePerJar.LessThan(decimal.NewFromInt(1)) || req.PricePerJar.GreaterThan(maxRegisterPrice) {
		details["price_per_jar"] = "must be between 1 and 200"
	}
	if req.Latitude == nil || *req.Latitude < -90 || *req.Latitude > 90 {
		details["latitude"] = "must be between -90 and 90"
	}
	if req.Longitude == nil || *req.Longitude < -180 || *req.Longitude > 180 {
		details["longitude"] = "must be between -180 and 180"
	}
	if len(details) > 0 {
		return req, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return req, nil
}
