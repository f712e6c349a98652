// Package complaints lets customers raise issues against a shop and lets the
// shopkeeper work through them.
package complaints

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
	"github.com/angelmondragon/aquaflow-backend/pkg/pagination"
)

const (
	maxSubjectRunes     = 200
	maxDescriptionRunes = 2000
)

type complaintStore interface {
	Create(ctx context.Context, complaint *models.Complaint) error
	FindForShop(ctx context.Context, id, shopID uuid.UUID) (*models.Complaint, error)
	ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Complaint, *pagination.Cursor, error)
	ListByShop(ctx context.Context, shopID uuid.UUID, status *enums.ComplaintStatus, cursor *pagination.Cursor, limit int) ([]ShopComplaintRow, *pagination.Cursor, error)
	UpdateStatus(ctx context.Context, id, shopID uuid.UUID, status enums.ComplaintStatus, resolvedAt *time.Time) (bool, error)
}

// orderLookup resolves which shop a complaint is about.
type orderLookup interface {
	FindForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	LatestShopForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

type shopLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
}

type Service interface {
	Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*ComplaintView, error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error)
	ListForShop(ctx context.Context, shopID uuid.UUID, params ShopListParams) (*ShopListResult, error)
	UpdateStatus(ctx context.Context, shopID, complaintID uuid.UUID, status enums.ComplaintStatus) (*ComplaintView, error)
}

type ServiceParams struct {
	Repository complaintStore
	Orders     orderLookup
	Shops      shopLookup
	Logger     *logger.Logger
	Clock      func() time.Time
}

type service struct {
	repo   complaintStore
	orders orderLookup
	shops  shopLookup
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("complaints repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order lookup required")
	}
	if params.Shops == nil {
		return nil, fmt.Errorf("shop lookup required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:   params.Repository,
		orders: params.Orders,
		shops:  params.Shops,
		logg:   params.Logger,
		now:    func() time.Time { return clock().UTC() },
	}, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// Submit files a complaint. The shop is the one given, else the order's shop,
// else the shop of the customer's latest order.
func (s *service) Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*ComplaintView, error) {
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" || description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject and description are required")
	}
	if len([]rune(subject)) > maxSubjectRunes || len([]rune(description)) > maxDescriptionRunes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject or description too long")
	}
	priority, err := enums.ParseComplaintPriority(strings.TrimSpace(input.Priority))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority")
	}

	shopID, err := s.resolveShop(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	complaint := &models.Complaint{
		UserID:      userID,
		OrderID:     input.OrderID,
		ShopID:      shopID,
		Subject:     subject,
		Description: description,
		Priority:    priority,
		Status:      enums.ComplaintStatusOpen,
	}
	if err := s.repo.Create(ctx, complaint); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create complaint")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"complaint_id": complaint.ID.String(),
		"shop_id":      shopID.String(),
	}), "complaint submitted")

	view := NewComplaintView(*complaint)
	return &view, nil
}

func (s *service) resolveShop(ctx context.Context, userID uuid.UUID, input SubmitInput) (uuid.UUID, error) {
	if input.ShopID != nil && *input.ShopID != uuid.Nil {
		if _, err := s.shops.FindByID(ctx, *input.ShopID); err != nil {
			if isNotFound(err) {
				return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
			}
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
		}
		return *input.ShopID, nil
	}
	if input.OrderID != nil && *input.OrderID != uuid.Nil {
		order, err := s.orders.FindForUser(ctx, *input.OrderID, userID)
		if err != nil {
			if isNotFound(err) {
				return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		return order.ShopID, nil
	}
	shopID, err := s.orders.LatestShopForUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "could not determine shop for this complaint")
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup latest order")
	}
	return shopID, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByUser(ctx, userID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list complaints")
	}
	views := make([]ComplaintView, 0, len(rows))
	for _, row := range rows {
		views = append(views, NewComplaintView(row))
	}
	return &ListResult{Complaints: views, NextCursor: pagination.EncodeNext(next)}, nil
}

func (s *service) ListForShop(ctx context.Context, shopID uuid.UUID, params ShopListParams) (*ShopListResult, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid complaint status")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByShop(ctx, shopID, params.Status, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shop complaints")
	}
	views := make([]ShopComplaintView, 0, len(rows))
	for _, row := range rows {
		views = append(views, newShopComplaintView(row))
	}
	return &ShopListResult{Complaints: views, NextCursor: pagination.EncodeNext(next)}, nil
}

func (s *service) UpdateStatus(ctx context.Context, shopID, complaintID uuid.UUID, status enums.ComplaintStatus) (*ComplaintView, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid complaint status")
	}
	var resolvedAt *time.Time
	if status == enums.ComplaintStatusResolved {
		now := s.now()
		resolvedAt = &now
	}
	applied, err := s.repo.UpdateStatus(ctx, complaintID, shopID, status, resolvedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update complaint")
	}
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "complaint not found")
	}
	complaint, err := s.repo.FindForShop(ctx, complaintID, shopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload complaint")
	}
	view := NewComplaintView(*complaint)
	return &view, nil
}
