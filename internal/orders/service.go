package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/internal/notifications"
	"github.com/angelmondragon/aquaflow-backend/internal/payments"
	"github.com/angelmondragon/aquaflow-backend/internal/users"
	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/formats"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
	"github.com/angelmondragon/aquaflow-backend/pkg/pagination"
	"github.com/angelmondragon/aquaflow-backend/pkg/refs"
	"github.com/angelmondragon/aquaflow-backend/pkg/types"
)

const (
	deliveryETA    = 30 * time.Minute
	maxOrderJars   = 50
	maxReviewRunes = 500
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type shopRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	RecordDeliveredWithTx(ctx context.Context, tx *gorm.DB, shopID uuid.UUID, amount decimal.Decimal) error
	ApplyRatingWithTx(ctx context.Context, tx *gorm.DB, shopID uuid.UUID, rating int) error
}

type charger interface {
	Charge(ctx context.Context, input payments.ChargeInput) (*payments.ChargeResult, error)
}

// addressBook remembers checkout addresses for the customer.
type addressBook interface {
	Remember(ctx context.Context, userID uuid.UUID, delivery types.DeliveryAddress) (bool, error)
}

type profileWriter interface {
	UpdateProfile(ctx context.Context, id uuid.UUID, dto users.UpdateProfileDTO) error
}

// Service defines one-time ordering, fulfilment and tracking.
type Service interface {
	PlaceOneTime(ctx context.Context, userID uuid.UUID, input PlaceInput) (*PlaceResult, error)
	CreateWithTx(ctx context.Context, tx *gorm.DB, order *models.Order) error
	RetryPayment(ctx context.Context, userID, orderID uuid.UUID, method *enums.PaymentMethod) (*PlaceResult, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderView, error)
	History(ctx context.Context, userID uuid.UUID, params HistoryParams) (*HistoryResult, error)
	ListForShop(ctx context.Context, shopID uuid.UUID, params ShopListParams) (*ShopOrderList, error)
	Stats(ctx context.Context, shopID uuid.UUID) (*Stats, error)
	UpdateStatus(ctx context.Context, shopID, orderID uuid.UUID, input StatusInput) (*OrderView, error)
	AssignDelivery(ctx context.Context, shopID, orderID uuid.UUID, input AssignInput) (*OrderView, error)
	UpdateLocation(ctx context.Context, shopID, orderID uuid.UUID, location types.Coordinates) (*OrderView, error)
	Track(ctx context.Context, userID, orderID uuid.UUID) (*Tracking, error)
	Rate(ctx context.Context, userID, orderID uuid.UUID, input RateInput) (*OrderView, error)
}

// ServiceParams groups dependencies for the orders service.
type ServiceParams struct {
	Repository        Repository
	Shops             shopRepository
	Payments          charger
	Addresses         addressBook
	Profiles          profileWriter
	Notifier          notifications.Notifier
	TransactionRunner txRunner
	Refs              *refs.Generator
	Logger            *logger.Logger
	// Location decides where "today" starts for shop stats.
	Location *time.Location
	Clock    func() time.Time
}

type service struct {
	repo      Repository
	shops     shopRepository
	payments  charger
	addresses addressBook
	profiles  profileWriter
	notifier  notifications.Notifier
	txRunner  txRunner
	refs      *refs.Generator
	logg      *logger.Logger
	loc       *time.Location
	now       func() time.Time
}

// NewService builds an orders service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Shops == nil {
		return nil, fmt.Errorf("shop repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.Noop{}
	}
	generator := params.Refs
	if generator == nil {
		generator = refs.New()
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:      params.Repository,
		shops:     params.Shops,
		payments:  params.Payments,
		addresses: params.Addresses,
		profiles:  params.Profiles,
		notifier:  notifier,
		txRunner:  params.TransactionRunner,
		refs:      generator,
		logg:      params.Logger,
		loc:       loc,
		now:       func() time.Time { return clock().UTC() },
	}, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func orderNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func invalidTransition(message string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, message).
		WithReason(pkgerrors.ReasonInvalidTransition)
}

func (s *service) withOrder(ctx context.Context, order *models.Order) context.Context {
	return s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
	})
}

func validatePlace(input *PlaceInput) error {
	if input.ShopID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "shop_id is required")
	}
	if input.Quantity < 1 || input.Quantity > maxOrderJars {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be between 1 and %d", maxOrderJars))
	}
	if !input.PaymentMethod.AllowedForOneTime() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	input.DeliveryAddress.Address = strings.TrimSpace(input.DeliveryAddress.Address)
	if input.DeliveryAddress.Address == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}
	if c := input.DeliveryAddress.Coordinates; c != nil && !c.Valid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery coordinates")
	}
	return nil
}

// PlaceOneTime creates a one-time order and, for online methods, charges it
// synchronously. A declined charge keeps the order with payment_status failed.
func (s *service) PlaceOneTime(ctx context.Context, userID uuid.UUID, input PlaceInput) (*PlaceResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if err := validatePlace(&input); err != nil {
		return nil, err
	}

	shop, err := s.shops.FindByID(ctx, input.ShopID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}
	if !shop.Available() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found or not available").
			WithReason(pkgerrors.ReasonShopUnavailable)
	}

	eta := s.now().Add(deliveryETA)
	order := &models.Order{
		OrderNumber:           s.refs.OrderNumber(),
		UserID:                userID,
		ShopID:                shop.ID,
		OrderType:             enums.OrderTypeOneTime,
		Quantity:              input.Quantity,
		PricePerJar:           shop.PricePerJar,
		TotalAmount:           shop.PricePerJar.Mul(decimal.NewFromInt(int64(input.Quantity))),
		DeliveryAddress:       input.DeliveryAddress,
		Status:                enums.OrderStatusPending,
		PaymentStatus:         enums.OrderPaymentStatusPending,
		PaymentMethod:         input.PaymentMethod,
		EstimatedDeliveryTime: &eta,
	}
	if notes := strings.TrimSpace(input.Notes); notes != "" {
		order.Notes = &notes
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	ctx = s.withOrder(ctx, order)
	s.logg.Info(ctx, "order placed")

	result := &PlaceResult{}
	if order.PaymentMethod.RequiresGateway() {
		result.Payment, result.Warnings = s.chargeOrder(ctx, order)
	}

	s.notifier.Notify(ctx, notifications.Message{
		Type:      enums.NotificationTypeOrderPlaced,
		UserID:    userID,
		ShopID:    shop.ID,
		Amount:    order.TotalAmount,
		Reference: order.OrderNumber,
	})
	if order.PaymentStatus == enums.OrderPaymentStatusPaid {
		s.notifier.Notify(ctx, notifications.Message{
			Type:      enums.NotificationTypePaymentSuccess,
			UserID:    userID,
			ShopID:    shop.ID,
			Amount:    order.TotalAmount,
			Reference: order.OrderNumber,
		})
	}

	s.rememberCustomer(ctx, userID, input)
	result.Order = NewOrderView(*order)
	return result, nil
}

// chargeOrder charges order with its own method and records the outcome on
// the order. It never fails the caller; problems become warnings.
func (s *service) chargeOrder(ctx context.Context, order *models.Order) (*PaymentSummary, []string) {
	charge, err := s.payments.Charge(ctx, payments.ChargeInput{
		UserID:  order.UserID,
		ShopID:  order.ShopID,
		OrderID: &order.ID,
		Amount:  order.TotalAmount,
		Method:  order.PaymentMethod,
		Purpose: enums.PaymentPurposeOrder,
	})
	if err != nil {
		s.logg.Error(ctx, "order payment could not be recorded", err)
		return nil, []string{"order placed but payment initiation failed"}
	}

	paid := charge.Succeeded()
	if err := s.repo.RecordPayment(ctx, order.ID, charge.Payment.PaymentRef, paid); err != nil {
		s.logg.Error(ctx, "record order payment outcome", err)
	}
	ref := charge.Payment.PaymentRef
	order.PaymentRef = &ref
	if !paid {
		order.PaymentStatus = enums.OrderPaymentStatusFailed
		s.logg.Warn(s.logg.WithField(ctx, "payment_ref", ref), "order payment declined")
		return newPaymentSummary(charge.Payment), []string{"order placed but payment failed"}
	}
	order.PaymentStatus = enums.OrderPaymentStatusPaid
	if order.Status == enums.OrderStatusPending {
		order.Status = enums.OrderStatusConfirmed
	}
	return newPaymentSummary(charge.Payment), nil
}

func (s *service) rememberCustomer(ctx context.Context, userID uuid.UUID, input PlaceInput) {
	if s.addresses != nil {
		if _, err := s.addresses.Remember(ctx, userID, input.DeliveryAddress); err != nil {
			s.logg.Error(ctx, "remember delivery address", err)
		}
	}
	if name := strings.TrimSpace(input.CustomerName); name != "" && s.profiles != nil {
		if err := s.profiles.UpdateProfile(ctx, userID, users.UpdateProfileDTO{Name: &name}); err != nil {
			s.logg.Error(ctx, "update customer name", err)
		}
	}
}

// CreateWithTx inserts an order inside the caller's transaction, assigning an
// order number when the caller has not.
func (s *service) CreateWithTx(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order required")
	}
	if order.OrderNumber == "" {
		order.OrderNumber = s.refs.OrderNumber()
	}
	return s.repo.WithTx(tx).Create(ctx, order)
}

// RetryPayment charges an unpaid one-time order again, optionally with a
// different online method.
func (s *service) RetryPayment(ctx context.Context, userID, orderID uuid.UUID, method *enums.PaymentMethod) (*PlaceResult, error) {
	order, err := s.repo.FindForUser(ctx, orderID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, orderNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.OrderType != enums.OrderTypeOneTime {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription orders are billed monthly")
	}
	if order.PaymentStatus == enums.OrderPaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has already been paid")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, invalidTransition("cancelled orders cannot be paid")
	}
	if method != nil {
		order.PaymentMethod = *method
	}
	if !order.PaymentMethod.RequiresGateway() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "online payment requires upi, card or wallet")
	}
	ctx = s.withOrder(ctx, order)

	charge, err := s.payments.Charge(ctx, payments.ChargeInput{
		UserID:  userID,
		ShopID:  order.ShopID,
		OrderID: &order.ID,
		Amount:  order.TotalAmount,
		Method:  order.PaymentMethod,
		Purpose: enums.PaymentPurposeOrder,
	})
	if err != nil {
		return nil, err
	}
	paid := charge.Succeeded()
	if err := s.repo.RecordPayment(ctx, order.ID, charge.Payment.PaymentRef, paid); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record order payment")
	}
	if !paid {
		details := map[string]any{"payment_ref": charge.Payment.PaymentRef}
		if charge.Payment.FailureReason != nil {
			details["failure_reason"] = *charge.Payment.FailureReason
		}
		return nil, pkgerrors.New(pkgerrors.CodePaymentFailed, "payment failed").WithDetails(details)
	}

	s.notifier.Notify(ctx, notifications.Message{
		Type:      enums.NotificationTypePaymentSuccess,
		UserID:    userID,
		ShopID:    order.ShopID,
		Amount:    order.TotalAmount,
		Reference: order.OrderNumber,
	})

	updated, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return &PlaceResult{Order: NewOrderView(*updated), Payment: newPaymentSummary(charge.Payment)}, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.repo.FindForUser(ctx, orderID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, orderNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	view := NewOrderView(*order)
	return &view, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, params HistoryParams) (*HistoryResult, error) {
	if params.Type != nil && !params.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order type")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByUser(ctx, userID, params.Type, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	views := make([]OrderView, 0, len(rows))
	for _, row := range rows {
		views = append(views, NewOrderView(row))
	}
	return &HistoryResult{Orders: views, NextCursor: pagination.EncodeNext(next)}, nil
}

func (s *service) ListForShop(ctx context.Context, shopID uuid.UUID, params ShopListParams) (*ShopOrderList, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByShop(ctx, shopID, params.Status, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shop orders")
	}
	views := make([]ShopOrderView, 0, len(rows))
	for _, row := range rows {
		views = append(views, newShopOrderView(row))
	}
	return &ShopOrderList{Orders: views, NextCursor: pagination.EncodeNext(next)}, nil
}

// Stats aggregates the shop's orders. "Today" starts at local midnight.
func (s *service) Stats(ctx context.Context, shopID uuid.UUID) (*Stats, error) {
	local := s.now().In(s.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	row, err := s.repo.Stats(ctx, shopID, midnight.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order stats")
	}
	return &Stats{
		TotalOrders:     row.Total,
		PendingOrders:   row.Pending,
		ConfirmedOrders: row.Confirmed,
		DeliveredOrders: row.Delivered,
		TodayOrders:     row.Today,
		TotalRevenue:    row.Revenue,
	}, nil
}

// openStatuses are the states a shopkeeper may move an order out of.
var openStatuses = []enums.OrderStatus{
	enums.OrderStatusPending,
	enums.OrderStatusConfirmed,
	enums.OrderStatusPreparing,
	enums.OrderStatusOutForDelivery,
}

// UpdateStatus lets the shop move an open order to any status. Delivery is
// recorded once, together with the shop's order count and revenue.
func (s *service) UpdateStatus(ctx context.Context, shopID, orderID uuid.UUID, input StatusInput) (*OrderView, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	var notes *string
	if n := strings.TrimSpace(input.Notes); n != "" {
		notes = &n
	}
	if input.Status == enums.OrderStatusDelivered {
		return s.markDelivered(ctx, shopID, orderID, notes)
	}

	fields := map[string]any{"status": input.Status}
	if notes != nil {
		fields["notes"] = *notes
	}
	applied, err := s.repo.UpdateStatus(ctx, orderID, shopID, openStatuses, fields)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	order, err := s.classify(ctx, shopID, orderID, applied, "order is already closed")
	if err != nil {
		return nil, err
	}
	ctx = s.withOrder(ctx, order)
	s.logg.Info(s.logg.WithField(ctx, "status", input.Status.String()), "order status updated")

	if input.Status == enums.OrderStatusOutForDelivery {
		s.notifier.Notify(ctx, notifications.Message{
			Type:      enums.NotificationTypeOutForDelivery,
			UserID:    order.UserID,
			ShopID:    order.ShopID,
			Reference: order.OrderNumber,
		})
	}
	view := NewOrderView(*order)
	return &view, nil
}

// classify reloads the order after a conditional write and turns a write that
// matched no row into NotFound or a state conflict.
func (s *service) classify(ctx context.Context, shopID, orderID uuid.UUID, applied bool, conflict string) (*models.Order, error) {
	order, err := s.repo.FindForShop(ctx, orderID, shopID)
	if err != nil {
		if isNotFound(err) {
			return nil, orderNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	if !applied {
		return nil, invalidTransition(conflict).WithDetails(map[string]any{
			"reason": pkgerrors.ReasonInvalidTransition,
			"status": order.Status,
		})
	}
	return order, nil
}

func (s *service) markDelivered(ctx context.Context, shopID, orderID uuid.UUID, notes *string) (*OrderView, error) {
	var order *models.Order
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		applied, err := repo.MarkDelivered(ctx, orderID, shopID, s.now(), notes)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order delivered")
		}
		order, err = repo.FindForShop(ctx, orderID, shopID)
		if err != nil {
			if isNotFound(err) {
				return orderNotFound()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		if !applied {
			if order.Status == enums.OrderStatusDelivered {
				return invalidTransition("order already delivered")
			}
			return invalidTransition(fmt.Sprintf("cannot deliver a %s order", order.Status))
		}
		if err := s.shops.RecordDeliveredWithTx(ctx, tx, shopID, order.TotalAmount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shop counters")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.withOrder(ctx, order)
	s.logg.Info(ctx, "order delivered")
	s.notifier.Notify(ctx, notifications.Message{
		Type:      enums.NotificationTypeDelivered,
		UserID:    order.UserID,
		ShopID:    order.ShopID,
		Reference: order.OrderNumber,
	})
	view := NewOrderView(*order)
	return &view, nil
}

func (s *service) AssignDelivery(ctx context.Context, shopID, orderID uuid.UUID, input AssignInput) (*OrderView, error) {
	name := strings.TrimSpace(input.Name)
	phone := strings.TrimSpace(input.Phone)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery person name is required")
	}
	if !formats.Phone(phone) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery person phone")
	}

	applied, err := s.repo.AssignDelivery(ctx, orderID, shopID, types.DeliveryPerson{Name: name, Phone: phone})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign delivery")
	}
	order, err := s.classify(ctx, shopID, orderID, applied, "order is not eligible for assignment")
	if err != nil {
		return nil, err
	}

	ctx = s.withOrder(ctx, order)
	s.logg.Info(ctx, "delivery assigned")
	s.notifier.Notify(ctx, notifications.Message{
		Type:      enums.NotificationTypeDeliveryAssigned,
		UserID:    order.UserID,
		ShopID:    order.ShopID,
		Reference: order.OrderNumber,
		Text:      name,
	})
	view := NewOrderView(*order)
	return &view, nil
}

// UpdateLocation stores the courier's position and moves the order out for
// delivery. The customer is told only on the first move.
func (s *service) UpdateLocation(ctx context.Context, shopID, orderID uuid.UUID, location types.Coordinates) (*OrderView, error) {
	if !location.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coordinates")
	}
	order, err := s.repo.FindForShop(ctx, orderID, shopID)
	if err != nil {
		if isNotFound(err) {
			return nil, orderNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !order.Status.CanTrackLocation() {
		return nil, invalidTransition("order is not eligible for tracking")
	}

	person := types.DeliveryPerson{}
	if order.DeliveryPerson != nil {
		person = *order.DeliveryPerson
	}
	at := s.now()
	person.CurrentLocation = &location
	person.LocationAt = &at

	previous := order.Status
	applied, err := s.repo.UpdateStatus(ctx, order.ID, shopID, []enums.OrderStatus{previous}, map[string]any{
		"delivery_person": person,
		"status":          enums.OrderStatusOutForDelivery,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery location")
	}
	order, err = s.classify(ctx, shopID, orderID, applied, "order changed while updating location")
	if err != nil {
		return nil, err
	}

	if previous != enums.OrderStatusOutForDelivery {
		ctx = s.withOrder(ctx, order)
		s.notifier.Notify(ctx, notifications.Message{
			Type:      enums.NotificationTypeOutForDelivery,
			UserID:    order.UserID,
			ShopID:    order.ShopID,
			Reference: order.OrderNumber,
		})
	}
	view := NewOrderView(*order)
	return &view, nil
}

func (s *service) Track(ctx context.Context, userID, orderID uuid.UUID) (*Tracking, error) {
	order, err := s.repo.FindForUser(ctx, orderID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, orderNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	tracking := &Tracking{
		OrderNumber:           order.OrderNumber,
		Status:                order.Status,
		DeliveryPerson:        order.DeliveryPerson,
		EstimatedDeliveryTime: order.EstimatedDeliveryTime,
		ActualDeliveryTime:    order.ActualDeliveryTime,
		OrderPlacedAt:         order.CreatedAt,
	}
	if shop, err := s.shops.FindByID(ctx, order.ShopID); err == nil {
		tracking.Shop = &ShopContact{ShopName: shop.ShopName, Address: shop.Address, PhoneNumber: shop.PhoneNumber}
	} else if !isNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}
	if order.EstimatedDeliveryTime != nil && order.Status != enums.OrderStatusDelivered {
		minutes := minutesUntil(s.now(), *order.EstimatedDeliveryTime)
		tracking.TimeRemaining = &minutes
	}
	if order.Status == enums.OrderStatusOutForDelivery && order.DeliveryPerson != nil {
		tracking.DeliveryLocation = order.DeliveryPerson.CurrentLocation
	}
	return tracking, nil
}

// minutesUntil rounds up to whole minutes and never goes below zero.
func minutesUntil(now, eta time.Time) int {
	remaining := eta.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Minutes()))
}

// Rate records a 1-5 rating on a delivered order once and folds it into the
// shop's running average in the same transaction.
func (s *service) Rate(ctx context.Context, userID, orderID uuid.UUID, input RateInput) (*OrderView, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	var review *string
	if r := strings.TrimSpace(input.Review); r != "" {
		if len([]rune(r)) > maxReviewRunes {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("review must be at most %d characters", maxReviewRunes))
		}
		review = &r
	}

	var order *models.Order
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		applied, err := repo.SetRating(ctx, orderID, userID, input.Rating, review)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate order")
		}
		order, err = repo.FindForUser(ctx, orderID, userID)
		if err != nil {
			if isNotFound(err) {
				return orderNotFound()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		if !applied {
			if order.Rating != nil {
				return pkgerrors.New(pkgerrors.CodeConflict, "order has already been rated").
					WithReason(pkgerrors.ReasonAlreadyRated)
			}
			return invalidTransition("only delivered orders can be rated")
		}
		if err := s.shops.ApplyRatingWithTx(ctx, tx, order.ShopID, input.Rating); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shop rating")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.withOrder(ctx, order), "order rated")
	view := NewOrderView(*order)
	return &view, nil
}
