package subscriptions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/internal/notifications"
	"github.com/angelmondragon/aquaflow-backend/internal/payments"
	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
	"github.com/angelmondragon/aquaflow-backend/pkg/metrics"
	"github.com/angelmondragon/aquaflow-backend/pkg/pagination"
	"github.com/angelmondragon/aquaflow-backend/pkg/refs"
)

const (
	billingPeriod    = 30 * 24 * time.Hour
	deliveryETA      = 30 * time.Minute
	deliveryHistory  = 20
	maxJarsPerAction = 100
	paymentClaimTTL  = 10 * time.Minute
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type shopReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
}

// orderWriter inserts the order row that accompanies a subscription draw.
type orderWriter interface {
	CreateWithTx(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

type charger interface {
	Charge(ctx context.Context, input payments.ChargeInput) (*payments.ChargeResult, error)
}

// Service defines the subscription lifecycle and monthly accrual surface.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*CreateResult, error)
	OrderJars(ctx context.Context, userID uuid.UUID, input OrderJarsInput) (*OrderJarsResult, error)
	RecordDelivery(ctx context.Context, shopID, subscriptionID uuid.UUID, input DeliveryInput) (*DeliveryResult, error)
	PayMonthly(ctx context.Context, userID, subscriptionID uuid.UUID) (*MonthlyPaymentResult, error)
	RetryInitialPayment(ctx context.Context, userID, subscriptionID uuid.UUID) (*PaymentSummary, error)
	Get(ctx context.Context, userID, subscriptionID uuid.UUID) (*Detail, error)
	List(ctx context.Context, userID uuid.UUID, params ListParams) (*ListResult, error)
	ListForShop(ctx context.Context, shopID uuid.UUID, params ListParams) (*ShopListResult, error)
	Pause(ctx context.Context, userID, subscriptionID uuid.UUID) (*SubscriptionView, error)
	Resume(ctx context.Context, userID, subscriptionID uuid.UUID) (*SubscriptionView, error)
	Cancel(ctx context.Context, userID, subscriptionID uuid.UUID) (*SubscriptionView, error)
	DueForPayment(ctx context.Context, limit int) ([]models.Subscription, error)
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repository        Repository
	Shops             shopReader
	Orders            orderWriter
	Payments          charger
	Notifier          notifications.Notifier
	TransactionRunner txRunner
	Refs              *refs.Generator
	Metrics           *metrics.AccrualMetrics
	Logger            *logger.Logger
	Clock             func() time.Time
}

type service struct {
	repo     Repository
	shops    shopReader
	orders   orderWriter
	payments charger
	notifier notifications.Notifier
	txRunner txRunner
	refs     *refs.Generator
	metrics  *metrics.AccrualMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a subscription service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	if params.Shops == nil {
		return nil, fmt.Errorf("shop reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order writer required")
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
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:     params.Repository,
		shops:    params.Shops,
		orders:   params.Orders,
		payments: params.Payments,
		notifier: notifier,
		txRunner: params.TransactionRunner,
		refs:     generator,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      func() time.Time { return clock().UTC() },
	}, nil
}

func validateCreate(input *CreateInput) error {
	if input.ShopID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "shop_id is required")
	}
	if !input.Plan.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid subscription plan")
	}
	if input.DeliveryFrequency == "" {
		input.DeliveryFrequency = enums.DeliveryFrequencyWeekly
	}
	if !input.DeliveryFrequency.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery frequency")
	}
	if !input.PaymentMethod.AllowedForSubscription() {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscriptions are paid by upi, card or wallet")
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

func (s *service) availableShop(ctx context.Context, shopID uuid.UUID) (*models.Shop, error) {
	shop, err := s.shops.FindByID(ctx, shopID)
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
	return shop, nil
}

// Create persists the subscription first and then takes the first monthly
// charge. A declined charge leaves the subscription in place and is reported
// as a warning.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*CreateResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if err := validateCreate(&input); err != nil {
		return nil, err
	}

	shop, err := s.availableShop(ctx, input.ShopID)
	if err != nil {
		return nil, err
	}

	jars, err := input.Plan.JarsPerMonth()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid subscription plan")
	}

	now := s.now()
	sub := &models.Subscription{
		UserID:            userID,
		ShopID:            shop.ID,
		Plan:              input.Plan,
		JarsPerMonth:      jars,
		PricePerJar:       shop.PricePerJar,
		MonthlyAmount:     shop.PricePerJar.Mul(decimal.NewFromInt(int64(jars))),
		StartDate:         now,
		NextDeliveryDate:  input.DeliveryFrequency.Advance(now),
		NextPaymentDate:   now.Add(billingPeriod),
		DeliveryAddress:   input.DeliveryAddress,
		DeliveryFrequency: input.DeliveryFrequency,
		PaymentMethod:     input.PaymentMethod,
		AutoRenewal:       true,
		Status:            enums.SubscriptionStatusActive,
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.HasActive(ctx, userID, shop.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active subscription")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "an active subscription with this shop already exists").
				WithReason(pkgerrors.ReasonDuplicateSubscription)
		}
		if err := repo.Create(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithSubscriptionID(ctx, sub.ID.String())
	s.logg.Info(ctx, "subscription created")

	result := &CreateResult{}
	charge, chargeErr := s.payments.Charge(ctx, payments.ChargeInput{
		UserID:         userID,
		ShopID:         shop.ID,
		SubscriptionID: &sub.ID,
		Amount:         sub.MonthlyAmount,
		Method:         sub.PaymentMethod,
		Purpose:        enums.PaymentPurposeSubscriptionInitial,
	})
	switch {
	case chargeErr != nil:
		s.logg.Error(ctx, "initial subscription payment could not be recorded", chargeErr)
		result.Warnings = append(result.Warnings, "subscription created but payment initiation failed")
	case !charge.Succeeded():
		result.Payment = newPaymentSummary(charge.Payment)
		result.Warnings = append(result.Warnings, "subscription created but payment failed")
	default:
		result.Payment = newPaymentSummary(charge.Payment)
		if err := s.repo.MarkPaid(ctx, sub.ID, now); err != nil {
			s.logg.Error(ctx, "stamp initial payment date", err)
		} else {
			sub.LastPaymentDate = &now
		}
	}

	s.notifier.Notify(ctx, notifications.Message{
		Type:      enums.NotificationTypeSubscriptionCreated,
		UserID:    userID,
		ShopID:    shop.ID,
		Amount:    sub.MonthlyAmount,
		Reference: sub.ID.String(),
	})

	result.Subscription = NewSubscriptionView(*sub)
	return result, nil
}

func validQuantity(quantity int) error {
	switch {
	case quantity <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive number of jars")
	case quantity > maxJarsPerAction:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity cannot exceed %d jars per request", maxJarsPerAction)).
			WithDetails(map[string]any{"max_quantity": maxJarsPerAction})
	}
	return nil
}

func capExceeded(remaining int, message string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, message).
		WithDetails(map[string]any{
			"reason":         pkgerrors.ReasonMonthlyCapExceeded,
			"remaining_jars": remaining,
		})
}

// OrderJars draws jars from the caller's active subscription and opens a
// subscription order for them in the same transaction.
func (s *service) OrderJars(ctx context.Context, userID uuid.UUID, input OrderJarsInput) (*OrderJarsResult, error) {
	if input.SubscriptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription_id is required")
	}
	if err := validQuantity(input.Quantity); err != nil {
		return nil, err
	}
	ctx = s.logg.WithSubscriptionID(ctx, input.SubscriptionID.String())

	var (
		sub   *models.Subscription
		order *models.Order
	)
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		applied, err := repo.AccrueOrder(ctx, input.SubscriptionID, userID, input.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accrue subscription order")
		}

		sub, err = repo.FindByID(ctx, input.SubscriptionID)
		if err != nil && !isNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}
		if sub == nil || sub.UserID != userID || sub.Status != enums.SubscriptionStatusActive {
			return pkgerrors.New(pkgerrors.CodeNotFound, "active subscription not found")
		}
		if !applied {
			s.metrics.IncCapRejection(metrics.PathOrdered)
			remaining := sub.RemainingToOrder()
			return capExceeded(remaining, fmt.Sprintf("you can only order %d more jars this month", remaining))
		}

		now := s.now()
		eta := now.Add(deliveryETA)
		plan := sub.Plan
		notes := fmt.Sprintf("Subscription order - %s plan", sub.Plan)
		order = &models.Order{
			OrderNumber:           s.refs.OrderNumber(),
			UserID:                userID,
			ShopID:                sub.ShopID,
			OrderType:             enums.OrderTypeSubscription,
			SubscriptionID:        &sub.ID,
			SubscriptionPlan:      &plan,
			Quantity:              input.Quantity,
			PricePerJar:           sub.PricePerJar,
			TotalAmount:           lineAmount(sub, input.Quantity),
			DeliveryAddress:       sub.DeliveryAddress,
			Status:                enums.OrderStatusPending,
			PaymentStatus:         enums.OrderPaymentStatusPending,
			PaymentMethod:         enums.PaymentMethodSubscription,
			EstimatedDeliveryTime: &eta,
			Notes:                 &notes,
		}
		if err := s.orders.CreateWithTx(ctx, tx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddJars(metrics.PathOrdered, input.Quantity)
	s.logg.Info(s.logg.WithField(ctx, "order_number", order.OrderNumber), "subscription jars ordered")
	s.notifier.Notify(ctx, notifications.Message{
		Type:      enums.NotificationTypeNewOrder,
		UserID:    userID,
		ShopID:    sub.ShopID,
		Amount:    order.TotalAmount,
		Reference: order.OrderNumber,
	})

	return &OrderJarsResult{
		Order: OrderSummary{
			ID:                    order.ID,
			OrderNumber:           order.OrderNumber,
			Quantity:              order.Quantity,
			TotalAmount:           order.TotalAmount,
			EstimatedDeliveryTime: order.EstimatedDeliveryTime,
		},
		Subscription: counters(sub, sub.RemainingToOrder()),
	}, nil
}

// RecordDelivery adds a delivery made by shopID against one of its active
// subscriptions and appends it to the delivery history.
func (s *service) RecordDelivery(ctx context.Context, shopID, subscriptionID uuid.UUID, input DeliveryInput) (*DeliveryResult, error) {
	if err := validQuantity(input.Quantity); err != nil {
		return nil, err
	}
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
	}
	if _, err := s.shops.FindByID(ctx, shopID); err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}
	ctx = s.logg.WithSubscriptionID(ctx, subscriptionID.String())

	var (
		sub      *models.Subscription
		delivery *models.SubscriptionDelivery
	)
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		applied, err := repo.AccrueDelivery(ctx, subscriptionID, shopID, input.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accrue subscription delivery")
		}

		sub, err = repo.FindByID(ctx, subscriptionID)
		if err != nil && !isNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}
		if sub == nil || sub.ShopID != shopID || sub.Status != enums.SubscriptionStatusActive {
			return pkgerrors.New(pkgerrors.CodeNotFound, "active subscription not found for this shop")
		}
		if !applied {
			s.metrics.IncCapRejection(metrics.PathDelivered)
			remaining := sub.RemainingToDeliver()
			return capExceeded(remaining, fmt.Sprintf("only %d jars remaining for this month", remaining))
		}

		delivery = &models.SubscriptionDelivery{
			SubscriptionID: sub.ID,
			ShopID:         shopID,
			DeliveredAt:    s.now(),
			Quantity:       input.Quantity,
			Amount:         lineAmount(sub, input.Quantity),
		}
		if notes := strings.TrimSpace(input.Notes); notes != "" {
			delivery.Notes = &notes
		}
		if err := repo.CreateDelivery(ctx, delivery); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record delivery")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddJars(metrics.PathDelivered, input.Quantity)
	s.logg.Info(ctx, "subscription delivery recorded")

	summary := counters(sub, sub.RemainingToDeliver())
	last := NewDeliveryView(*delivery)
	summary.LastDelivery = &last
	return &DeliveryResult{Subscription: summary}, nil
}

func (s *service) activeForUser(ctx context.Context, userID, subscriptionID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repo.FindForUser(ctx, subscriptionID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "active subscription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if sub.Status != enums.SubscriptionStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "active subscription not found")
	}
	return sub, nil
}

// PayMonthly charges the monthly amount once next_payment_date has passed and,
// on success, opens the next cycle. The cycle is claimed before the gateway is
// called, so a concurrent payment for the same cycle is turned away without
// being charged.
func (s *service) PayMonthly(ctx context.Context, userID, subscriptionID uuid.UUID) (*MonthlyPaymentResult, error) {
	sub, err := s.activeForUser(ctx, userID, subscriptionID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithSubscriptionID(ctx, sub.ID.String())

	now := s.now()
	if !sub.PaymentDue(now) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment not due yet").
			WithDetails(map[string]any{
				"reason":            pkgerrors.ReasonPaymentNotDue,
				"next_payment_date": sub.NextPaymentDate,
			})
	}

	claimed, err := s.repo.ClaimPaymentCycle(ctx, sub.ID, sub.PaymentCycle, now, now.Add(-paymentClaimTTL))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim payment cycle")
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "monthly payment already in progress for this cycle").
			WithDetails(map[string]any{"reason": pkgerrors.ReasonPaymentInProgress})
	}

	periodFrom := sub.StartDate
	if sub.LastPaymentDate != nil {
		periodFrom = *sub.LastPaymentDate
	}
	charge, err := s.payments.Charge(ctx, payments.ChargeInput{
		UserID:         userID,
		ShopID:         sub.ShopID,
		SubscriptionID: &sub.ID,
		Amount:         sub.MonthlyAmount,
		Method:         sub.PaymentMethod,
		Purpose:        enums.PaymentPurposeSubscriptionMonthly,
		Period: &payments.InvoicePeriod{
			From:          periodFrom,
			To:            now,
			JarsDelivered: sub.JarsDeliveredThisMonth,
		},
	})
	if err != nil {
		s.releaseClaim(ctx, sub)
		return nil, err
	}

	if !charge.Succeeded() {
		s.releaseClaim(ctx, sub)
		s.notifier.Notify(ctx, notifications.Message{
			Type:   enums.NotificationTypeMonthlyPaymentFailed,
			UserID: userID,
			ShopID: sub.ShopID,
			Amount: sub.MonthlyAmount,
		})
		details := map[string]any{"payment_ref": charge.Payment.PaymentRef}
		if charge.Payment.FailureReason != nil {
			details["failure_reason"] = *charge.Payment.FailureReason
		}
		return nil, pkgerrors.New(pkgerrors.CodePaymentFailed, "monthly payment failed").WithDetails(details)
	}

	nextDue := now.Add(billingPeriod)
	var advanced bool
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		advanced, err = s.repo.WithTx(tx).AdvancePaymentCycle(ctx, sub.ID, sub.PaymentCycle, now, nextDue)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance payment cycle")
	}
	if !advanced {
		s.logg.Warn(s.logg.WithField(ctx, "payment_ref", charge.Payment.PaymentRef), "monthly payment captured for an already closed cycle")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "monthly payment already processed for this cycle").
			WithDetails(map[string]any{"reason": pkgerrors.ReasonPaymentNotDue, "payment_ref": charge.Payment.PaymentRef})
	}

	s.notifier.Notify(ctx, notifications.Message{
		Type:   enums.NotificationTypeMonthlyPaymentSuccess,
		UserID: userID,
		ShopID: sub.ShopID,
		Amount: sub.MonthlyAmount,
	})

	updated, err := s.repo.FindByID(ctx, sub.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload subscription")
	}
	return &MonthlyPaymentResult{
		Payment:         *newPaymentSummary(charge.Payment),
		NextPaymentDate: updated.NextPaymentDate,
		Subscription:    NewSubscriptionView(*updated),
	}, nil
}

func (s *service) releaseClaim(ctx context.Context, sub *models.Subscription) {
	if err := s.repo.ReleasePaymentClaim(ctx, sub.ID, sub.PaymentCycle); err != nil {
		s.logg.Error(ctx, "release payment claim", err)
	}
}

// RetryInitialPayment re-attempts the first charge of a subscription whose
// creation-time payment did not go through.
func (s *service) RetryInitialPayment(ctx context.Context, userID, subscriptionID uuid.UUID) (*PaymentSummary, error) {
	sub, err := s.activeForUser(ctx, userID, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.LastPaymentDate != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "subscription has already been paid")
	}

	charge, err := s.payments.Charge(ctx, payments.ChargeInput{
		UserID:         userID,
		ShopID:         sub.ShopID,
		SubscriptionID: &sub.ID,
		Amount:         sub.MonthlyAmount,
		Method:         sub.PaymentMethod,
		Purpose:        enums.PaymentPurposeSubscriptionInitial,
	})
	if err != nil {
		return nil, err
	}
	if !charge.Succeeded() {
		return nil, pkgerrors.New(pkgerrors.CodePaymentFailed, "payment failed").
			WithDetails(map[string]any{"payment_ref": charge.Payment.PaymentRef})
	}
	if err := s.repo.MarkPaid(ctx, sub.ID, s.now()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stamp payment date")
	}
	return newPaymentSummary(charge.Payment), nil
}

func (s *service) Get(ctx context.Context, userID, subscriptionID uuid.UUID) (*Detail, error) {
	sub, err := s.repo.FindForUser(ctx, subscriptionID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	deliveries, err := s.repo.ListDeliveries(ctx, sub.ID, deliveryHistory)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery history")
	}

	history := make([]DeliveryView, 0, len(deliveries))
	for _, d := range deliveries {
		history = append(history, NewDeliveryView(d))
	}
	return &Detail{Subscription: NewSubscriptionView(*sub), DeliveryHistory: history}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params ListParams) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByUser(ctx, userID, params.Status, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}

	views := make([]SubscriptionView, 0, len(rows))
	for _, row := range rows {
		views = append(views, NewSubscriptionView(row))
	}
	return &ListResult{Subscriptions: views, NextCursor: pagination.EncodeNext(next)}, nil
}

func (s *service) ListForShop(ctx context.Context, shopID uuid.UUID, params ListParams) (*ShopListResult, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByShop(ctx, shopID, params.Status, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shop subscriptions")
	}

	views := make([]ShopSubscriptionView, 0, len(rows))
	for _, row := range rows {
		views = append(views, newShopSubscriptionView(row))
	}
	return &ShopListResult{Subscriptions: views, NextCursor: pagination.EncodeNext(next)}, nil
}

func (s *service) Pause(ctx context.Context, userID, subscriptionID uuid.UUID) (*SubscriptionView, error) {
	return s.transition(ctx, userID, subscriptionID, enums.SubscriptionStatusPaused)
}

func (s *service) Resume(ctx context.Context, userID, subscriptionID uuid.UUID) (*SubscriptionView, error) {
	return s.transition(ctx, userID, subscriptionID, enums.SubscriptionStatusActive)
}

func (s *service) Cancel(ctx context.Context, userID, subscriptionID uuid.UUID) (*SubscriptionView, error) {
	return s.transition(ctx, userID, subscriptionID, enums.SubscriptionStatusCancelled)
}

func (s *service) transition(ctx context.Context, userID, subscriptionID uuid.UUID, to enums.SubscriptionStatus) (*SubscriptionView, error) {
	sub, err := s.repo.FindForUser(ctx, subscriptionID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}

	invalid := func(from enums.SubscriptionStatus) error {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move subscription from %s to %s", from, to)).
			WithReason(pkgerrors.ReasonInvalidTransition)
	}
	if !sub.Status.CanTransitionTo(to) {
		return nil, invalid(sub.Status)
	}

	applied, err := s.repo.TransitionStatus(ctx, sub.ID, userID, sub.Status, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription status")
	}
	updated, err := s.repo.FindByID(ctx, sub.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload subscription")
	}
	if !applied {
		return nil, invalid(updated.Status)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"subscription_id": sub.ID.String(),
		"status":          to.String(),
	}), "subscription status changed")
	view := NewSubscriptionView(*updated)
	return &view, nil
}

// DueForPayment lists active subscriptions whose monthly charge is due now.
func (s *service) DueForPayment(ctx context.Context, limit int) ([]models.Subscription, error) {
	subs, err := s.repo.ListDue(ctx, s.now(), pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due subscriptions")
	}
	return subs, nil
}
