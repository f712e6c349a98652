package payments

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/aquaflow-backend/internal/testutil"
	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/metrics"
	"github.com/angelmondragon/aquaflow-backend/pkg/pagination"
)

type stubGateway struct {
	resp *GatewayResponse
	err  error
	reqs []GatewayRequest
}

func (s *stubGateway) Initiate(ctx context.Context, req GatewayRequest) (*GatewayResponse, error) {
	s.reqs = append(s.reqs, req)
	return s.resp, s.err
}

func newTestService(t *testing.T, gateway Gateway) (Service, *Repository) {
	t.Helper()
	conn := testutil.NewDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(ServiceParams{
		Repository:     repo,
		Gateway:        gateway,
		Metrics:        metrics.NewAccrualMetrics(prometheus.NewRegistry()),
		Logger:         testutil.Logger(),
		InvoiceBaseURL: "https://invoices.test/",
		Clock:          func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc, repo
}

func orderCharge(userID uuid.UUID) ChargeInput {
	orderID := uuid.New()
	return ChargeInput{
		UserID:  userID,
		ShopID:  uuid.New(),
		OrderID: &orderID,
		Amount:  decimal.NewFromInt(90),
		Method:  enums.PaymentMethodUPI,
		Purpose: enums.PaymentPurposeOrder,
	}
}

func TestChargeSuccessIssuesInvoice(t *testing.T) {
	gateway := &stubGateway{resp: &GatewayResponse{Success: true, TransactionID: "txn_1", GatewayOrderID: "gwo_1"}}
	svc, repo := newTestService(t, gateway)
	userID := uuid.New()

	result, err := svc.Charge(context.Background(), orderCharge(userID))
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	require.NotNil(t, result.Invoice)

	assert.True(t, strings.HasPrefix(result.Payment.PaymentRef, "PAY"))
	assert.True(t, strings.HasPrefix(result.Invoice.InvoiceNumber, "INV"))
	assert.Equal(t, "https://invoices.test/invoices/"+result.Invoice.InvoiceNumber+".pdf", result.Invoice.InvoiceURL)
	require.Len(t, gateway.reqs, 1)
	assert.Equal(t, result.Payment.PaymentRef, gateway.reqs[0].PaymentRef)

	stored, err := repo.FindByRef(context.Background(), result.Payment.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusSuccess, stored.Status)
	require.NotNil(t, stored.TransactionID)
	assert.Equal(t, "txn_1", *stored.TransactionID)
	require.NotNil(t, stored.InvoiceNumber)
	assert.Equal(t, result.Invoice.InvoiceNumber, *stored.InvoiceNumber)
}

func TestChargeMonthlyUsesMonthlyInvoiceAndPeriod(t *testing.T) {
	gateway := &stubGateway{resp: &GatewayResponse{Success: true, TransactionID: "txn_2", GatewayOrderID: "gwo_2"}}
	svc, _ := newTestService(t, gateway)

	subID := uuid.New()
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	result, err := svc.Charge(context.Background(), ChargeInput{
		UserID:         uuid.New(),
		ShopID:         uuid.New(),
		SubscriptionID: &subID,
		Amount:         decimal.NewFromInt(900),
		Method:         enums.PaymentMethodCard,
		Purpose:        enums.PaymentPurposeSubscriptionMonthly,
		Period:         &InvoicePeriod{From: from, To: from.AddDate(0, 0, 30), JarsDelivered: 28},
	})
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	assert.True(t, strings.HasPrefix(result.Invoice.InvoiceNumber, "MINV"))
	require.NotNil(t, result.Invoice.JarsDelivered)
	assert.Equal(t, 28, *result.Invoice.JarsDelivered)
}

func TestChargeDeclinedKeepsFailedRecord(t *testing.T) {
	gateway := &stubGateway{resp: &GatewayResponse{Success: false, GatewayOrderID: "gwo_3", FailureReason: "insufficient funds"}}
	svc, repo := newTestService(t, gateway)

	result, err := svc.Charge(context.Background(), orderCharge(uuid.New()))
	require.NoError(t, err)
	assert.False(t, result.Succeeded())
	assert.Nil(t, result.Invoice)

	stored, err := repo.FindByRef(context.Background(), result.Payment.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.Equal(t, "insufficient funds", *stored.FailureReason)
}

func TestChargeGatewayErrorIsTreatedAsDecline(t *testing.T) {
	svc, _ := newTestService(t, &stubGateway{err: errors.New("connection reset")})

	result, err := svc.Charge(context.Background(), orderCharge(uuid.New()))
	require.NoError(t, err)
	assert.False(t, result.Succeeded())
	assert.Equal(t, enums.PaymentStatusFailed, result.Payment.Status)
}

func TestChargeRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(t, &stubGateway{})

	cash := orderCharge(uuid.New())
	cash.Method = enums.PaymentMethodCash
	_, err := svc.Charge(context.Background(), cash)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	both := orderCharge(uuid.New())
	subID := uuid.New()
	both.SubscriptionID = &subID
	_, err = svc.Charge(context.Background(), both)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	zero := orderCharge(uuid.New())
	zero.Amount = decimal.Zero
	_, err = svc.Charge(context.Background(), zero)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetScopesToOwner(t *testing.T) {
	gateway := &stubGateway{resp: &GatewayResponse{Success: true, TransactionID: "txn_4", GatewayOrderID: "gwo_4"}}
	svc, _ := newTestService(t, gateway)
	owner := uuid.New()

	result, err := svc.Charge(context.Background(), orderCharge(owner))
	require.NoError(t, err)

	detail, err := svc.Get(context.Background(), owner, result.Payment.PaymentRef)
	require.NoError(t, err)
	require.NotNil(t, detail.Invoice)
	assert.Equal(t, result.Invoice.InvoiceNumber, detail.Invoice.InvoiceNumber)

	_, err = svc.Get(context.Background(), uuid.New(), result.Payment.PaymentRef)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestHistoryListsOwnPayments(t *testing.T) {
	gateway := &stubGateway{resp: &GatewayResponse{Success: true, TransactionID: "txn_5", GatewayOrderID: "gwo_5"}}
	svc, _ := newTestService(t, gateway)
	owner := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := svc.Charge(context.Background(), orderCharge(owner))
		require.NoError(t, err)
	}
	_, err := svc.Charge(context.Background(), orderCharge(uuid.New()))
	require.NoError(t, err)

	page, err := svc.History(context.Background(), owner, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Payments, 2)
	assert.NotEmpty(t, page.NextCursor)
	for _, p := range page.Payments {
		assert.Equal(t, owner, p.UserID)
	}

	_, err = svc.History(context.Background(), owner, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMockGatewayHonoursRates(t *testing.T) {
	approve := NewMockGateway(0.9, 0.95, func() float64 { return 0.5 })
	resp, err := approve.Initiate(context.Background(), GatewayRequest{Purpose: enums.PaymentPurposeOrder})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.TransactionID, "txn_"))
	assert.True(t, strings.HasPrefix(resp.GatewayOrderID, "gwo_"))

	// 0.92 is above the order rate but below the monthly rate.
	edge := NewMockGateway(0.9, 0.95, func() float64 { return 0.92 })
	resp, err = edge.Initiate(context.Background(), GatewayRequest{Purpose: enums.PaymentPurposeOrder})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.FailureReason)

	resp, err = edge.Initiate(context.Background(), GatewayRequest{Purpose: enums.PaymentPurposeSubscriptionMonthly})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}
