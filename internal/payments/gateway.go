package payments

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/aquaflow-backend/pkg/enums"
	"github.com/angelmondragon/aquaflow-backend/pkg/refs"
)

// GatewayRequest is what the payment provider sees for one charge.
type GatewayRequest struct {
	PaymentRef string
	Amount     decimal.Decimal
	Method     enums.PaymentMethod
	Purpose    enums.PaymentPurpose
}

// GatewayResponse mirrors a provider callback. A declined charge is reported
// through Success=false, not an error.
type GatewayResponse struct {
	Success        bool
	TransactionID  string
	GatewayOrderID string
	FailureReason  string
}

type Gateway interface {
	Initiate(ctx context.Context, req GatewayRequest) (*GatewayResponse, error)
}

// MockGateway approves charges with a configured probability per purpose.
type MockGateway struct {
	orderRate   float64
	monthlyRate float64

	mu   sync.Mutex
	roll func() float64
}

// NewMockGateway builds a gateway; roll defaults to a uniform [0,1) source.
func NewMockGateway(orderRate, monthlyRate float64, roll func() float64) *MockGateway {
	if roll == nil {
		roll = rand.Float64
	}
	return &MockGateway{orderRate: orderRate, monthlyRate: monthlyRate, roll: roll}
}

func (g *MockGateway) Initiate(ctx context.Context, req GatewayRequest) (*GatewayResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gatewayOrderID, err := refs.GatewayOrderID()
	if err != nil {
		return nil, err
	}

	rate := g.orderRate
	if req.Purpose == enums.PaymentPurposeSubscriptionMonthly {
		rate = g.monthlyRate
	}

	g.mu.Lock()
	approved := g.roll() < rate
	g.mu.Unlock()

	if !approved {
		return &GatewayResponse{
			Success:        false,
			GatewayOrderID: gatewayOrderID,
			FailureReason:  "payment declined by issuer",
		}, nil
	}

	txnID, err := refs.TransactionID()
	if err != nil {
		return nil, err
	}
	return &GatewayResponse{
		Success:        true,
		TransactionID:  txnID,
		GatewayOrderID: gatewayOrderID,
	}, nil
}
