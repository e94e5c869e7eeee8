package payment

import (
	"context"

	"trivia/internal/services"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CallbackGateway models a redirect-style provider: ProcessPayment opens the
// charge and returns Pending with a reference; the provider confirms later
// through the purchase-confirmation webhook.
type CallbackGateway struct{}

func NewCallbackGateway() *CallbackGateway {
	return &CallbackGateway{}
}

func (g *CallbackGateway) ProcessPayment(ctx context.Context, userID string, amount decimal.Decimal, currency string) (services.PaymentResult, error) {
	return services.PaymentResult{
		Status:    services.PaymentPending,
		Reference: "pay_" + uuid.NewString(),
	}, nil
}
