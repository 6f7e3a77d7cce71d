// Package payments is a stand-in payment gateway. It approves charges with a
// configurable probability and never moves real money.
package payments

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopflow-backend/pkg/config"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
)

// ChargeRequest describes a single charge attempt.
type ChargeRequest struct {
	OrderID     uuid.UUID
	OrderNumber string
	Amount      decimal.Decimal
	Method      enums.PaymentMethod
	// ExternalRef is an optional client-side reference (card token, wallet tx hash).
	ExternalRef *string
}

// ChargeResult is the gateway outcome. A decline is not an error.
type ChargeResult struct {
	Approved      bool
	PaymentID     string
	DeclineReason string
}

// Gateway is the stub processor.
type Gateway struct {
	cardRate   float64
	cryptoRate float64

	mu   sync.Mutex
	roll func() float64
}

// NewGateway builds a gateway from the payment config.
func NewGateway(cfg config.PaymentConfig) *Gateway {
	return &Gateway{
		cardRate:   clampRate(cfg.SuccessRate),
		cryptoRate: clampRate(cfg.CryptoSuccessRate),
		roll:       rand.Float64,
	}
}

// Charge approves the request with the success rate configured for its method.
func (g *Gateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}
	if !req.Amount.IsPositive() {
		return ChargeResult{}, fmt.Errorf("charge amount must be positive")
	}

	rate := g.cardRate
	prefix := "pay"
	switch req.Method {
	case enums.PaymentMethodCrypto:
		rate = g.cryptoRate
		prefix = "crypto"
	case enums.PaymentMethodCard, enums.PaymentMethodPayPal, enums.PaymentMethodCashOnDelivery:
	default:
		return ChargeResult{}, fmt.Errorf("unsupported payment method %q", req.Method)
	}

	g.mu.Lock()
	roll := g.roll()
	g.mu.Unlock()

	if roll >= rate {
		return ChargeResult{Approved: false, DeclineReason: "declined by issuer"}, nil
	}
	return ChargeResult{
		Approved:  true,
		PaymentID: prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
	}, nil
}

func clampRate(rate float64) float64 {
	switch {
	case rate < 0:
		return 0
	case rate > 1:
		return 1
	default:
		return rate
	}
}
