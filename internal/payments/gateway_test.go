package payments

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopflow-backend/pkg/config"
	"github.com/angelmondragon/shopflow-backend/pkg/enums"
)

func fixedGateway(cardRate, cryptoRate, roll float64) *Gateway {
	g := NewGateway(config.PaymentConfig{SuccessRate: cardRate, CryptoSuccessRate: cryptoRate})
	g.roll = func() float64 { return roll }
	return g
}

func request(method enums.PaymentMethod) ChargeRequest {
	return ChargeRequest{OrderID: uuid.New(), Amount: decimal.NewFromInt(25), Method: method}
}

func TestChargeApprovesBelowRate(t *testing.T) {
	g := fixedGateway(0.9, 0.8, 0.5)
	res, err := g.Charge(context.Background(), request(enums.PaymentMethodCard))
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if !res.Approved || !strings.HasPrefix(res.PaymentID, "pay_") {
		t.Fatalf("expected approval, got %+v", res)
	}
}

func TestChargeUsesCryptoRate(t *testing.T) {
	g := fixedGateway(0.9, 0.8, 0.85)

	card, err := g.Charge(context.Background(), request(enums.PaymentMethodCard))
	if err != nil || !card.Approved {
		t.Fatalf("card should pass at 0.85: %+v %v", card, err)
	}
	crypto, err := g.Charge(context.Background(), request(enums.PaymentMethodCrypto))
	if err != nil {
		t.Fatalf("crypto: %v", err)
	}
	if crypto.Approved || crypto.PaymentID != "" || crypto.DeclineReason == "" {
		t.Fatalf("crypto should be declined at 0.85: %+v", crypto)
	}
}

func TestChargeRejectsBadInput(t *testing.T) {
	g := fixedGateway(1, 1, 0)
	req := request(enums.PaymentMethodCard)
	req.Amount = decimal.Zero
	if _, err := g.Charge(context.Background(), req); err == nil {
		t.Fatalf("expected error for zero amount")
	}
	if _, err := g.Charge(context.Background(), request("wire")); err == nil {
		t.Fatalf("expected error for unknown method")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Charge(ctx, request(enums.PaymentMethodCard)); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestClampRate(t *testing.T) {
	if clampRate(-1) != 0 || clampRate(2) != 1 || clampRate(0.3) != 0.3 {
		t.Fatalf("unexpected clamp results")
	}
}
