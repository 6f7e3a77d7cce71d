package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopflow-backend/pkg/config"
)

// Pricing holds the server-side shipping and tax rules.
type Pricing struct {
	FreeShippingThreshold decimal.Decimal
	FlatShipping          decimal.Decimal
	TaxRate               decimal.Decimal
}

// Quote is the priced breakdown stored on an order.
type Quote struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

func NewPricing(cfg config.CheckoutConfig) Pricing {
	return Pricing{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShipping:          cfg.FlatShipping,
		TaxRate:               cfg.TaxRate,
	}
}

// Quote prices a subtotal. Shipping is free at or above the threshold, tax is
// charged on the subtotal only, and every amount is rounded half-up to cents.
func (p Pricing) Quote(subtotal decimal.Decimal) Quote {
	subtotal = subtotal.Round(2)
	shipping := p.FlatShipping
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	shipping = shipping.Round(2)
	tax := subtotal.Mul(p.TaxRate).Round(2)
	discount := decimal.Zero
	return Quote{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Discount: discount,
		Total:    subtotal.Add(shipping).Add(tax).Sub(discount).Round(2),
	}
}
