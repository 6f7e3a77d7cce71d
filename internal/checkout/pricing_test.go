package checkout

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopflow-backend/pkg/config"
)

func defaultPricing() Pricing {
	return NewPricing(config.CheckoutConfig{
		FreeShippingThreshold: decimal.NewFromInt(100),
		FlatShipping:          decimal.NewFromInt(10),
		TaxRate:               decimal.RequireFromString("0.08"),
	})
}

func TestQuote(t *testing.T) {
	cases := []struct {
		subtotal, shipping, tax, total string
	}{
		{"80", "10", "6.40", "96.40"},
		{"150", "0", "12", "162"},
		{"100", "0", "8", "108"},
		{"99.99", "10", "8", "117.99"},
		{"10.05", "10", "0.80", "20.85"},
	}
	p := defaultPricing()
	for _, tc := range cases {
		q := p.Quote(decimal.RequireFromString(tc.subtotal))
		if !q.Shipping.Equal(decimal.RequireFromString(tc.shipping)) {
			t.Errorf("%s: shipping %s, want %s", tc.subtotal, q.Shipping, tc.shipping)
		}
		if !q.Tax.Equal(decimal.RequireFromString(tc.tax)) {
			t.Errorf("%s: tax %s, want %s", tc.subtotal, q.Tax, tc.tax)
		}
		if !q.Total.Equal(decimal.RequireFromString(tc.total)) {
			t.Errorf("%s: total %s, want %s", tc.subtotal, q.Total, tc.total)
		}
		if !q.Discount.IsZero() {
			t.Errorf("%s: discount should be zero", tc.subtotal)
		}
	}
}
