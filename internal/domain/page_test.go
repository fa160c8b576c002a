package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayPrice(t *testing.T) {
	tests := []struct {
		name  string
		price int64
		mode  PricingMode
		fee   float64
		want  int64
	}{
		{"gross mode passes through", 10000, PricingGross, 4.0, 10000},
		{"net mode grosses up", 10000, PricingNet, 4.0, 10417},
		{"net mode rounds up", 5000, PricingNet, 4.0, 5209},
		{"zero fee", 10000, PricingNet, 0, 10000},
		{"zero price", 0, PricingNet, 4.0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayPrice(tt.price, tt.mode, tt.fee))
		})
	}
}

func TestDisplayPrice_MerchantNetsAtLeastPrice(t *testing.T) {
	// After the 4% fee is deducted from the grossed-up price, the merchant
	// must receive at least what they asked for.
	for _, price := range []int64{1, 99, 1500, 25000, 999999} {
		display := DisplayPrice(price, PricingNet, 4.0)
		net := float64(display) * 0.96
		assert.GreaterOrEqual(t, net, float64(price)-0.5, "price %d", price)
	}
}

func TestNetPrice(t *testing.T) {
	tests := []struct {
		name  string
		price int64
		mode  PricingMode
		fee   float64
		want  int64
	}{
		{"gross mode deducts the fee", 10000, PricingGross, 4.0, 9600},
		{"gross mode rounds down", 5001, PricingGross, 4.0, 4800},
		{"net mode passes through", 10000, PricingNet, 4.0, 10000},
		{"zero fee", 10000, PricingGross, 0, 10000},
		{"zero price", 0, PricingGross, 4.0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NetPrice(tt.price, tt.mode, tt.fee))
		})
	}
}

func TestTemplateTypeValid(t *testing.T) {
	for _, tt := range TemplateTypes {
		assert.True(t, tt.Valid())
	}
	assert.False(t, TemplateType("SUBSCRIPTION").Valid())
	assert.False(t, TemplateType("").Valid())
}

func TestValidateTitle(t *testing.T) {
	assert.NoError(t, ValidateTitle("Ma page"))
	assert.NoError(t, ValidateTitle("ab"))
	assert.Error(t, ValidateTitle("a"))
	assert.Error(t, ValidateTitle(string(make([]rune, 101))))
}

func TestNewPaymentReference(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref, err := NewPaymentReference()
		assert.NoError(t, err)
		assert.Len(t, ref, 11)
		assert.Equal(t, "PL-", ref[:3])
		assert.NotContains(t, ref[3:], "0")
		assert.NotContains(t, ref[3:], "O")
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}
