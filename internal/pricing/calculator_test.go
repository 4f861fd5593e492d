package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/exchange-desk/internal/domain"
)

func TestItemValueEmptyList(t *testing.T) {
	assert.Zero(t, ItemValue(nil, nil))
	assert.Zero(t, ItemValue([]domain.TicketItem{}, MapLookup(map[string]float64{"A": 10})))
}

func TestFallbackPriceBuckets(t *testing.T) {
	tests := []struct {
		sku  string
		want float64
	}{
		{"SHIRT-001", 25.99},
		{"tshirt-kids-m", 25.99},
		{"BLZR-001", 89.99},
		{"SHOE-BLACK-9", 59.99},
		{"PANT-GREY-32", 39.99},
		{"SKIRT-NAVY-S", 34.99},
		{"SWEATER-V-M", 44.99},
		{"UNKNOWN-SKU", DefaultPrice},
	}
	for _, tc := range tests {
		t.Run(tc.sku, func(t *testing.T) {
			assert.Equal(t, tc.want, FallbackPrice(tc.sku))
		})
	}
}

func TestCatalogPriceWinsOverFallback(t *testing.T) {
	lookup := MapLookup(map[string]float64{"SHIRT-001": 12.50})
	assert.Equal(t, 12.50, PriceOf("SHIRT-001", lookup))
	assert.Equal(t, 25.99, PriceOf("SHIRT-002", lookup))
}

func TestComputeCollectFromReturnOnly(t *testing.T) {
	// One return item, no exchange items, empty catalog, delivery 150.
	returns := []domain.TicketItem{{SKU: "SHIRT-001", ProductName: "School Shirt", Size: "M", Qty: 2}}

	quote := Compute(returns, nil, MapLookup(nil), 150)
	assert.InDelta(t, 51.98, quote.ReturnValue, 0.001)
	assert.InDelta(t, 98.02, quote.NetAmount, 0.001)
	assert.InDelta(t, 98.02, quote.AmountToCollect, 0.001)
	assert.Zero(t, quote.RefundAmount)
}

func TestComputeCollectWithExchangeItem(t *testing.T) {
	returns := []domain.TicketItem{{SKU: "SHIRT-001", Qty: 2}}
	exchanges := []domain.TicketItem{{SKU: "BLZR-001", Qty: 1}}

	quote := Compute(returns, exchanges, MapLookup(nil), 150)
	assert.InDelta(t, 188.01, quote.NetAmount, 0.001)
	assert.InDelta(t, 188.01, quote.AmountToCollect, 0.001)
	assert.Zero(t, quote.RefundAmount)
}

func TestComputeRefundOwed(t *testing.T) {
	returns := []domain.TicketItem{{SKU: "UNIFORM-SET", Qty: 1}}
	lookup := MapLookup(map[string]float64{"UNIFORM-SET": 500})

	quote := Compute(returns, nil, lookup, 150)
	assert.InDelta(t, -350, quote.NetAmount, 0.001)
	assert.InDelta(t, 350, quote.RefundAmount, 0.001)
	assert.Zero(t, quote.AmountToCollect)
}

func TestComputeIsPure(t *testing.T) {
	returns := []domain.TicketItem{{SKU: "SHIRT-001", Qty: 2}}
	exchanges := []domain.TicketItem{{SKU: "BLZR-001", Qty: 1}}
	lookup := MapLookup(map[string]float64{"SHIRT-001": 20})

	first := Compute(returns, exchanges, lookup, 150)
	second := Compute(returns, exchanges, lookup, 150)
	assert.Equal(t, first, second)
}

func TestNetAmountMonotonicity(t *testing.T) {
	lookup := MapLookup(map[string]float64{"R": 100, "X1": 50, "X2": 80})
	returns := []domain.TicketItem{{SKU: "R", Qty: 1}}

	lower := NetAmount(returns, []domain.TicketItem{{SKU: "X1", Qty: 1}}, lookup, 150)
	higher := NetAmount(returns, []domain.TicketItem{{SKU: "X2", Qty: 1}}, lookup, 150)
	assert.Greater(t, higher, lower)

	moreReturned := NetAmount([]domain.TicketItem{{SKU: "R", Qty: 2}}, []domain.TicketItem{{SKU: "X1", Qty: 1}}, lookup, 150)
	assert.Less(t, moreReturned, lower)
}

func TestCollectRefundMutualExclusivity(t *testing.T) {
	lookup := MapLookup(map[string]float64{"R": 300, "X": 100})
	cases := []struct {
		name     string
		delivery float64
	}{
		{"refund side", 50},
		{"collect side", 250},
		{"exactly zero", 200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quote := Compute(
				[]domain.TicketItem{{SKU: "R", Qty: 1}},
				[]domain.TicketItem{{SKU: "X", Qty: 1}},
				lookup, tc.delivery)
			assert.False(t, quote.AmountToCollect > 0 && quote.RefundAmount > 0)
			assert.GreaterOrEqual(t, quote.AmountToCollect, 0.0)
			assert.GreaterOrEqual(t, quote.RefundAmount, 0.0)
		})
	}
}

func TestValidDeliveryCharge(t *testing.T) {
	assert.True(t, ValidDeliveryCharge(0, DeliveryChargeStep))
	assert.True(t, ValidDeliveryCharge(150, DeliveryChargeStep))
	assert.True(t, ValidDeliveryCharge(200, DeliveryChargeStep))
	assert.False(t, ValidDeliveryCharge(-50, DeliveryChargeStep))
	assert.False(t, ValidDeliveryCharge(175, DeliveryChargeStep))

	// the grid follows the configured step
	assert.True(t, ValidDeliveryCharge(175, 25))
	assert.False(t, ValidDeliveryCharge(175, 100))

	// a zero step falls back to the package default
	assert.True(t, ValidDeliveryCharge(150, 0))
	assert.False(t, ValidDeliveryCharge(175, 0))
}
