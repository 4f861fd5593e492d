// Package pricing computes the monetary delta for a ticket: value of the
// exchange items minus the value of the returned items plus the delivery
// charge. All functions are pure so the API preview and the transition engine
// cannot drift apart.
package pricing

import (
	"math"
	"strings"

	"github.com/spec-kit/exchange-desk/internal/domain"
)

// PriceLookup resolves a SKU to its catalog price. The second return value is
// false when the catalog has no entry, which triggers the fallback bucket.
type PriceLookup func(sku string) (float64, bool)

// fallbackBucket maps a SKU substring to a default price. Buckets are matched
// in order against the upper-cased SKU; the first hit wins.
type fallbackBucket struct {
	token string
	price float64
}

var fallbackBuckets = []fallbackBucket{
	{"SHIRT", 25.99},
	{"BLZR", 89.99},
	{"SHOE", 59.99},
	{"PANT", 39.99},
	{"SKIRT", 34.99},
	{"SWEATER", 44.99},
}

// DefaultPrice is the global fallback for SKUs that match no bucket. It keeps
// the workflow usable before the catalog is fully priced.
const DefaultPrice = 1000

// Delivery charge policy: support/accounts may adjust the charge from the
// default in fixed increments until the amount is finalized.
const (
	DefaultDeliveryCharge = 150
	DeliveryChargeStep    = 50
)

// FallbackPrice returns the default price bucket for a SKU absent from the
// catalog.
func FallbackPrice(sku string) float64 {
	upper := strings.ToUpper(sku)
	for _, bucket := range fallbackBuckets {
		if strings.Contains(upper, bucket.token) {
			return bucket.price
		}
	}
	return DefaultPrice
}

// PriceOf resolves a SKU through the lookup, falling back to the bucket table.
func PriceOf(sku string, lookup PriceLookup) float64 {
	if lookup != nil {
		if price, ok := lookup(sku); ok {
			return price
		}
	}
	return FallbackPrice(sku)
}

// ItemValue sums price(sku) * qty over a line-item list.
func ItemValue(items []domain.TicketItem, lookup PriceLookup) float64 {
	var total float64
	for _, item := range items {
		total += PriceOf(item.SKU, lookup) * float64(item.Qty)
	}
	return total
}

// Quote is the computed financial outcome for a ticket. Exactly one of
// AmountToCollect / RefundAmount is positive (or both are zero).
type Quote struct {
	ReturnValue     float64
	ExchangeValue   float64
	DeliveryCharge  float64
	NetAmount       float64
	AmountToCollect float64
	RefundAmount    float64
}

// NetAmount computes exchange value minus return value plus delivery charge.
func NetAmount(returnItems, exchangeItems []domain.TicketItem, lookup PriceLookup, deliveryCharge float64) float64 {
	return ItemValue(exchangeItems, lookup) - ItemValue(returnItems, lookup) + deliveryCharge
}

// Compute derives the full quote. A positive net amount is collected from the
// customer; a non-positive net amount becomes a refund of its absolute value.
func Compute(returnItems, exchangeItems []domain.TicketItem, lookup PriceLookup, deliveryCharge float64) Quote {
	quote := Quote{
		ReturnValue:    ItemValue(returnItems, lookup),
		ExchangeValue:  ItemValue(exchangeItems, lookup),
		DeliveryCharge: deliveryCharge,
	}
	quote.NetAmount = quote.ExchangeValue - quote.ReturnValue + deliveryCharge
	if quote.NetAmount > 0 {
		quote.AmountToCollect = quote.NetAmount
	} else {
		quote.RefundAmount = math.Abs(quote.NetAmount)
	}
	return quote
}

// ValidDeliveryCharge reports whether the charge is non-negative and on the
// adjustment grid. A step of zero or less falls back to the default.
func ValidDeliveryCharge(charge, step float64) bool {
	if charge < 0 {
		return false
	}
	if step <= 0 {
		step = DeliveryChargeStep
	}
	return math.Mod(charge, step) == 0
}

// MapLookup adapts a plain sku->price map to a PriceLookup.
func MapLookup(prices map[string]float64) PriceLookup {
	return func(sku string) (float64, bool) {
		price, ok := prices[sku]
		return price, ok
	}
}
