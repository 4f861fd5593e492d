package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// cachedPriceRepository is a read-through Redis cache over the catalog. Cache
// faults degrade to direct catalog reads rather than failing the quote.
type cachedPriceRepository struct {
	inner  PriceRepository
	client *redis.Client
	ttl    time.Duration
}

// NewCachedPriceRepository wraps a PriceRepository with a Redis cache.
func NewCachedPriceRepository(inner PriceRepository, client *redis.Client, ttl time.Duration) PriceRepository {
	if client == nil {
		return inner
	}
	return &cachedPriceRepository{inner: inner, client: client, ttl: ttl}
}

const priceKeyPrefix = "price:"

func (r *cachedPriceRepository) PricesBySKUs(ctx context.Context, skus []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(skus))
	missing := make([]string, 0, len(skus))

	keys := make([]string, len(skus))
	for i, sku := range skus {
		keys[i] = priceKeyPrefix + sku
	}
	cached, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return r.inner.PricesBySKUs(ctx, skus)
	}
	for i, raw := range cached {
		str, ok := raw.(string)
		if !ok {
			missing = append(missing, skus[i])
			continue
		}
		price, parseErr := strconv.ParseFloat(str, 64)
		if parseErr != nil {
			missing = append(missing, skus[i])
			continue
		}
		if price >= 0 {
			prices[skus[i]] = price
		}
		// negative sentinel means "known absent from catalog"
	}

	if len(missing) == 0 {
		return prices, nil
	}

	fresh, err := r.inner.PricesBySKUs(ctx, missing)
	if err != nil {
		return nil, err
	}
	pipe := r.client.Pipeline()
	for _, sku := range missing {
		price, ok := fresh[sku]
		if ok {
			prices[sku] = price
		} else {
			price = -1
		}
		pipe.Set(ctx, priceKeyPrefix+sku, strconv.FormatFloat(price, 'f', -1, 64), r.ttl)
	}
	_, _ = pipe.Exec(ctx)
	return prices, nil
}
