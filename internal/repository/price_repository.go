package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/spec-kit/exchange-desk/pkg/util"
)

// PriceRepository resolves catalog prices for SKUs. Absent SKUs are simply
// missing from the returned map; the calculator applies its fallback buckets.
type PriceRepository interface {
	PricesBySKUs(ctx context.Context, skus []string) (map[string]float64, error)
}

type priceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository builds repository over the product catalog.
func NewPriceRepository(pool *pgxpool.Pool) PriceRepository {
	return &priceRepository{pool: pool}
}

func (r *priceRepository) PricesBySKUs(ctx context.Context, skus []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(skus))
	if len(skus) == 0 {
		return prices, nil
	}

	const query = `SELECT sku, price FROM product_catalog WHERE active AND sku = ANY($1)`
	rows, err := r.pool.Query(ctx, query, skus)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var sku string
		var price float64
		if err := rows.Scan(&sku, &price); err != nil {
			return nil, apperrors.NewPersistenceError(err)
		}
		prices[sku] = price
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return prices, nil
}
