package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PointsStore struct {
	db *pgxpool.Pool
}

func NewPointsStore(db *pgxpool.Pool) *PointsStore {
	return &PointsStore{db: db}
}

// GetBalanceByCustomerID sums the completed ledger entries. Card
// assignment and deactivation never write here.
func (s *PointsStore) GetBalanceByCustomerID(ctx context.Context, customerID string) (decimal.Decimal, error) {
	var totalDr, totalCr decimal.Decimal

	err := s.db.QueryRow(ctx, `
        SELECT
            COALESCE(SUM(dr), 0),
            COALESCE(SUM(cr), 0)
        FROM points_ledger
        WHERE customer_id = $1 AND status = 'completed'
    `, customerID).Scan(&totalDr, &totalCr)

	if err != nil {
		return decimal.Zero, err
	}

	balance := totalDr.Sub(totalCr)
	return balance, nil
}
