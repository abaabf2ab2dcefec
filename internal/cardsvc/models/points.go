package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PointsEntry is one row of the points ledger. A customer's live
// balance is SUM(dr) - SUM(cr) over completed entries.
type PointsEntry struct {
	ID         int64           `json:"id"`
	CustomerID string          `json:"customer_id"`
	TType      string          `json:"ttype"` // 'earn', 'redeem', 'adjust'
	Dr         decimal.Decimal `json:"dr"`
	Cr         decimal.Decimal `json:"cr"`
	TRef       string          `json:"tref"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
