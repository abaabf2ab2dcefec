package service

import (
	"context"

	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/store"
	"github.com/shopspring/decimal"
)

type PointsService struct {
	pointsStore *store.PointsStore
}

func NewPointsService(store *store.PointsStore) *PointsService {
	return &PointsService{pointsStore: store}
}

func (s *PointsService) GetCustomerBalance(ctx context.Context, customerID string) (decimal.Decimal, error) {
	return s.pointsStore.GetBalanceByCustomerID(ctx, customerID)
}
