package service

import (
	"context"

	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/models"
	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/store"
)

// CardService is the card registry the assignment workflow runs against.
type CardService struct {
	store *store.CardStore
}

func NewCardService(store *store.CardStore) *CardService {
	return &CardService{store: store}
}

func (s *CardService) FindByUid(ctx context.Context, orgID, uid string) (*models.Card, error) {
	return s.store.FindByUid(ctx, orgID, uid)
}

func (s *CardService) Create(ctx context.Context, orgID, uid, customerID string) (*models.Card, error) {
	return s.store.Create(ctx, orgID, uid, customerID)
}

func (s *CardService) Reassign(ctx context.Context, cardID, customerID string) (*models.Card, error) {
	return s.store.Reassign(ctx, cardID, customerID)
}

func (s *CardService) Deactivate(ctx context.Context, cardID, orgID string) error {
	return s.store.Deactivate(ctx, cardID, orgID)
}

func (s *CardService) ListActive(ctx context.Context, orgID string) ([]*models.Card, error) {
	return s.store.ListActive(ctx, orgID)
}
