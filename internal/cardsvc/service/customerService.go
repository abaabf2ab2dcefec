package service

import (
	"context"

	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/models"
	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/store"
)

// CustomerService struct represents the customer read side
type CustomerService struct {
	customerStore *store.CustomerStore
}

func NewCustomerService(customerStore *store.CustomerStore) *CustomerService {
	return &CustomerService{
		customerStore: customerStore,
	}
}

func (s *CustomerService) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	return s.customerStore.GetByID(ctx, id)
}

func (s *CustomerService) ListByOrganization(ctx context.Context, orgID string) ([]*models.Customer, error) {
	return s.customerStore.ListByOrganization(ctx, orgID)
}

func (s *CustomerService) Search(ctx context.Context, orgID, query string) ([]*models.Customer, error) {
	return s.customerStore.Search(ctx, orgID, query)
}
