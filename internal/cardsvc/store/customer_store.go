package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CustomerStore struct {
	db *pgxpool.Pool
}

func NewCustomerStore(db *pgxpool.Pool) *CustomerStore {
	return &CustomerStore{db: db}
}

const customerColumns = `id, organization_id, name, email, points, created_at, updated_at`

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	c := &models.Customer{}
	err := row.Scan(
		&c.ID,
		&c.OrganizationID,
		&c.Name,
		&c.Email,
		&c.Points,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CustomerStore) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE id = $1
	`, id)

	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return c, nil
}

func (s *CustomerStore) ListByOrganization(ctx context.Context, orgID string) ([]*models.Customer, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE organization_id = $1
		ORDER BY name
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectCustomers(rows)
}

// Search does a case-insensitive substring match on name or email.
func (s *CustomerStore) Search(ctx context.Context, orgID, query string) ([]*models.Customer, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE organization_id = $1
		  AND (name ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')
		ORDER BY name
	`, orgID, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectCustomers(rows)
}

func collectCustomers(rows pgx.Rows) ([]*models.Customer, error) {
	var customers []*models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}

	return customers, nil
}
