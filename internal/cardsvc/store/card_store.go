package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrUidTaken means another active card in the same organization
	// already holds this uid (unique_active_org_uid partial index).
	ErrUidTaken = errors.New("uid already held by an active card")

	ErrCardNotFound = errors.New("card not found")
)

type CardStore struct {
	db *pgxpool.Pool
}

func NewCardStore(db *pgxpool.Pool) *CardStore {
	return &CardStore{db: db}
}

const cardColumns = `
	c.id, c.organization_id, c.uid, c.customer_id,
	COALESCE(cu.name, ''), COALESCE(cu.email, ''),
	c.assigned_at, c.is_active, c.created_at, c.updated_at
`

func scanCard(row pgx.Row) (*models.Card, error) {
	var card models.Card
	err := row.Scan(
		&card.ID,
		&card.OrganizationID,
		&card.Uid,
		&card.CustomerID,
		&card.CustomerName,
		&card.CustomerEmail,
		&card.AssignedAt,
		&card.IsActive,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// FindByUid returns the active card holding uid in this organization,
// or nil when no such card is registered.
func (s *CardStore) FindByUid(ctx context.Context, orgID, uid string) (*models.Card, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM cards c
		LEFT JOIN customers cu ON cu.id = c.customer_id
		WHERE c.organization_id = $1 AND c.uid = $2 AND c.is_active
		LIMIT 1
	`

	card, err := scanCard(s.db.QueryRow(ctx, query, orgID, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get card by uid: %w", err)
	}

	return card, nil
}

// Create registers a previously unseen uid and links it to a customer
// in one insert. assigned_at is set to now() by the statement.
func (s *CardStore) Create(ctx context.Context, orgID, uid, customerID string) (*models.Card, error) {
	if uid == "" {
		return nil, fmt.Errorf("uid cannot be empty")
	}
	if customerID == "" {
		return nil, fmt.Errorf("customer ID cannot be empty")
	}

	const query = `
WITH inserted AS (
  INSERT INTO cards (organization_id, uid, customer_id, assigned_at, is_active)
  VALUES ($1, $2, $3, now(), true)
  RETURNING *
)
SELECT ` + cardColumns + `
FROM inserted c
LEFT JOIN customers cu ON cu.id = c.customer_id;
`

	card, err := scanCard(s.db.QueryRow(ctx, query, orgID, uid, customerID))
	if err != nil {
		// unique constraint violation: uid already active in this org
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return nil, fmt.Errorf("card %s: %w", uid, ErrUidTaken)
			case "23503":
				// foreign key violation (unknown org or customer)
				return nil, fmt.Errorf("invalid reference: %s", pgErr.Message)
			}
		}
		return nil, fmt.Errorf("failed to create card: %w", err)
	}

	return card, nil
}

// Reassign points an existing card at a different customer and
// refreshes assigned_at. It never creates a second row for the uid.
func (s *CardStore) Reassign(ctx context.Context, cardID, customerID string) (*models.Card, error) {
	const query = `
WITH updated AS (
  UPDATE cards
  SET customer_id = $2, assigned_at = now(), updated_at = now()
  WHERE id = $1 AND is_active
  RETURNING *
)
SELECT ` + cardColumns + `
FROM updated c
LEFT JOIN customers cu ON cu.id = c.customer_id;
`

	card, err := scanCard(s.db.QueryRow(ctx, query, cardID, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("card %s: %w", cardID, ErrCardNotFound)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, fmt.Errorf("invalid reference: %s", pgErr.Message)
		}
		return nil, fmt.Errorf("failed to reassign card: %w", err)
	}

	return card, nil
}

// Deactivate soft-deletes a card scoped by organization. The customer
// row and its points ledger are untouched.
func (s *CardStore) Deactivate(ctx context.Context, cardID, orgID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE cards
		SET is_active = false, updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND is_active
	`, cardID, orgID)
	if err != nil {
		return fmt.Errorf("failed to deactivate card: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("card %s: %w", cardID, ErrCardNotFound)
	}

	return nil
}

// ListActive returns the organization's active cards, most recently
// assigned first.
func (s *CardStore) ListActive(ctx context.Context, orgID string) ([]*models.Card, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM cards c
		LEFT JOIN customers cu ON cu.id = c.customer_id
		WHERE c.organization_id = $1 AND c.is_active
		ORDER BY c.assigned_at DESC NULLS LAST, c.created_at DESC
	`

	rows, err := s.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}

	return cards, nil
}
