package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/models"
)

// fakeRegistry is an in-memory Registry with optional injected
// failures.
type fakeRegistry struct {
	mu     sync.Mutex
	nextID int
	cards  map[string]*models.Card // by card id
	names  map[string]string       // customer id -> name

	failCreate   error
	failReassign error
}

func newFakeRegistry(names map[string]string) *fakeRegistry {
	return &fakeRegistry{
		cards: make(map[string]*models.Card),
		names: names,
	}
}

func (r *fakeRegistry) seed(orgID, uid, customerID string) *models.Card {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	card := &models.Card{
		ID:             fmt.Sprintf("card-%d", r.nextID),
		OrganizationID: orgID,
		Uid:            uid,
		IsActive:       true,
		CreatedAt:      time.Now(),
	}
	if customerID != "" {
		cid := customerID
		at := time.Now().Add(-time.Hour)
		card.CustomerID = &cid
		card.CustomerName = r.names[cid]
		card.AssignedAt = &at
	}
	r.cards[card.ID] = card
	return card
}

func (r *fakeRegistry) activeByUid(orgID, uid string) *models.Card {
	for _, c := range r.cards {
		if c.OrganizationID == orgID && c.Uid == uid && c.IsActive {
			return c
		}
	}
	return nil
}

func (r *fakeRegistry) FindByUid(ctx context.Context, orgID, uid string) (*models.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c := r.activeByUid(orgID, uid); c != nil {
		copied := *c
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeRegistry) Create(ctx context.Context, orgID, uid, customerID string) (*models.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failCreate != nil {
		return nil, r.failCreate
	}
	if r.activeByUid(orgID, uid) != nil {
		return nil, fmt.Errorf("uid %s already active", uid)
	}

	r.nextID++
	now := time.Now()
	cid := customerID
	card := &models.Card{
		ID:             fmt.Sprintf("card-%d", r.nextID),
		OrganizationID: orgID,
		Uid:            uid,
		CustomerID:     &cid,
		CustomerName:   r.names[customerID],
		AssignedAt:     &now,
		IsActive:       true,
		CreatedAt:      now,
	}
	r.cards[card.ID] = card

	copied := *card
	return &copied, nil
}

func (r *fakeRegistry) Reassign(ctx context.Context, cardID, customerID string) (*models.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failReassign != nil {
		return nil, r.failReassign
	}

	card, ok := r.cards[cardID]
	if !ok || !card.IsActive {
		return nil, fmt.Errorf("card %s not found", cardID)
	}

	now := time.Now()
	cid := customerID
	card.CustomerID = &cid
	card.CustomerName = r.names[customerID]
	card.AssignedAt = &now

	copied := *card
	return &copied, nil
}

func (r *fakeRegistry) Deactivate(ctx context.Context, cardID, orgID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	card, ok := r.cards[cardID]
	if !ok || card.OrganizationID != orgID || !card.IsActive {
		return fmt.Errorf("card %s not found", cardID)
	}

	card.IsActive = false
	return nil
}

func (r *fakeRegistry) ListActive(ctx context.Context, orgID string) ([]*models.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var cards []*models.Card
	for _, c := range r.cards {
		if c.OrganizationID == orgID && c.IsActive {
			copied := *c
			cards = append(cards, &copied)
		}
	}
	return cards, nil
}

type fakeDirectory struct {
	customers []*models.Customer
}

func (d *fakeDirectory) ListByOrganization(ctx context.Context, orgID string) ([]*models.Customer, error) {
	return d.customers, nil
}

// fakeBridge records every hardware command.
type fakeBridge struct {
	mu     sync.Mutex
	reads  int
	stops  int
	qrs    int
	toasts []string
	beeps  []string
}

func (b *fakeBridge) ReadNFCCard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reads++
}

func (b *fakeBridge) StopNFCReading() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops++
}

func (b *fakeBridge) ReadQRCode() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.qrs++
}

func (b *fakeBridge) ShowToast(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toasts = append(b.toasts, message)
}

func (b *fakeBridge) Beep(pattern string, durationMs int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.beeps = append(b.beeps, pattern)
}

func (b *fakeBridge) lastToast() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.toasts) == 0 {
		return ""
	}
	return b.toasts[len(b.toasts)-1]
}
