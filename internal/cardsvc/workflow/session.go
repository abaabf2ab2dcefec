package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/models"
	"github.com/linolucci78-omnily/loyalty-services/internal/comm"
	log "github.com/sirupsen/logrus"
)

// QRCustomerPrefix is the only QR payload shape the workflow accepts:
// OMNILY_CUSTOMER:<customer id>.
const QRCustomerPrefix = "OMNILY_CUSTOMER:"

// user-facing toasts (product locale is Italian)
const (
	msgScanFailed       = "Lettura carta non riuscita"
	msgNoUid            = "Carta rilevata ma senza identificativo valido"
	msgRegistryError    = "Errore di comunicazione con il registro carte"
	msgAssignFailed     = "Assegnazione carta non riuscita, riprova"
	msgQRUnknown        = "QR code non riconosciuto"
	msgCustomerNotFound = "Cliente non trovato"
	msgDeactivated      = "Carta disattivata"
)

const (
	beepSuccess   = "success"
	beepSuccessMs = 150
	beepError     = "error"
	beepErrorMs   = 400
)

// Registry is the persistent store of card-to-customer links.
type Registry interface {
	FindByUid(ctx context.Context, orgID, uid string) (*models.Card, error)
	Create(ctx context.Context, orgID, uid, customerID string) (*models.Card, error)
	Reassign(ctx context.Context, cardID, customerID string) (*models.Card, error)
	Deactivate(ctx context.Context, cardID, orgID string) error
	ListActive(ctx context.Context, orgID string) ([]*models.Card, error)
}

// Directory is the read-only customer lookup.
type Directory interface {
	ListByOrganization(ctx context.Context, orgID string) ([]*models.Customer, error)
}

// Bridge is the terminal-side hardware surface. Every implementation
// must tolerate being asked to stop a scan it never started, and a
// session must tolerate having no bridge attached at all.
type Bridge interface {
	ReadNFCCard()
	StopNFCReading()
	ReadQRCode()
	ShowToast(message string)
	Beep(pattern string, durationMs int)
}

// Hooks are notify-only callbacks for the surrounding application.
type Hooks struct {
	OnAssignCard   func(cardID, customerID string)
	OnReassignCard func(cardID, customerID string)
	OnCardRead     func(raw []byte)
}

// ScannedCard is the transient state of the most recently read card
// while the operator decides what to do with it. Never persisted.
type ScannedCard struct {
	Uid        string
	CardID     string // empty for a uid the registry has never seen
	AssignedTo *models.Customer
	AssignedAt *time.Time
}

// pendingScan is the single-slot in-flight guard: nil means no scan is
// running, non-nil means exactly one is. Replaces the old timed busy
// flag, so there is no unlock window to race against.
type pendingScan struct {
	startedAt time.Time
}

// Session drives the card assignment workflow for one terminal.
type Session struct {
	mu sync.Mutex

	orgID       string
	mode        Mode
	pending     *pendingScan
	reassigning bool
	scanned     *ScannedCard
	selected    string // customer highlighted via QR, not yet assigned

	customers []*models.Customer
	cards     []*models.Card

	registry  Registry
	directory Directory
	bridge    Bridge
	hooks     Hooks

	log *log.Entry
}

func NewSession(orgID string, registry Registry, directory Directory, bridge Bridge, hooks Hooks) *Session {
	return &Session{
		orgID:     orgID,
		mode:      ModeRead,
		registry:  registry,
		directory: directory,
		bridge:    bridge,
		hooks:     hooks,
		log:       log.WithField("org", orgID),
	}
}

// Init loads the customer directory and the active card list.
func (s *Session) Init(ctx context.Context) error {
	customers, err := s.directory.ListByOrganization(ctx, s.orgID)
	if err != nil {
		return fmt.Errorf("failed to load customers: %w", err)
	}

	cards, err := s.registry.ListActive(ctx, s.orgID)
	if err != nil {
		return fmt.Errorf("failed to load cards: %w", err)
	}

	s.mu.Lock()
	s.customers = customers
	s.cards = cards
	s.mu.Unlock()

	return nil
}

func (s *Session) OrgID() string { return s.orgID }

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) IsReading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

func (s *Session) Scanned() *ScannedCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanned == nil {
		return nil
	}
	copied := *s.scanned
	return &copied
}

func (s *Session) Cards() []*models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cards
}

func (s *Session) Customers() []*models.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customers
}

func (s *Session) SelectedCustomer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// State snapshots the session for the terminal UI.
func (s *Session) State() comm.ScanState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := comm.ScanState{
		Mode:    s.mode.String(),
		Reading: s.pending != nil,
	}
	if s.scanned != nil {
		st.Uid = s.scanned.Uid
		st.CardId = s.scanned.CardID
		st.AssignedAt = s.scanned.AssignedAt
		if s.scanned.AssignedTo != nil {
			st.AssignedTo = s.scanned.AssignedTo.Name
		}
	}

	return st
}

// BeginScan arms the scan slot and asks the bridge to read. Pressing
// again while a scan is pending takes the cancel branch instead, so
// two concurrent scans are impossible.
func (s *Session) BeginScan() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		s.stopScanLocked()
		return
	}

	s.pending = &pendingScan{startedAt: time.Now()}
	s.mode = ModeRead
	if s.bridge != nil {
		s.bridge.ReadNFCCard()
	}
}

// BeginQRScan asks the bridge to read a QR code. The result comes back
// through HandleQR.
func (s *Session) BeginQRScan() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bridge != nil {
		s.bridge.ReadQRCode()
	}
}

func (s *Session) stopScanLocked() {
	s.pending = nil
	if s.bridge != nil {
		s.bridge.StopNFCReading()
	}
}

// HandleScanResult consumes one bridge read result. A result arriving
// after the scan was stopped finds the slot empty and is discarded.
func (s *Session) HandleScanResult(ctx context.Context, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		s.log.Debug("scan result arrived with no scan pending, discarded")
		return
	}
	s.pending = nil

	if s.hooks.OnCardRead != nil {
		s.hooks.OnCardRead(raw)
	}

	res := comm.DecodeScanResult(raw)
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = msgScanFailed
		}
		s.toast(msg)
		s.beep(beepError, beepErrorMs)
		s.mode = ModeRead
		return
	}

	uid := res.Uid()
	if uid == "" {
		// the reader saw a card but the firmware produced no
		// identifier; not retried, the operator re-initiates
		s.log.Warn("successful scan carried neither cardNo nor rfUid")
		s.toast(msgNoUid)
		s.beep(beepError, beepErrorMs)
		s.mode = ModeRead
		return
	}

	card, err := s.registry.FindByUid(ctx, s.orgID, uid)
	if err != nil {
		s.log.Errorf("Error [Registry.FindByUid] %s", err)
		s.toast(msgRegistryError)
		s.mode = ModeRead
		return
	}

	switch {
	case card != nil && card.CustomerID != nil:
		s.scanned = &ScannedCard{
			Uid:        uid,
			CardID:     card.ID,
			AssignedTo: s.customerForCardLocked(card),
			AssignedAt: card.AssignedAt,
		}
		s.mode = ModeReassignConfirm
	case card != nil:
		// active but unassigned row: keep the id so assignment
		// updates instead of creating a duplicate
		s.scanned = &ScannedCard{Uid: uid, CardID: card.ID}
		s.mode = ModeAssign
	default:
		s.scanned = &ScannedCard{Uid: uid}
		s.mode = ModeAssign
	}
	s.beep(beepSuccess, beepSuccessMs)
}

// AssignTo links the scanned card to the chosen customer: create for a
// new uid, update when the registry row already exists.
func (s *Session) AssignTo(ctx context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeAssign || s.scanned == nil {
		return fmt.Errorf("no card pending assignment")
	}

	return s.assignLocked(ctx, customerID)
}

func (s *Session) assignLocked(ctx context.Context, customerID string) error {
	wasReassign := s.reassigning

	var (
		card *models.Card
		err  error
	)
	if s.scanned.CardID == "" {
		card, err = s.registry.Create(ctx, s.orgID, s.scanned.Uid, customerID)
	} else {
		card, err = s.registry.Reassign(ctx, s.scanned.CardID, customerID)
	}
	if err != nil {
		// stay in assign mode so the operator can retry
		s.log.Errorf("Error [Registry] assigning card %s: %s", s.scanned.Uid, err)
		s.toast(msgAssignFailed)
		return err
	}

	if cards, lerr := s.registry.ListActive(ctx, s.orgID); lerr == nil {
		s.cards = cards
	} else {
		s.log.Errorf("Error [Registry.ListActive] %s", lerr)
	}

	s.scanned = nil
	s.selected = ""
	s.reassigning = false
	s.mode = ModeList

	s.toast(fmt.Sprintf("Carta assegnata a %s", card.CustomerName))
	s.beep(beepSuccess, beepSuccessMs)

	if wasReassign {
		if s.hooks.OnReassignCard != nil {
			s.hooks.OnReassignCard(card.ID, customerID)
		}
	} else if s.hooks.OnAssignCard != nil {
		s.hooks.OnAssignCard(card.ID, customerID)
	}

	return nil
}

// ConfirmReassign acknowledges the "card already assigned" prompt and
// moves on to picking the new customer. The card id is kept, so the
// eventual write is always an update.
func (s *Session) ConfirmReassign() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeReassignConfirm {
		return fmt.Errorf("no reassignment awaiting confirmation")
	}

	s.mode = ModeAssign
	s.reassigning = true
	return nil
}

// CancelReassign drops the scanned card and returns to reading.
func (s *Session) CancelReassign() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeReassignConfirm {
		return
	}

	s.scanned = nil
	s.reassigning = false
	s.mode = ModeRead
}

// Deactivate soft-deletes a card, in two steps: the first call returns
// the confirmation prompt, the confirmed call performs the write.
func (s *Session) Deactivate(ctx context.Context, cardID, uid string, confirmed bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !confirmed {
		return fmt.Sprintf("Disattivare la carta %s?", uid), nil
	}

	if err := s.registry.Deactivate(ctx, cardID, s.orgID); err != nil {
		s.log.Errorf("Error [Registry.Deactivate] %s", err)
		s.toast(msgRegistryError)
		return "", err
	}

	if cards, err := s.registry.ListActive(ctx, s.orgID); err == nil {
		s.cards = cards
	} else {
		s.log.Errorf("Error [Registry.ListActive] %s", err)
	}

	s.toast(msgDeactivated)
	return "", nil
}

// HandleQR consumes a scanned QR payload. With a card pending
// assignment the matched customer is assigned immediately; otherwise
// they are only highlighted as selected.
func (s *Session) HandleQR(ctx context.Context, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !strings.HasPrefix(payload, QRCustomerPrefix) {
		s.toast(msgQRUnknown)
		return
	}

	customer := s.findCustomerLocked(strings.TrimPrefix(payload, QRCustomerPrefix))
	if customer == nil {
		s.toast(msgCustomerNotFound)
		return
	}

	if s.scanned != nil && s.mode == ModeAssign {
		// errors already toasted inside assignLocked
		_ = s.assignLocked(ctx, customer.ID)
		return
	}

	s.selected = customer.ID
	s.toast("Cliente selezionato: " + customer.Name)
}

// OpenList switches to the card list. Leaving assignment mode destroys
// the transient scanned-card state and cancels any pending scan.
func (s *Session) OpenList(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		s.stopScanLocked()
	}
	s.scanned = nil
	s.reassigning = false

	cards, err := s.registry.ListActive(ctx, s.orgID)
	if err != nil {
		s.log.Errorf("Error [Registry.ListActive] %s", err)
		s.toast(msgRegistryError)
		return err
	}

	s.cards = cards
	s.mode = ModeList
	return nil
}

// FilterCustomers does the terminal-side substring search over the
// loaded directory: case-insensitive, on name or email.
func (s *Session) FilterCustomers(query string) []*models.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()

	if query == "" {
		return s.customers
	}

	q := strings.ToLower(query)
	var matched []*models.Customer
	for _, c := range s.customers {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Email), q) {
			matched = append(matched, c)
		}
	}

	return matched
}

// Close tears the session down, cancelling any in-flight scan so a
// late bridge callback finds nothing to land on.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		s.stopScanLocked()
	}
	s.scanned = nil
	s.reassigning = false
}

func (s *Session) findCustomerLocked(id string) *models.Customer {
	for _, c := range s.customers {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *Session) customerForCardLocked(card *models.Card) *models.Customer {
	if card.CustomerID == nil {
		return nil
	}
	if c := s.findCustomerLocked(*card.CustomerID); c != nil {
		return c
	}
	// directory may be stale; fall back to the joined columns
	return &models.Customer{
		ID:             *card.CustomerID,
		OrganizationID: card.OrganizationID,
		Name:           card.CustomerName,
		Email:          card.CustomerEmail,
	}
}

func (s *Session) toast(message string) {
	if s.bridge != nil {
		s.bridge.ShowToast(message)
	}
}

func (s *Session) beep(pattern string, durationMs int) {
	if s.bridge != nil {
		s.bridge.Beep(pattern, durationMs)
	}
}
