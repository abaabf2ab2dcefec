package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrg = "org-1"

func newTestSession(t *testing.T) (*Session, *fakeRegistry, *fakeBridge) {
	t.Helper()

	registry := newFakeRegistry(map[string]string{
		"abc123": "Mario Rossi",
		"def456": "Lucia Bianchi",
	})
	directory := &fakeDirectory{customers: []*models.Customer{
		{ID: "abc123", OrganizationID: testOrg, Name: "Mario Rossi", Email: "mario@rossi.it"},
		{ID: "def456", OrganizationID: testOrg, Name: "Lucia Bianchi", Email: "lucia@bianchi.it"},
	}}
	bridge := &fakeBridge{}

	sess := NewSession(testOrg, registry, directory, bridge, Hooks{})
	require.NoError(t, sess.Init(context.Background()))

	return sess, registry, bridge
}

func scanUid(t *testing.T, sess *Session, uid string) {
	t.Helper()
	sess.BeginScan()
	sess.HandleScanResult(context.Background(), []byte(`{"success":true,"cardNo":"`+uid+`"}`))
}

func TestAssignNewUidCreatesSingleCard(t *testing.T) {
	sess, registry, _ := newTestSession(t)

	var assignedCard, assignedCustomer string
	sess.hooks.OnAssignCard = func(cardID, customerID string) {
		assignedCard, assignedCustomer = cardID, customerID
	}

	scanUid(t, sess, "04A1B2C3")
	require.Equal(t, ModeAssign, sess.Mode())

	scanned := sess.Scanned()
	require.NotNil(t, scanned)
	assert.Equal(t, "04A1B2C3", scanned.Uid)
	assert.Empty(t, scanned.CardID, "an unseen uid must carry no registry id")

	require.NoError(t, sess.AssignTo(context.Background(), "abc123"))

	cards, err := registry.ListActive(context.Background(), testOrg)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "04A1B2C3", cards[0].Uid)
	assert.Equal(t, "abc123", *cards[0].CustomerID)
	assert.NotNil(t, cards[0].AssignedAt)

	assert.Equal(t, ModeList, sess.Mode())
	assert.Nil(t, sess.Scanned(), "transient state must be cleared")
	assert.Equal(t, cards[0].ID, assignedCard)
	assert.Equal(t, "abc123", assignedCustomer)
}

func TestScanLinkedCardRoutesToReassignConfirm(t *testing.T) {
	sess, registry, _ := newTestSession(t)
	seeded := registry.seed(testOrg, "04A1B2C3", "abc123")
	before := *seeded.AssignedAt

	var reassigned bool
	sess.hooks.OnReassignCard = func(cardID, customerID string) { reassigned = true }

	scanUid(t, sess, "04A1B2C3")
	require.Equal(t, ModeReassignConfirm, sess.Mode(), "a linked uid must never go straight to assignment")

	scanned := sess.Scanned()
	require.NotNil(t, scanned)
	assert.Equal(t, seeded.ID, scanned.CardID)
	require.NotNil(t, scanned.AssignedTo)
	assert.Equal(t, "Mario Rossi", scanned.AssignedTo.Name)

	require.NoError(t, sess.ConfirmReassign())
	assert.Equal(t, ModeAssign, sess.Mode())

	require.NoError(t, sess.AssignTo(context.Background(), "def456"))

	cards, err := registry.ListActive(context.Background(), testOrg)
	require.NoError(t, err)
	require.Len(t, cards, 1, "reassignment must not create a second row for the uid")
	assert.Equal(t, seeded.ID, cards[0].ID)
	assert.Equal(t, "def456", *cards[0].CustomerID)
	assert.True(t, cards[0].AssignedAt.After(before), "assigned_at must be refreshed")
	assert.True(t, reassigned)
}

func TestScanUnassignedCardKeepsRegistryId(t *testing.T) {
	sess, registry, _ := newTestSession(t)
	seeded := registry.seed(testOrg, "04A1B2C3", "")

	scanUid(t, sess, "04A1B2C3")
	require.Equal(t, ModeAssign, sess.Mode())

	scanned := sess.Scanned()
	require.NotNil(t, scanned)
	assert.Equal(t, seeded.ID, scanned.CardID)

	require.NoError(t, sess.AssignTo(context.Background(), "abc123"))

	cards, _ := registry.ListActive(context.Background(), testOrg)
	require.Len(t, cards, 1)
	assert.Equal(t, seeded.ID, cards[0].ID)
}

func TestScanFailureStaysInRead(t *testing.T) {
	sess, _, bridge := newTestSession(t)

	sess.BeginScan()
	sess.HandleScanResult(context.Background(), []byte(`{"success":false,"error":"timeout"}`))

	assert.Equal(t, "timeout", bridge.lastToast())
	assert.Equal(t, ModeRead, sess.Mode())
	assert.False(t, sess.IsReading())
	assert.Nil(t, sess.Scanned())
}

func TestScanFailureWithoutMessageUsesDefault(t *testing.T) {
	sess, _, bridge := newTestSession(t)

	sess.BeginScan()
	sess.HandleScanResult(context.Background(), []byte(`{"success":false}`))

	assert.Equal(t, msgScanFailed, bridge.lastToast())
	assert.Equal(t, ModeRead, sess.Mode())
}

func TestStringEncodedScanPayload(t *testing.T) {
	sess, _, _ := newTestSession(t)

	sess.BeginScan()
	sess.HandleScanResult(context.Background(), []byte(`"{\"success\":true,\"cardNo\":\"04A1B2C3\"}"`))

	require.Equal(t, ModeAssign, sess.Mode())
	scanned := sess.Scanned()
	require.NotNil(t, scanned)
	assert.Equal(t, "04A1B2C3", scanned.Uid)
	assert.Empty(t, scanned.CardID)
}

func TestRfUidFallback(t *testing.T) {
	sess, _, _ := newTestSession(t)

	sess.BeginScan()
	sess.HandleScanResult(context.Background(), []byte(`{"success":true,"rfUid":"F00DBABE"}`))

	require.Equal(t, ModeAssign, sess.Mode())
	assert.Equal(t, "F00DBABE", sess.Scanned().Uid)
}

func TestScanWithoutUidIsHardwareFault(t *testing.T) {
	sess, _, bridge := newTestSession(t)

	sess.BeginScan()
	sess.HandleScanResult(context.Background(), []byte(`{"success":true}`))

	assert.Equal(t, msgNoUid, bridge.lastToast())
	assert.Equal(t, ModeRead, sess.Mode())
	assert.Nil(t, sess.Scanned())
	assert.False(t, sess.IsReading())
}

func TestBeginScanTwiceTakesCancelBranch(t *testing.T) {
	sess, _, bridge := newTestSession(t)

	sess.BeginScan()
	assert.True(t, sess.IsReading())

	sess.BeginScan()
	assert.False(t, sess.IsReading())
	assert.Equal(t, 1, bridge.reads, "second press must not start a second scan")
	assert.Equal(t, 1, bridge.stops)
}

func TestLateScanResultAfterStopIsDiscarded(t *testing.T) {
	sess, _, _ := newTestSession(t)

	sess.BeginScan()
	sess.BeginScan() // cancel

	// the bridge delivers anyway, after the stop
	sess.HandleScanResult(context.Background(), []byte(`{"success":true,"cardNo":"04A1B2C3"}`))

	assert.Equal(t, ModeRead, sess.Mode())
	assert.Nil(t, sess.Scanned())
}

func TestScanResultWithoutScanPendingIsDiscarded(t *testing.T) {
	sess, _, _ := newTestSession(t)

	sess.HandleScanResult(context.Background(), []byte(`{"success":true,"cardNo":"04A1B2C3"}`))

	assert.Equal(t, ModeRead, sess.Mode())
	assert.Nil(t, sess.Scanned())
}

func TestAssignFailureStaysInAssign(t *testing.T) {
	sess, registry, bridge := newTestSession(t)
	registry.failCreate = errors.New("db down")

	scanUid(t, sess, "04A1B2C3")
	require.Error(t, sess.AssignTo(context.Background(), "abc123"))

	assert.Equal(t, ModeAssign, sess.Mode(), "operator must be able to retry")
	assert.NotNil(t, sess.Scanned())
	assert.Equal(t, msgAssignFailed, bridge.lastToast())

	// retry succeeds once the registry recovers
	registry.failCreate = nil
	require.NoError(t, sess.AssignTo(context.Background(), "abc123"))
	assert.Equal(t, ModeList, sess.Mode())
}

func TestAssignWithoutScannedCard(t *testing.T) {
	sess, _, _ := newTestSession(t)

	assert.Error(t, sess.AssignTo(context.Background(), "abc123"))
}

func TestCancelReassignReturnsToRead(t *testing.T) {
	sess, registry, _ := newTestSession(t)
	registry.seed(testOrg, "04A1B2C3", "abc123")

	scanUid(t, sess, "04A1B2C3")
	require.Equal(t, ModeReassignConfirm, sess.Mode())

	sess.CancelReassign()
	assert.Equal(t, ModeRead, sess.Mode())
	assert.Nil(t, sess.Scanned())
}

func TestDeactivateRequiresConfirmation(t *testing.T) {
	sess, registry, _ := newTestSession(t)
	seeded := registry.seed(testOrg, "04A1B2C3", "abc123")

	prompt, err := sess.Deactivate(context.Background(), seeded.ID, seeded.Uid, false)
	require.NoError(t, err)
	assert.Contains(t, prompt, "04A1B2C3")

	cards, _ := registry.ListActive(context.Background(), testOrg)
	require.Len(t, cards, 1, "unconfirmed deactivation must not touch the registry")

	prompt, err = sess.Deactivate(context.Background(), seeded.ID, seeded.Uid, true)
	require.NoError(t, err)
	assert.Empty(t, prompt)

	cards, _ = registry.ListActive(context.Background(), testOrg)
	assert.Empty(t, cards, "deactivated card must leave the active list")
}

func TestQRAssignsImmediatelyWhenCardPending(t *testing.T) {
	sess, registry, _ := newTestSession(t)

	scanUid(t, sess, "04A1B2C3")
	require.Equal(t, ModeAssign, sess.Mode())

	sess.HandleQR(context.Background(), "OMNILY_CUSTOMER:abc123")

	cards, _ := registry.ListActive(context.Background(), testOrg)
	require.Len(t, cards, 1)
	assert.Equal(t, "abc123", *cards[0].CustomerID)
	assert.Equal(t, ModeList, sess.Mode())
}

func TestQRSelectsCustomerWithoutPendingCard(t *testing.T) {
	sess, registry, _ := newTestSession(t)

	sess.HandleQR(context.Background(), "OMNILY_CUSTOMER:def456")

	assert.Equal(t, "def456", sess.SelectedCustomer())
	cards, _ := registry.ListActive(context.Background(), testOrg)
	assert.Empty(t, cards, "selection alone must not write anything")
}

func TestQRUnknownPayloadRejected(t *testing.T) {
	sess, _, bridge := newTestSession(t)

	scanUid(t, sess, "04A1B2C3")
	modeBefore := sess.Mode()

	sess.HandleQR(context.Background(), "http://not-omnily.example")

	assert.Equal(t, "QR code non riconosciuto", bridge.lastToast())
	assert.Equal(t, modeBefore, sess.Mode())
	assert.NotNil(t, sess.Scanned())
}

func TestQRUnknownCustomerRejected(t *testing.T) {
	sess, _, bridge := newTestSession(t)

	sess.HandleQR(context.Background(), "OMNILY_CUSTOMER:nobody")

	assert.Equal(t, msgCustomerNotFound, bridge.lastToast())
	assert.Empty(t, sess.SelectedCustomer())
}

func TestOpenListDropsTransientState(t *testing.T) {
	sess, _, bridge := newTestSession(t)

	scanUid(t, sess, "04A1B2C3")
	require.NotNil(t, sess.Scanned())

	require.NoError(t, sess.OpenList(context.Background()))
	assert.Equal(t, ModeList, sess.Mode())
	assert.Nil(t, sess.Scanned())
	assert.Zero(t, bridge.stops, "no scan was pending, nothing to stop")
}

func TestCloseCancelsPendingScan(t *testing.T) {
	sess, _, bridge := newTestSession(t)

	sess.BeginScan()
	sess.Close()

	assert.Equal(t, 1, bridge.stops)
	assert.False(t, sess.IsReading())
}

func TestFilterCustomers(t *testing.T) {
	sess, _, _ := newTestSession(t)

	byName := sess.FilterCustomers("mario")
	require.Len(t, byName, 1)
	assert.Equal(t, "Mario Rossi", byName[0].Name)

	byEmail := sess.FilterCustomers("BIANCHI.IT")
	require.Len(t, byEmail, 1)
	assert.Equal(t, "Lucia Bianchi", byEmail[0].Name)

	assert.Len(t, sess.FilterCustomers(""), 2)
	assert.Empty(t, sess.FilterCustomers("nessuno"))
}

func TestSessionWithoutBridgeDoesNotPanic(t *testing.T) {
	registry := newFakeRegistry(map[string]string{"abc123": "Mario Rossi"})
	directory := &fakeDirectory{customers: []*models.Customer{
		{ID: "abc123", OrganizationID: testOrg, Name: "Mario Rossi"},
	}}

	sess := NewSession(testOrg, registry, directory, nil, Hooks{})
	require.NoError(t, sess.Init(context.Background()))

	sess.BeginScan()
	sess.HandleScanResult(context.Background(), []byte(`{"success":false,"error":"timeout"}`))
	sess.BeginQRScan()
	sess.HandleQR(context.Background(), "garbage")
	sess.Close()
}
