package broker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/models"
	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/service"
	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/store"
	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/workflow"
	"github.com/linolucci78-omnily/loyalty-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Broker routes terminal frames to per-socket workflow sessions and
// publishes the responses back through the socket service.
type Broker struct {
	Conn            *nats.Conn
	CardService     *service.CardService
	CustomerService *service.CustomerService
	PointsService   *service.PointsService
	ScanLog         *store.ScanLogStore // nil when Mongo is not configured

	sessions sync.Map // socketId -> *workflow.Session
}

func NewBroker(nc *nats.Conn, cardService *service.CardService,
	customerService *service.CustomerService, pointsService *service.PointsService,
	scanLog *store.ScanLogStore) *Broker {
	return &Broker{
		Conn:            nc,
		CardService:     cardService,
		CustomerService: customerService,
		PointsService:   pointsService,
		ScanLog:         scanLog,
	}
}

// handles message coming from socket service
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	msg := &comm.WSMessage{}
	err := json.Unmarshal(msgNat.Data, &msg)
	if err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch msg.Type {
	case "init":
		init := comm.TerminalInit{}
		if err := json.Unmarshal(msg.Data, &init); err != nil {
			log.Errorf("Error decoding init: %s", err)
			return
		}
		if init.OrganizationId == "" {
			log.Error("Invalid init payload: missing organization_id")
			return
		}

		sess := workflow.NewSession(
			init.OrganizationId,
			b.CardService,
			b.CustomerService,
			newNatsBridge(b.Conn, msg.SocketId),
			b.hooksFor(init.OrganizationId, msg.SocketId),
		)
		if err := sess.Init(ctx); err != nil {
			log.Errorf("Error [Session.Init] %s", err)
			b.PublishToast("Inizializzazione terminale non riuscita", msg.SocketId)
			return
		}

		b.sessions.Store(msg.SocketId, sess)
		b.PublishInitResponse(comm.CardSnapshot{
			OrganizationId: init.OrganizationId,
			Cards:          sess.Cards(),
			Customers:      sess.Customers(),
		}, msg.SocketId)

	case "begin-scan":
		sess, ok := b.getSession(msg.SocketId)
		if !ok {
			return
		}
		sess.BeginScan()
		b.PublishScanState(sess.State(), msg.SocketId)

	case "begin-qr-scan":
		sess, ok := b.getSession(msg.SocketId)
		if !ok {
			return
		}
		sess.BeginQRScan()

	case "nfc-scan-result":
		sess, ok := b.getSession(msg.SocketId)
		if !ok {
			return
		}
		sess.HandleScanResult(ctx, msg.Data)
		b.recordScan(ctx, sess, msg)
		b.publishSession(sess, msg.SocketId)

	case "qr-scan-result":
		sess, ok := b.getSession(msg.SocketId)
		if !ok {
			return
		}
		qr := comm.QRPayload{}
		if err := json.Unmarshal(msg.Data, &qr); err != nil {
			log.Errorf("Error decoding qr payload: %s", err)
			return
		}
		sess.HandleQR(ctx, qr.Payload)
		b.publishSession(sess, msg.SocketId)

	case "assign-card":
		sess, ok := b.getSession(msg.SocketId)
		if !ok {
			return
		}
		req := comm.AssignRequest{}
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			log.Errorf("Error decoding assign request: %s", err)
			return
		}
		err := sess.AssignTo(ctx, req.CustomerId)
		b.PublishRes("assign-card-response", resFromErr(err), msg.SocketId)
		b.publishSession(sess, msg.SocketId)

	case "confirm-reassign":
		sess, ok := b.getSession(msg.SocketId)
		if !ok {
			return
		}
		if err := sess.ConfirmReassign(); err != nil {
			log.Errorf("Error [Session.ConfirmReassign] %s", err)
		}
		b.publishSession(sess, msg.SocketId)

	case "cancel-reassign":
		sess, ok := b.getSession(msg.SocketId)
		if !ok {
			return
		}
		sess.CancelReassign()
		b.publishSession(sess, msg.SocketId)

	case "deactivate-card":
		sess, ok := b.getSession(msg.SocketId)
		if !ok {
			return
		}
		req := comm.DeactivateRequest{}
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			log.Errorf("Error decoding deactivate request: %s", err)
			return
		}

		prompt, err := sess.Deactivate(ctx, req.CardId, req.Uid, req.Confirmed)
		if prompt != "" {
			b.PublishDeactivateConfirm(comm.DeactivateConfirm{
				CardId: req.CardId,
				Uid:    req.Uid,
				Prompt: prompt,
			}, msg.SocketId)
			return
		}
		b.PublishRes("deactivate-card-response", resFromErr(err), msg.SocketId)
		b.publishSession(sess, msg.SocketId)

	case "search-customers":
		sess, ok := b.getSession(msg.SocketId)
		if !ok {
			return
		}
		search := comm.CustomerSearch{}
		if err := json.Unmarshal(msg.Data, &search); err != nil {
			log.Errorf("Error decoding customer search: %s", err)
			return
		}
		b.PublishCustomerSearch(sess.FilterCustomers(search.Query), msg.SocketId)

	case "list-cards":
		sess, ok := b.getSession(msg.SocketId)
		if !ok {
			return
		}
		if err := sess.OpenList(ctx); err != nil {
			return
		}
		b.publishSession(sess, msg.SocketId)

	case "get-points":
		var request struct {
			CustomerId string `json:"customer_id"`
		}
		if err := json.Unmarshal(msg.Data, &request); err != nil {
			log.Errorf("Error %s", err)
			return
		}

		balance, err := b.PointsService.GetCustomerBalance(ctx, request.CustomerId)
		if err != nil {
			log.Errorf("Error [PointsService.GetCustomerBalance] %s", err)
			return
		}

		b.PublishPoints(comm.PointsData{
			CustomerId: request.CustomerId,
			Balance:    balance.StringFixed(2),
		}, msg.SocketId)

	case "terminal-closed":
		if sess, ok := b.getSession(msg.SocketId); ok {
			sess.Close()
		}
		b.sessions.Delete(msg.SocketId)
		log.Infof("terminal session closed: %s", msg.SocketId)

	default:
		log.Error("Unknown message")
		return
	}
}

func (b *Broker) getSession(socketId string) (*workflow.Session, bool) {
	v, ok := b.sessions.Load(socketId)
	if !ok {
		log.Errorf("no session for socket %s", socketId)
		b.PublishToast("Sessione non inizializzata", socketId)
		return nil, false
	}
	return v.(*workflow.Session), true
}

// hooksFor wires the session's notify callbacks into the scan log.
func (b *Broker) hooksFor(orgID, socketId string) workflow.Hooks {
	return workflow.Hooks{
		OnAssignCard: func(cardID, customerID string) {
			log.Infof("card %s assigned to customer %s (org %s)", cardID, customerID, orgID)
			b.logScanEvent(orgID, socketId, "", "assigned", "card "+cardID)
		},
		OnReassignCard: func(cardID, customerID string) {
			log.Infof("card %s reassigned to customer %s (org %s)", cardID, customerID, orgID)
			b.logScanEvent(orgID, socketId, "", "reassigned", "card "+cardID)
		},
	}
}

// recordScan writes the diagnostic trail entry for one scan attempt.
func (b *Broker) recordScan(ctx context.Context, sess *workflow.Session, msg *comm.WSMessage) {
	if b.ScanLog == nil {
		return
	}

	res := comm.DecodeScanResult(msg.Data)
	outcome := "failed"
	if res.Success {
		outcome = sess.Mode().String()
	}

	ev := models.ScanEvent{
		OrganizationID: sess.OrgID(),
		SocketId:       msg.SocketId,
		Uid:            res.Uid(),
		Outcome:        outcome,
		Message:        res.Error,
	}
	if err := b.ScanLog.Record(ctx, ev); err != nil {
		log.Errorf("Error [ScanLog.Record] %s", err)
	}
}

func (b *Broker) logScanEvent(orgID, socketId, uid, outcome, message string) {
	if b.ScanLog == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev := models.ScanEvent{
		OrganizationID: orgID,
		SocketId:       socketId,
		Uid:            uid,
		Outcome:        outcome,
		Message:        message,
	}
	if err := b.ScanLog.Record(ctx, ev); err != nil {
		log.Errorf("Error [ScanLog.Record] %s", err)
	}
}

// publishSession pushes the session snapshot, and the refreshed card
// list whenever the workflow just landed on it.
func (b *Broker) publishSession(sess *workflow.Session, socketId string) {
	state := sess.State()

	if state.Mode == workflow.ModeReassignConfirm.String() {
		b.publishToTerminal("reassign-confirm", state, socketId)
	}
	b.PublishScanState(state, socketId)

	if state.Mode == workflow.ModeList.String() {
		b.PublishCardList(sess.Cards(), socketId)
	}
}

func (b *Broker) PublishInitResponse(snapshot comm.CardSnapshot, socketId string) {
	b.publishToTerminal("init-response", snapshot, socketId)
}

func (b *Broker) PublishScanState(state comm.ScanState, socketId string) {
	b.publishToTerminal("scan-state", state, socketId)
}

func (b *Broker) PublishCardList(cards []*models.Card, socketId string) {
	b.publishToTerminal("card-list-response", cards, socketId)
}

func (b *Broker) PublishCustomerSearch(customers []*models.Customer, socketId string) {
	b.publishToTerminal("customer-search-response", customers, socketId)
}

func (b *Broker) PublishDeactivateConfirm(confirm comm.DeactivateConfirm, socketId string) {
	b.publishToTerminal("deactivate-confirm", confirm, socketId)
}

func (b *Broker) PublishPoints(p comm.PointsData, socketId string) {
	b.publishToTerminal("points-response", p, socketId)
}

func (b *Broker) PublishRes(msgType string, r comm.Res, socketId string) {
	b.publishToTerminal(msgType, r, socketId)
}

func (b *Broker) PublishToast(message string, socketId string) {
	b.publishToTerminal("show-toast", comm.Toast{Message: message}, socketId)
}

func (b *Broker) publishToTerminal(msgType string, payload interface{}, socketId string) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("unable to marshal %s payload: %s", msgType, err)
		return
	}

	msg := &comm.WSMessage{
		Type:     msgType,
		Data:     data,
		SocketId: socketId,
	}

	out, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	b.Publish(terminalTopic, out)
}

func resFromErr(err error) comm.Res {
	if err != nil {
		return comm.Res{Status: false, Error: err.Error()}
	}
	return comm.Res{Status: true}
}

// consume message from socket service
func (b *Broker) SubscribSocketService(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// consume message from socket service as a queue group member
func (b *Broker) QueueSubscribSocketService(topic, queueGroup string) (*nats.Subscription, error) {
	sub, err := b.Conn.QueueSubscribe(topic, queueGroup, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}
