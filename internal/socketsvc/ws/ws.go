package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/linolucci78-omnily/loyalty-services/internal/comm"
	"github.com/linolucci78-omnily/loyalty-services/internal/socketsvc/broker"
	log "github.com/sirupsen/logrus"
)

// Ws tracks connected POS terminals by socket id and shuttles frames
// between them and the card service over NATS.
type Ws struct {
	connMap sync.Map // socketId -> *websocket.Conn
	Broker  *broker.Broker
}

func NewWs() *Ws {
	return &Ws{}
}

// terminalFrames are the message types a terminal may send upstream.
// Everything else is dropped with a warning.
var terminalFrames = map[string]bool{
	"begin-scan":       true,
	"begin-qr-scan":    true,
	"nfc-scan-result":  true,
	"qr-scan-result":   true,
	"assign-card":      true,
	"confirm-reassign": true,
	"cancel-reassign":  true,
	"deactivate-card":  true,
	"search-customers": true,
	"list-cards":       true,
	"get-points":       true,
}

// handle socket message from POS terminals
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch {
	case message.Type == "init":
		s.handleInit(socketId, message)
	case terminalFrames[message.Type]:
		s.forward(socketId, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

func (s *Ws) handleInit(socketId string, msg *comm.WSMessage) {
	init := comm.TerminalInit{}
	if err := json.Unmarshal(msg.Data, &init); err != nil {
		log.Errorf("Error: invalid_init_data Malformed init payload %s", err)
		return
	}

	// a terminal must name its organization before anything else
	if init.OrganizationId == "" {
		log.Error("Invalid init payload: missing organization_id")
		return
	}

	s.forward(socketId, msg)
	log.Infof("Published init message for org %s to card service", init.OrganizationId)
}

func (s *Ws) forward(socketId string, msg *comm.WSMessage) {
	msg.SocketId = socketId

	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return
	}

	topic := "socket.service"
	if err := s.Broker.Publish(topic, bytes); err != nil {
		log.Errorf("Failed to publish to NATS topic %s: %v", topic, err)
	}
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

// HandleDisconnect drops the connection entry and tells the card
// service to tear the session down, cancelling any scan in flight.
func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	s.forward(socketId, &comm.WSMessage{Type: "terminal-closed"})
}
