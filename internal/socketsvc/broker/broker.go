package broker

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/linolucci78-omnily/loyalty-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Broker consumes card-service responses off NATS and pushes each one
// down the websocket of the terminal it is addressed to.
type Broker struct {
	Conn          *nats.Conn
	GetConnection func(string) (*websocket.Conn, bool)
}

func NewBroker(conn *nats.Conn, fncGetConnection func(string) (*websocket.Conn, bool)) *Broker {
	return &Broker{
		Conn:          conn,
		GetConnection: fncGetConnection,
	}
}

// cardServiceFrames are the message types the card service may push to
// a terminal, bridge commands included.
var cardServiceFrames = map[string]bool{
	"init-response":            true,
	"scan-state":               true,
	"card-list-response":       true,
	"customer-search-response": true,
	"assign-card-response":     true,
	"deactivate-card-response": true,
	"reassign-confirm":         true,
	"deactivate-confirm":       true,
	"points-response":          true,
	"read-nfc":                 true,
	"stop-nfc":                 true,
	"read-qr":                  true,
	"show-toast":               true,
	"beep":                     true,
}

// consume message from card service as a queue group member
func (b *Broker) QueueSubscribe(topic, queueGroup string) (*nats.Subscription, error) {
	sub, err := b.Conn.QueueSubscribe(topic, queueGroup, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// consume message from card service
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// publish message to card service
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

// handleMessages receives messages from the card service
func (b *Broker) handleMessages(msgNats *nats.Msg) {
	message := &comm.WSMessage{}
	err := json.Unmarshal(msgNats.Data, &message)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	if !cardServiceFrames[message.Type] {
		log.Error("Unknown message")
		return
	}

	b.sendMessage(message)
}

// send socket message to the terminal
func (b *Broker) sendMessage(m *comm.WSMessage) {
	socketId := m.SocketId
	if conn, ok := b.GetConnection(socketId); ok {
		if err := conn.WriteJSON(m); err != nil {
			log.Println(err)
		}
	}
}
