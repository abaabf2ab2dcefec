package broker

import (
	"encoding/json"

	"github.com/linolucci78-omnily/loyalty-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// terminalTopic carries frames for the socket service to push down to
// terminals.
const terminalTopic = "card.service"

// natsBridge is the workflow.Bridge for one terminal: every hardware
// command becomes a WSMessage the POS runtime executes on arrival.
// Publishes are fire-and-forget, matching the bridge's contract of
// best-effort feedback.
type natsBridge struct {
	conn     *nats.Conn
	socketId string
}

func newNatsBridge(conn *nats.Conn, socketId string) *natsBridge {
	return &natsBridge{conn: conn, socketId: socketId}
}

func (b *natsBridge) publish(msgType string, payload interface{}) {
	var data json.RawMessage
	if payload != nil {
		d, err := json.Marshal(payload)
		if err != nil {
			log.Errorf("bridge: unable to marshal %s payload: %s", msgType, err)
			return
		}
		data = d
	}

	msg := &comm.WSMessage{
		Type:     msgType,
		Data:     data,
		SocketId: b.socketId,
	}

	out, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	if err := b.conn.Publish(terminalTopic, out); err != nil {
		log.Errorf("Error publishing to topic %s: %s", terminalTopic, err)
	}
}

func (b *natsBridge) ReadNFCCard() {
	b.publish("read-nfc", nil)
}

func (b *natsBridge) StopNFCReading() {
	b.publish("stop-nfc", nil)
}

func (b *natsBridge) ReadQRCode() {
	b.publish("read-qr", nil)
}

func (b *natsBridge) ShowToast(message string) {
	b.publish("show-toast", comm.Toast{Message: message})
}

func (b *natsBridge) Beep(pattern string, durationMs int) {
	b.publish("beep", comm.Beep{Pattern: pattern, Duration: durationMs})
}
