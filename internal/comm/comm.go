package comm

import (
	"encoding/json"
	"time"

	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/models"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "init", "nfc-scan-result"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

// TerminalInit is the first frame a POS terminal sends after connecting.
type TerminalInit struct {
	OrganizationId string `json:"organization_id"`
	TerminalName   string `json:"terminal_name,omitempty"`
}

// CardSnapshot is the init/list response: active cards plus the
// organization's customer directory the terminal filters locally.
type CardSnapshot struct {
	OrganizationId string             `json:"organization_id"`
	Cards          []*models.Card     `json:"cards"`
	Customers      []*models.Customer `json:"customers"`
}

// ScanState mirrors the workflow session back to the terminal UI.
type ScanState struct {
	Mode       string     `json:"mode"` // read, list, assign, reassign-confirm
	Reading    bool       `json:"reading"`
	Uid        string     `json:"uid,omitempty"`
	CardId     string     `json:"card_id,omitempty"`
	AssignedTo string     `json:"assigned_to,omitempty"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`
}

type Toast struct {
	Message string `json:"message"`
}

type Beep struct {
	Pattern  string `json:"pattern"`
	Duration int    `json:"duration_ms"`
}

type AssignRequest struct {
	CustomerId string `json:"customer_id"`
}

type DeactivateRequest struct {
	CardId    string `json:"card_id"`
	Uid       string `json:"uid"`
	Confirmed bool   `json:"confirmed"`
}

type DeactivateConfirm struct {
	CardId string `json:"card_id"`
	Uid    string `json:"uid"`
	Prompt string `json:"prompt"`
}

type CustomerSearch struct {
	Query string `json:"query"`
}

type QRPayload struct {
	Payload string `json:"payload"`
}

type PointsData struct {
	CustomerId string `json:"customer_id"`
	Balance    string `json:"balance"`
}

type Res struct {
	Status bool   `json:"status"`
	Error  string `json:"error,omitempty"`
}
