package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// CardRegistry is what the HTTP surface needs from the card service.
type CardRegistry interface {
	FindByUid(ctx context.Context, orgID, uid string) (*models.Card, error)
	Create(ctx context.Context, orgID, uid, customerID string) (*models.Card, error)
	Reassign(ctx context.Context, cardID, customerID string) (*models.Card, error)
	Deactivate(ctx context.Context, cardID, orgID string) error
	ListActive(ctx context.Context, orgID string) ([]*models.Card, error)
}

type CustomerDirectory interface {
	ListByOrganization(ctx context.Context, orgID string) ([]*models.Customer, error)
	Search(ctx context.Context, orgID, query string) ([]*models.Customer, error)
}

type PointsReader interface {
	GetCustomerBalance(ctx context.Context, customerID string) (decimal.Decimal, error)
}

type Handler struct {
	tokenAuth *jwtauth.JWTAuth

	cards     CardRegistry
	customers CustomerDirectory
	points    PointsReader
}

func NewHandler(cards CardRegistry, customers CustomerDirectory, points PointsReader) *Handler {
	return &Handler{
		cards:     cards,
		customers: customers,
		points:    points,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	rsp := Response{
		Message: "card service is running at port " + os.Getenv("CARD_SERVICE_PORT"),
		Code:    200,
		Data:    nil,
	}
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode health response: %v", err)
	}
}

func (h *Handler) InitAuth() {
	var jwtKey = os.Getenv("JWT_SECRET_KEY")
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)

	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()

	_, tokenString, _ := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": 8003022,
		"exp":        expirationTime,
	})

	// For debugging only, comment it out in production
	log.Infof("DEBUG: JWT for testing expires soon : %s", tokenString)
}
