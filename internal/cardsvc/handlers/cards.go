package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/store"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")

	cards, err := h.cards.ListActive(r.Context(), orgID)
	if err != nil {
		log.Errorf("Error [CardRegistry.ListActive] %s", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "failed to list cards"})
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: cards})
}

// AssignCard links a uid to a customer: a fresh uid gets a new row, a
// uid already registered to the organization gets re-pointed.
func (h *Handler) AssignCard(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")

	var req struct {
		Uid        string `json:"uid"`
		CustomerId string `json:"customer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}
	if req.Uid == "" || req.CustomerId == "" {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "uid and customer_id are required"})
		return
	}

	existing, err := h.cards.FindByUid(r.Context(), orgID, req.Uid)
	if err != nil {
		log.Errorf("Error [CardRegistry.FindByUid] %s", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "failed to look up card"})
		return
	}

	if existing != nil {
		card, err := h.cards.Reassign(r.Context(), existing.ID, req.CustomerId)
		if err != nil {
			log.Errorf("Error [CardRegistry.Reassign] %s", err)
			h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "failed to reassign card"})
			return
		}
		h.CreateResponse(w, Response{Code: http.StatusOK, Message: "card reassigned", Data: card})
		return
	}

	card, err := h.cards.Create(r.Context(), orgID, req.Uid, req.CustomerId)
	if err != nil {
		if errors.Is(err, store.ErrUidTaken) {
			h.CreateResponse(w, Response{Code: http.StatusConflict, Error: err.Error()})
			return
		}
		log.Errorf("Error [CardRegistry.Create] %s", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "failed to create card"})
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusCreated, Message: "card assigned", Data: card})
}

func (h *Handler) ReassignCard(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")

	var req struct {
		CustomerId string `json:"customer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid request body"})
		return
	}
	if req.CustomerId == "" {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "customer_id is required"})
		return
	}

	card, err := h.cards.Reassign(r.Context(), cardID, req.CustomerId)
	if err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: "card not found"})
			return
		}
		log.Errorf("Error [CardRegistry.Reassign] %s", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "failed to reassign card"})
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Message: "card reassigned", Data: card})
}

func (h *Handler) DeactivateCard(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	cardID := chi.URLParam(r, "cardID")

	err := h.cards.Deactivate(r.Context(), cardID, orgID)
	if err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: "card not found"})
			return
		}
		log.Errorf("Error [CardRegistry.Deactivate] %s", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "failed to deactivate card"})
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Message: "card deactivated"})
}
