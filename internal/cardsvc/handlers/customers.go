package handlers

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/linolucci78-omnily/loyalty-services/internal/cardsvc/models"
	log "github.com/sirupsen/logrus"
)

// SearchCustomers lists the organization's customers, optionally
// filtered with ?q= (case-insensitive substring on name or email).
func (h *Handler) SearchCustomers(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	query := r.URL.Query().Get("q")

	var (
		customers []*models.Customer
		err       error
	)
	if query == "" {
		customers, err = h.customers.ListByOrganization(r.Context(), orgID)
	} else {
		customers, err = h.customers.Search(r.Context(), orgID, query)
	}
	if err != nil {
		log.Errorf("Error [CustomerDirectory] %s", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "failed to search customers"})
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: customers})
}

func (h *Handler) CustomerPoints(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	balance, err := h.points.GetCustomerBalance(r.Context(), customerID)
	if err != nil {
		log.Errorf("Error [PointsReader.GetCustomerBalance] %s", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "failed to get points balance"})
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: map[string]string{
		"customer_id": customerID,
		"balance":     balance.StringFixed(2),
	}})
}
