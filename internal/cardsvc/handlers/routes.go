package handlers

import (
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		// public routes here

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/health", h.HealthHandler)

			r.Get("/orgs/{orgID}/cards", h.ListCards)
			r.Post("/orgs/{orgID}/cards/assign", h.AssignCard)
			r.Delete("/orgs/{orgID}/cards/{cardID}", h.DeactivateCard)
			r.Post("/cards/{cardID}/reassign", h.ReassignCard)

			r.Get("/orgs/{orgID}/customers", h.SearchCustomers)
			r.Get("/customers/{customerID}/points", h.CustomerPoints)
		})
	})
}
