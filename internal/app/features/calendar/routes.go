// internal/app/features/calendar/routes.go
package calendar

import (
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted at /api/calendar.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// The provider redirects the browser here; the state identifies the user.
	r.Get("/callback", h.ServeCallback)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/connect", h.ServeConnect)
		pr.Delete("/connect", h.HandleDisconnect)
		pr.Post("/events/{eventID}/reminder", h.HandleReminder)
	})

	return r
}
