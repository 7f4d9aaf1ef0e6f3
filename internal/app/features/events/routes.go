// internal/app/features/events/routes.go
package events

import (
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted at /api/events.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeList)

	r.Group(func(or chi.Router) {
		or.Use(auth.RequireType(models.TypeOrganizer))
		or.Post("/", h.HandleCreate)
		or.Get("/mine", h.ServeMine)
		or.Put("/{eventID}", h.HandleUpdate)
		or.Post("/{eventID}/close", h.HandleClose)
	})

	r.Group(func(vr chi.Router) {
		vr.Use(auth.RequireType(models.TypeVolunteer))
		vr.Get("/registered", h.ServeRegistered)
		vr.Post("/{eventID}/register", h.HandleRegister)
		vr.Delete("/{eventID}/register", h.HandleUnregister)
	})

	r.Get("/{eventID}", h.ServeEvent)

	return r
}
