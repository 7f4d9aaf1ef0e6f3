// internal/app/features/admin/routes.go
package admin

import (
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted at /api/admin.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireType(models.TypeAdmin))

	r.Get("/users/pending", h.ServePendingUsers)
	r.Post("/users/{type}/{id}/approve", h.HandleApproveUser)
	r.Post("/users/{type}/{id}/reject", h.HandleRejectUser)

	r.Get("/events/pending", h.ServePendingEvents)
	r.Post("/events/{eventID}/approve", h.HandleApproveEvent)
	r.Post("/events/{eventID}/reject", h.HandleRejectEvent)
	r.Post("/events/{eventID}/complete", h.HandleCompleteEvent)

	return r
}
