// internal/app/features/events/register.go
package events

import (
	"context"
	"errors"
	"net/http"

	eventstore "github.com/dalemusser/volunteerhub/internal/app/store/events"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| POST /events/{eventID}/register                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if !h.requireApproved(ctx, w, models.TypeVolunteer, u.Email) {
		return
	}

	e, err := h.events.Register(ctx, eventID, u.Email)
	h.Metrics.Registration(registrationResult(err))
	if err != nil {
		WriteError(w, h.Log, "register volunteer", err)
		return
	}
	h.Log.Info("volunteer registered",
		zap.Int64("event_id", eventID),
		zap.String("email", u.Email),
		zap.Int("registered", e.VolunteersRegistered),
		zap.Int("needed", e.VolunteersNeeded))
	respond.OK(w, e)
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /events/{eventID}/register                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUnregister(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	e, err := h.events.Unregister(ctx, eventID, u.Email)
	if err != nil {
		WriteError(w, h.Log, "unregister volunteer", err)
		return
	}
	h.Metrics.Registration("withdrawn")
	respond.OK(w, e)
}

// registrationResult labels the outcome of a registration attempt.
func registrationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, eventstore.ErrEventFull):
		return "full"
	case errors.Is(err, eventstore.ErrAlreadyRegistered):
		return "duplicate"
	case errors.Is(err, eventstore.ErrEventNotApproved),
		errors.Is(err, eventstore.ErrRegistrationsClosed),
		errors.Is(err, eventstore.ErrEventCompleted):
		return "closed"
	case errors.Is(err, eventstore.ErrNotFound):
		return "not_found"
	}
	return "error"
}
