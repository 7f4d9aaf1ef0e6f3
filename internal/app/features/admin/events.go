// internal/app/features/admin/events.go
package admin

import (
	"context"
	"net/http"
	"strconv"

	eventsfeature "github.com/dalemusser/volunteerhub/internal/app/features/events"
	"github.com/dalemusser/volunteerhub/internal/app/system/mailer"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/events/pending                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServePendingEvents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.events.ListPending(ctx)
	if err != nil {
		respond.ServerError(w, h.Log, "list pending events failed", err)
		return
	}
	respond.OK(w, list)
}

type transitionFunc func(ctx context.Context, eventID int64) (*models.Event, error)

// transition applies fn to {eventID} and, for review decisions, notifies
// the organizer.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op string, fn transitionFunc, notify *bool) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil || eventID <= 0 {
		respond.Error(w, http.StatusBadRequest, "invalid event id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	e, err := fn(ctx, eventID)
	if err != nil {
		eventsfeature.WriteError(w, h.Log, op, err)
		return
	}
	h.Log.Info(op, zap.Int64("event_id", eventID), zap.String("state", e.State()))

	if notify != nil {
		mailer.SendAsync(h.Mail, h.Log, mailer.BuildEventDecisionEmail(e.OrganizerEmail, mailer.EventDecisionData{
			SiteName:   h.SiteName,
			Organizer:  e.OrganizerName,
			EventTitle: e.Title,
			Approved:   *notify,
		}))
	}
	respond.OK(w, e)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /admin/events/{eventID}/approve                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleApproveEvent(w http.ResponseWriter, r *http.Request) {
	approved := true
	h.transition(w, r, "event approved", h.events.Approve, &approved)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /admin/events/{eventID}/reject                                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRejectEvent(w http.ResponseWriter, r *http.Request) {
	approved := false
	h.transition(w, r, "event rejected", h.events.Reject, &approved)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /admin/events/{eventID}/complete                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCompleteEvent(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "event completed", h.events.Complete, nil)
}
