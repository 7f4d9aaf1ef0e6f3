// internal/app/features/events/list.go
package events

import (
	"context"
	"net/http"
	"strings"
	"time"

	eventstore "github.com/dalemusser/volunteerhub/internal/app/store/events"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /events?skill=&category=&from=YYYY-MM-DD                                |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeList returns approved events that are open for registration.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f eventstore.OpenFilter
	if s := strings.ToLower(strings.TrimSpace(q.Get("skill"))); s != "" {
		if !models.IsValidSkill(s) {
			respond.Error(w, http.StatusBadRequest, "unknown skill")
			return
		}
		f.Skill = models.Skill(s)
	}
	f.Category = strings.TrimSpace(q.Get("category"))
	if from := q.Get("from"); from != "" {
		d, err := time.Parse(dateLayout, from)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "from must be a date in YYYY-MM-DD format")
			return
		}
		f.From = d
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.events.ListOpen(ctx, f)
	if err != nil {
		respond.ServerError(w, h.Log, "list open events failed", err)
		return
	}
	respond.OK(w, list)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /events/mine                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		respond.OK(w, []models.Event{})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.events.ListByOrganizer(ctx, oid)
	if err != nil {
		respond.ServerError(w, h.Log, "list organizer events failed", err)
		return
	}
	respond.OK(w, list)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /events/registered                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRegistered(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.events.ListRegistered(ctx, u.Email)
	if err != nil {
		respond.ServerError(w, h.Log, "list registered events failed", err)
		return
	}
	respond.OK(w, list)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /events/{eventID}                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeEvent returns one event. Pending and rejected events are visible
// only to their organizer and to admins.
func (h *Handler) ServeEvent(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	e, err := h.events.Get(ctx, eventID)
	if err != nil {
		WriteError(w, h.Log, "load event", err)
		return
	}
	public := e.State() == models.EventApproved || e.State() == models.EventCompleted
	if !public && u.Type != models.TypeAdmin && e.OrganizerID.Hex() != u.ID {
		WriteError(w, h.Log, "load event", eventstore.ErrNotFound)
		return
	}
	respond.OK(w, e)
}
