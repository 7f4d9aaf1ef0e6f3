// internal/app/features/events/manage.go
package events

import (
	"context"
	"net/http"
	"time"

	eventstore "github.com/dalemusser/volunteerhub/internal/app/store/events"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/inputval"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/dalemusser/volunteerhub/internal/app/system/sanitize"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type eventInput struct {
	Title            string   `json:"title" validate:"required,max=200" label:"Title"`
	Description      string   `json:"description" validate:"max=5000" label:"Description"`
	Location         string   `json:"location" validate:"required,max=300" label:"Location"`
	Category         string   `json:"category" validate:"max=60" label:"Category"`
	Date             string   `json:"date" validate:"required,datetime=2006-01-02" label:"Date"`
	StartTime        string   `json:"startTime" validate:"omitempty,clock" label:"Start time"`
	EndTime          string   `json:"endTime" validate:"omitempty,clock" label:"End time"`
	RequiredSkills   []string `json:"requiredSkills" validate:"max=12,dive,skill" label:"Required skills"`
	VolunteersNeeded int      `json:"volunteersNeeded" validate:"required,min=1,max=10000" label:"Volunteers needed"`
}

// parsed is an eventInput after sanitizing and parsing.
type parsed struct {
	eventstore.Update
}

// decodeEvent reads, sanitizes, and validates an event body, writing 400
// on failure.
func decodeEvent(w http.ResponseWriter, r *http.Request) (parsed, bool) {
	var in eventInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return parsed{}, false
	}
	in.Title = sanitize.PlainText(in.Title)
	in.Description = sanitize.PlainText(in.Description)
	in.Location = sanitize.PlainText(in.Location)
	in.Category = sanitize.PlainText(in.Category)
	if res := inputval.Validate(in); res.HasErrors() {
		respond.Error(w, http.StatusBadRequest, res.First())
		return parsed{}, false
	}
	skills, err := models.ParseSkills(in.RequiredSkills)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return parsed{}, false
	}
	date, _ := time.Parse(dateLayout, in.Date)
	if in.StartTime != "" && in.EndTime != "" && in.EndTime <= in.StartTime {
		respond.Error(w, http.StatusBadRequest, "End time must be after start time.")
		return parsed{}, false
	}
	return parsed{eventstore.Update{
		Title:            in.Title,
		Description:      in.Description,
		Location:         in.Location,
		Category:         in.Category,
		Date:             date,
		StartTime:        in.StartTime,
		EndTime:          in.EndTime,
		RequiredSkills:   skills,
		VolunteersNeeded: in.VolunteersNeeded,
	}}, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /events                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleCreate submits a new event for admin review.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	p, ok := decodeEvent(w, r)
	if !ok {
		return
	}
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if !h.requireApproved(ctx, w, models.TypeOrganizer, u.Email) {
		return
	}
	org, err := h.profiles.GetOrganizer(ctx, u.Email)
	if err != nil {
		respond.ServerError(w, h.Log, "load organizer failed", err, zap.String("email", u.Email))
		return
	}

	e, err := h.events.Create(ctx, models.Event{
		OrganizerID:      oid,
		OrganizerEmail:   u.Email,
		OrganizerName:    org.Name,
		Title:            p.Title,
		Description:      p.Description,
		Location:         p.Location,
		Category:         p.Category,
		Date:             p.Date,
		StartTime:        p.StartTime,
		EndTime:          p.EndTime,
		RequiredSkills:   p.RequiredSkills,
		VolunteersNeeded: p.VolunteersNeeded,
	})
	if err != nil {
		respond.ServerError(w, h.Log, "create event failed", err, zap.String("organizer", u.Email))
		return
	}
	h.Log.Info("event created", zap.Int64("event_id", e.EventID), zap.String("organizer", u.Email))
	respond.Created(w, e)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /events/{eventID}                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleUpdate edits an event the caller owns and sends it back to review.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	p, ok := decodeEvent(w, r)
	if !ok {
		return
	}
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		respond.Error(w, http.StatusForbidden, eventstore.ErrNotOwner.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	e, err := h.events.Update(ctx, eventID, oid, p.Update)
	if err != nil {
		WriteError(w, h.Log, "update event", err)
		return
	}
	respond.OK(w, e)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /events/{eventID}/close                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleClose stops registrations; the event returns to admin review.
func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	cur, err := h.events.Get(ctx, eventID)
	if err != nil {
		WriteError(w, h.Log, "load event", err)
		return
	}
	if cur.OrganizerID.Hex() != u.ID {
		WriteError(w, h.Log, "close event", eventstore.ErrNotOwner)
		return
	}
	e, err := h.events.Close(ctx, eventID)
	if err != nil {
		WriteError(w, h.Log, "close event", err)
		return
	}
	h.Log.Info("event registrations closed", zap.Int64("event_id", eventID))
	respond.OK(w, e)
}
