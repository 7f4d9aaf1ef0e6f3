// internal/app/features/calendar/reminder.go
package calendar

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"

	eventstore "github.com/dalemusser/volunteerhub/internal/app/store/events"
	calendartokens "github.com/dalemusser/volunteerhub/internal/app/store/calendartokens"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

/*─────────────────────────────────────────────────────────────────────────────*
| POST /calendar/events/{eventID}/reminder                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleReminder adds the event to the caller's primary calendar. Only the
// organizer and registered volunteers may add it.
func (h *Handler) HandleReminder(w http.ResponseWriter, r *http.Request) {
	if !h.requireEnabled(w) {
		return
	}
	u, _ := auth.CurrentUser(r)
	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil || eventID <= 0 {
		respond.Error(w, http.StatusBadRequest, "invalid event id")
		return
	}
	userID, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, calendartokens.ErrNotFound.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	e, err := h.events.Get(ctx, eventID)
	if errors.Is(err, eventstore.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "load event failed", err)
		return
	}
	if !involved(e, u) {
		respond.Error(w, http.StatusForbidden, "only the organizer and registered volunteers can add this event")
		return
	}

	stored, err := h.tokens.Get(ctx, userID)
	if errors.Is(err, calendartokens.ErrNotFound) {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "load calendar token failed", err)
		return
	}

	tok := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    stored.TokenType,
		Expiry:       stored.Expiry,
	}
	link, fresh, err := h.Calendar.Insert(ctx, tok, h.Calendar.ReminderFor(*e))
	if err != nil {
		h.Log.Warn("calendar insert failed", zap.Int64("event_id", eventID), zap.String("user_id", u.ID), zap.Error(err))
		respond.Error(w, http.StatusBadGateway, "calendar provider rejected the request")
		return
	}

	if fresh != nil && fresh.AccessToken != tok.AccessToken {
		if err := h.tokens.Save(ctx, models.CalendarToken{
			UserID:       userID,
			AccessToken:  fresh.AccessToken,
			RefreshToken: fresh.RefreshToken,
			TokenType:    fresh.TokenType,
			Expiry:       fresh.Expiry,
		}); err != nil {
			h.Log.Warn("save refreshed calendar token failed", zap.String("user_id", u.ID), zap.Error(err))
		}
	}

	respond.Created(w, map[string]string{"link": link})
}

func involved(e *models.Event, u *auth.SessionUser) bool {
	switch u.Type {
	case models.TypeOrganizer:
		return e.OrganizerID.Hex() == u.ID
	case models.TypeVolunteer:
		return slices.Contains(e.RegisteredVolunteers, u.Email)
	}
	return false
}
