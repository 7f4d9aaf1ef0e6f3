// internal/app/features/admin/users.go
package admin

import (
	"context"
	"errors"
	"net/http"

	profilestore "github.com/dalemusser/volunteerhub/internal/app/store/profiles"
	"github.com/dalemusser/volunteerhub/internal/app/system/mailer"
	"github.com/dalemusser/volunteerhub/internal/app/system/normalize"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/users/pending?type=volunteer|organizer                           |
*─────────────────────────────────────────────────────────────────────────────*/

// ServePendingUsers lists profiles waiting for review. Without a type both
// queues are returned.
func (h *Handler) ServePendingUsers(w http.ResponseWriter, r *http.Request) {
	typ := normalize.Type(r.URL.Query().Get("type"))
	if typ != "" && !models.IsProfileType(typ) {
		respond.Error(w, http.StatusBadRequest, profilestore.ErrUnknownType.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	out := struct {
		Volunteers []models.VolunteerProfile `json:"volunteers,omitempty"`
		Organizers []models.OrganizerProfile `json:"organizers,omitempty"`
	}{}

	if typ == "" || typ == models.TypeVolunteer {
		list, err := h.profiles.ListPendingVolunteers(ctx)
		if err != nil {
			respond.ServerError(w, h.Log, "list pending volunteers failed", err)
			return
		}
		out.Volunteers = list
	}
	if typ == "" || typ == models.TypeOrganizer {
		list, err := h.profiles.ListPendingOrganizers(ctx)
		if err != nil {
			respond.ServerError(w, h.Log, "list pending organizers failed", err)
			return
		}
		out.Organizers = list
	}
	respond.OK(w, out)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /admin/users/{type}/{id}/approve                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleApproveUser(w http.ResponseWriter, r *http.Request) {
	typ, id, ok := profileParams(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ref, err := h.profiles.Approve(ctx, typ, id)
	if errors.Is(err, profilestore.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "approve account failed", err, zap.String("profile_id", id.Hex()))
		return
	}

	h.Log.Info("account approved", zap.String("type", typ), zap.String("email", ref.Email))
	mailer.SendAsync(h.Mail, h.Log, mailer.BuildAccountDecisionEmail(ref.Email, mailer.AccountDecisionData{
		SiteName:    h.SiteName,
		Name:        ref.Name,
		AccountType: typ,
		Approved:    true,
	}))
	respond.Message(w, "account approved")
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /admin/users/{type}/{id}/reject                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleRejectUser removes the profile and its user record.
func (h *Handler) HandleRejectUser(w http.ResponseWriter, r *http.Request) {
	typ, id, ok := profileParams(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "reject account")
	defer cancel()

	res, err := h.cascade.ByProfileID(ctx, typ, id)
	if errors.Is(err, profilestore.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "reject account failed", err, zap.String("profile_id", id.Hex()))
		return
	}

	h.Log.Info("account rejected",
		zap.String("type", typ),
		zap.String("email", res.Profile.Email),
		zap.Int64("users_deleted", res.UsersDeleted),
		zap.Int64("events_deleted", res.EventsDeleted))
	mailer.SendAsync(h.Mail, h.Log, mailer.BuildAccountDecisionEmail(res.Profile.Email, mailer.AccountDecisionData{
		SiteName:    h.SiteName,
		Name:        res.Profile.Name,
		AccountType: typ,
		Approved:    false,
	}))
	respond.Message(w, "account rejected")
}
