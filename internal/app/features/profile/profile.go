// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"errors"
	"net/http"

	profilestore "github.com/dalemusser/volunteerhub/internal/app/store/profiles"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/inputval"
	"github.com/dalemusser/volunteerhub/internal/app/system/normalize"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.uber.org/zap"
)

type volunteerInput struct {
	Name         string   `json:"name" validate:"required,max=100" label:"Name"`
	Phone        string   `json:"phone" validate:"max=40" label:"Phone"`
	City         string   `json:"city" validate:"max=100" label:"City"`
	Bio          string   `json:"bio" validate:"max=2000" label:"Bio"`
	Skills       []string `json:"skills" validate:"max=12,dive,skill" label:"Skills"`
	Availability []string `json:"availability" validate:"max=14,dive,max=40" label:"Availability"`
}

type organizerInput struct {
	Name         string `json:"name" validate:"required,max=100" label:"Name"`
	Organization string `json:"organization" validate:"required,max=200" label:"Organization"`
	Phone        string `json:"phone" validate:"max=40" label:"Phone"`
	Website      string `json:"website" validate:"omitempty,httpurl,max=300" label:"Website"`
	Description  string `json:"description" validate:"max=2000" label:"Description"`
}

// profileUser returns the signed-in user, writing 400 for admins, who have
// no profile.
func profileUser(w http.ResponseWriter, r *http.Request) (*auth.SessionUser, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	if !models.IsProfileType(u.Type) {
		respond.Error(w, http.StatusBadRequest, "admin accounts have no profile")
		return nil, false
	}
	return u, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /profile                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := profileUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var (
		p   any
		err error
	)
	if u.Type == models.TypeVolunteer {
		p, err = h.profiles.GetVolunteer(ctx, u.Email)
	} else {
		p, err = h.profiles.GetOrganizer(ctx, u.Email)
	}
	if errors.Is(err, profilestore.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "load profile failed", err, zap.String("email", u.Email))
		return
	}
	respond.OK(w, p)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /profile                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := profileUser(w, r)
	if !ok {
		return
	}
	if u.Type == models.TypeVolunteer {
		h.updateVolunteer(w, r, u)
		return
	}
	h.updateOrganizer(w, r, u)
}

func (h *Handler) updateVolunteer(w http.ResponseWriter, r *http.Request, u *auth.SessionUser) {
	var in volunteerInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	in.Name = normalize.Name(in.Name)
	if res := inputval.Validate(in); res.HasErrors() {
		respond.Error(w, http.StatusBadRequest, res.First())
		return
	}
	skills, err := models.ParseSkills(in.Skills)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.profiles.UpdateVolunteer(ctx, u.Email, profilestore.VolunteerUpdate{
		Name:         in.Name,
		Phone:        normalize.Text(in.Phone),
		City:         normalize.Text(in.City),
		Bio:          normalize.Text(in.Bio),
		Skills:       skills,
		Availability: normalize.Strings(in.Availability),
	})
	h.writeUpdated(w, p, err, u)
}

func (h *Handler) updateOrganizer(w http.ResponseWriter, r *http.Request, u *auth.SessionUser) {
	var in organizerInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	in.Name = normalize.Name(in.Name)
	in.Organization = normalize.Name(in.Organization)
	if res := inputval.Validate(in); res.HasErrors() {
		respond.Error(w, http.StatusBadRequest, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.profiles.UpdateOrganizer(ctx, u.Email, profilestore.OrganizerUpdate{
		Name:         in.Name,
		Organization: in.Organization,
		Phone:        normalize.Text(in.Phone),
		Website:      normalize.Text(in.Website),
		Description:  normalize.Text(in.Description),
	})
	h.writeUpdated(w, p, err, u)
}

func (h *Handler) writeUpdated(w http.ResponseWriter, p any, err error, u *auth.SessionUser) {
	if errors.Is(err, profilestore.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "update profile failed", err, zap.String("email", u.Email))
		return
	}
	respond.OK(w, p)
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /profile                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleDelete removes the caller's profile and login and signs them out.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := profileUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete account cascade")
	defer cancel()

	res, err := h.cascade.ByEmail(ctx, u.Type, u.Email)
	if err != nil {
		respond.ServerError(w, h.Log, "delete account failed", err, zap.String("email", u.Email))
		return
	}
	if h.SessionMgr != nil {
		if err := h.SessionMgr.Logout(w, r); err != nil {
			h.Log.Warn("delete account: clear session failed", zap.Error(err))
		}
	}

	h.Log.Info("account deleted",
		zap.String("email", u.Email),
		zap.String("type", u.Type),
		zap.Int64("events_deleted", res.EventsDeleted),
		zap.Int64("registrations_withdrawn", res.RegistrationsOut))
	respond.Message(w, "account deleted")
}
