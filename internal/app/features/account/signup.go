// internal/app/features/account/signup.go
package account

import (
	"context"
	"errors"
	"net/http"

	profilestore "github.com/dalemusser/volunteerhub/internal/app/store/profiles"
	userstore "github.com/dalemusser/volunteerhub/internal/app/store/users"
	"github.com/dalemusser/volunteerhub/internal/app/system/inputval"
	"github.com/dalemusser/volunteerhub/internal/app/system/normalize"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/app/system/txn"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.uber.org/zap"
)

type signupInput struct {
	Email        string   `json:"email" validate:"required,emailaddr,max=254" label:"Email"`
	Password     string   `json:"password" validate:"required,min=8,max=128" label:"Password"`
	Type         string   `json:"type" validate:"required,accounttype" label:"Account type"`
	Name         string   `json:"name" validate:"required,max=100" label:"Name"`
	Organization string   `json:"organization" validate:"required_if=Type organizer,max=200" label:"Organization"`
	Phone        string   `json:"phone" validate:"max=40" label:"Phone"`
	City         string   `json:"city" validate:"max=100" label:"City"`
	Website      string   `json:"website" validate:"omitempty,httpurl,max=300" label:"Website"`
	Skills       []string `json:"skills" validate:"max=12,dive,skill" label:"Skills"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/signup                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleSignup creates the login and its profile. New accounts wait for
// admin approval and are not signed in.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var in signupInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	in.Email = normalize.Email(in.Email)
	in.Type = normalize.Type(in.Type)
	in.Name = normalize.Name(in.Name)
	in.Organization = normalize.Name(in.Organization)
	if res := inputval.Validate(in); res.HasErrors() {
		respond.Error(w, http.StatusBadRequest, res.First())
		return
	}
	skills, err := models.ParseSkills(in.Skills)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "signup")
	defer cancel()

	var created models.User
	err = txn.Run(ctx, h.DB.Client(), h.Log, "signup", func(ctx context.Context) error {
		u, err := h.users.Create(ctx, in.Email, in.Password, in.Type)
		if err != nil {
			return err
		}
		created = u
		if err := h.createProfile(ctx, in, skills); err != nil {
			// Outside a transaction the login would be left behind.
			_, _ = h.users.DeleteByEmail(ctx, in.Email)
			return err
		}
		return nil
	})
	switch {
	case errors.Is(err, userstore.ErrDuplicateEmail), errors.Is(err, profilestore.ErrDuplicateEmail):
		respond.Error(w, http.StatusConflict, "an account with this email already exists")
		return
	case err != nil:
		respond.ServerError(w, h.Log, "signup failed", err, zap.String("email", in.Email))
		return
	}

	h.Log.Info("account created", zap.String("email", created.Email), zap.String("type", created.Type))
	respond.Created(w, map[string]any{
		"message": "Account created. An administrator will review it shortly.",
		"user":    userView{ID: created.ID.Hex(), Email: created.Email, Type: created.Type},
	})
}

func (h *Handler) createProfile(ctx context.Context, in signupInput, skills models.SkillSet) error {
	if in.Type == models.TypeOrganizer {
		_, err := h.profiles.CreateOrganizer(ctx, models.OrganizerProfile{
			Email:        in.Email,
			Name:         in.Name,
			Organization: in.Organization,
			Phone:        normalize.Text(in.Phone),
			Website:      normalize.Text(in.Website),
		})
		return err
	}
	_, err := h.profiles.CreateVolunteer(ctx, models.VolunteerProfile{
		Email:  in.Email,
		Name:   in.Name,
		Phone:  normalize.Text(in.Phone),
		City:   normalize.Text(in.City),
		Skills: skills,
	})
	return err
}
