// internal/app/features/account/login.go
package account

import (
	"context"
	"errors"
	"net/http"

	profilestore "github.com/dalemusser/volunteerhub/internal/app/store/profiles"
	userstore "github.com/dalemusser/volunteerhub/internal/app/store/users"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/inputval"
	"github.com/dalemusser/volunteerhub/internal/app/system/normalize"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.uber.org/zap"
)

type loginInput struct {
	Email    string `json:"email" validate:"required,emailaddr" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/login                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	in.Email = normalize.Email(in.Email)
	if res := inputval.Validate(in); res.HasErrors() {
		respond.Error(w, http.StatusBadRequest, res.First())
		return
	}

	if h.Limiter != nil {
		if ok, msg := h.Limiter.CheckLogin(r, in.Email); !ok {
			h.Log.Warn("login rate limited", zap.String("email", in.Email), zap.String("ip", r.RemoteAddr))
			respond.Error(w, http.StatusTooManyRequests, msg)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.users.Authenticate(ctx, in.Email, in.Password)
	if errors.Is(err, userstore.ErrInvalidCredentials) {
		respond.Error(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		respond.ServerError(w, h.Log, "authenticate failed", err)
		return
	}

	if models.IsProfileType(u.Type) {
		gate, err := h.profiles.Gate(ctx, u.Type, u.Email)
		switch {
		case errors.Is(err, profilestore.ErrNotFound):
			respond.Error(w, http.StatusForbidden, "account is not approved")
			return
		case err != nil:
			respond.ServerError(w, h.Log, "load approval gate failed", err, zap.String("email", u.Email))
			return
		case gate.IsPending:
			respond.Error(w, http.StatusForbidden, "account is pending approval")
			return
		case !gate.IsApproved:
			respond.Error(w, http.StatusForbidden, "account is not approved")
			return
		}
	}

	if h.Limiter != nil {
		h.Limiter.ResetLogin(in.Email)
	}
	if err := h.SessionMgr.Login(w, r, u.ID.Hex()); err != nil {
		respond.ServerError(w, h.Log, "save session failed", err)
		return
	}

	h.Log.Info("user logged in", zap.String("user_id", u.ID.Hex()), zap.String("type", u.Type))
	respond.OK(w, map[string]any{"user": userView{ID: u.ID.Hex(), Email: u.Email, Type: u.Type}})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/logout                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.Logout(w, r); err != nil {
		h.Log.Warn("logout: clear session failed", zap.Error(err))
	}
	respond.Message(w, "logged out")
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/me                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	out := map[string]any{"user": userView{ID: su.ID, Email: su.Email, Type: su.Type}}
	var (
		profile any
		err     error
	)
	switch su.Type {
	case models.TypeVolunteer:
		profile, err = h.profiles.GetVolunteer(ctx, su.Email)
	case models.TypeOrganizer:
		profile, err = h.profiles.GetOrganizer(ctx, su.Email)
	}
	if err != nil && !errors.Is(err, profilestore.ErrNotFound) {
		respond.ServerError(w, h.Log, "load profile failed", err)
		return
	}
	if err == nil && profile != nil {
		out["profile"] = profile
	}
	respond.OK(w, out)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/socket-token                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleSocketToken issues a short-lived token for the websocket handshake.
func (h *Handler) HandleSocketToken(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	tok, exp, err := h.Tokens.Issue(*su)
	if err != nil {
		respond.ServerError(w, h.Log, "issue socket token failed", err)
		return
	}
	respond.OK(w, map[string]any{"token": tok, "expiresAt": exp})
}
