// internal/app/features/calendar/connect.go
package calendar

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// stateTTL bounds the consent round trip.
const stateTTL = 10 * time.Minute

/*─────────────────────────────────────────────────────────────────────────────*
| GET /calendar/connect?return=/path                                          |
| Returns the Google consent URL; the client navigates to it.                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeConnect(w http.ResponseWriter, r *http.Request) {
	if !h.requireEnabled(w) {
		return
	}
	u, _ := auth.CurrentUser(r)

	state, err := generateState()
	if err != nil {
		respond.ServerError(w, h.Log, "generate oauth state failed", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	returnURL := safeReturn(r.URL.Query().Get("return"))
	if err := h.states.Save(ctx, state, u.ID, returnURL, time.Now().Add(stateTTL)); err != nil {
		respond.ServerError(w, h.Log, "save oauth state failed", err)
		return
	}
	url, err := h.Calendar.AuthURL(state)
	if err != nil {
		respond.ServerError(w, h.Log, "build consent url failed", err)
		return
	}
	h.Log.Debug("calendar consent started", zap.String("user_id", u.ID))
	respond.OK(w, map[string]string{"url": url})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /calendar/callback?state=&code=                                         |
| Google redirects the browser here; the state names the user.                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		h.Log.Warn("calendar consent declined", zap.String("error", errParam))
		http.Redirect(w, r, withStatus(h.AppURL, "denied"), http.StatusSeeOther)
		return
	}
	if !h.requireEnabled(w) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	st, ok, err := h.states.Validate(ctx, q.Get("state"))
	if err != nil {
		respond.ServerError(w, h.Log, "validate oauth state failed", err)
		return
	}
	if !ok {
		h.Log.Warn("invalid or expired calendar oauth state")
		http.Redirect(w, r, withStatus(h.AppURL, "invalid_state"), http.StatusSeeOther)
		return
	}
	target := h.AppURL
	if st.ReturnURL != "" {
		target = st.ReturnURL
	}

	userID, err := primitive.ObjectIDFromHex(st.UserID)
	if err != nil {
		http.Redirect(w, r, withStatus(target, "invalid_state"), http.StatusSeeOther)
		return
	}
	code := q.Get("code")
	if code == "" {
		http.Redirect(w, r, withStatus(target, "missing_code"), http.StatusSeeOther)
		return
	}

	tok, err := h.Calendar.Exchange(ctx, code)
	if err != nil {
		h.Log.Warn("calendar code exchange failed", zap.String("user_id", st.UserID), zap.Error(err))
		http.Redirect(w, r, withStatus(target, "error"), http.StatusSeeOther)
		return
	}
	if err := h.tokens.Save(ctx, models.CalendarToken{
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}); err != nil {
		h.Log.Error("save calendar token failed", zap.String("user_id", st.UserID), zap.Error(err))
		http.Redirect(w, r, withStatus(target, "error"), http.StatusSeeOther)
		return
	}

	h.Log.Info("calendar connected", zap.String("user_id", st.UserID))
	http.Redirect(w, r, withStatus(target, "connected"), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /calendar/connect                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	userID, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		respond.Message(w, "calendar disconnected")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.tokens.Delete(ctx, userID); err != nil {
		respond.ServerError(w, h.Log, "delete calendar token failed", err)
		return
	}
	respond.Message(w, "calendar disconnected")
}
