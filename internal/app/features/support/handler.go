// internal/app/features/support/handler.go
package support

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/system/assistant"
	"github.com/dalemusser/volunteerhub/internal/app/system/ratelimit"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxMessageLength bounds a single turn submitted by the widget.
const maxMessageLength = 4000

// Handler forwards support-widget conversations to the assistant.
type Handler struct {
	Log       *zap.Logger
	Assistant *assistant.Client
	Limiter   *ratelimit.Limiter
}

// NewHandler builds the handler with a per-IP limit of 20 requests a minute.
func NewHandler(a *assistant.Client, logger *zap.Logger) *Handler {
	return &Handler{
		Log:       logger,
		Assistant: a,
		Limiter:   ratelimit.New(20, time.Minute),
	}
}

type chatInput struct {
	Messages []assistant.Message `json:"messages"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /support/chat                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleChat returns the assistant's reply to the conversation so far.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if !h.Assistant.Enabled() {
		respond.Error(w, http.StatusServiceUnavailable, assistant.ErrDisabled.Error())
		return
	}
	if h.Limiter != nil && !h.Limiter.Allow(ratelimit.ClientIP(r)) {
		respond.Error(w, http.StatusTooManyRequests, "too many requests, try again shortly")
		return
	}

	var in chatInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(in.Messages) == 0 {
		respond.Error(w, http.StatusBadRequest, "messages are required")
		return
	}
	for _, m := range in.Messages {
		if len(m.Content) > maxMessageLength {
			respond.Error(w, http.StatusBadRequest, "message is too long")
			return
		}
	}
	if last := in.Messages[len(in.Messages)-1]; last.Role != assistant.RoleUser {
		respond.Error(w, http.StatusBadRequest, "the last message must come from the user")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 45*time.Second)
	defer cancel()

	reply, err := h.Assistant.Reply(ctx, in.Messages)
	if err != nil {
		h.Log.Warn("support assistant failed", zap.Error(err))
		respond.Error(w, http.StatusBadGateway, "the assistant is unavailable right now")
		return
	}
	respond.OK(w, map[string]string{"reply": reply})
}

// Routes returns the router mounted at /api/support. The widget is public.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/chat", h.HandleChat)
	return r
}
