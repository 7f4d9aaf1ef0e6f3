// internal/app/features/chat/socket.go
package chat

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/realtime"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type joinData struct {
	UserID string `json:"userId"`
}

type sendData struct {
	SendInput
	Ref string `json:"ref,omitempty"`
}

type sentData struct {
	Ref     string `json:"ref,omitempty"`
	Message any    `json:"message"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /ws                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeSocket upgrades the request to a websocket. The caller is identified
// by the session cookie or, for clients that cannot send cookies, by a
// socket token in ?token=.
func (h *Handler) ServeSocket(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		if tok := r.URL.Query().Get("token"); tok != "" && h.Tokens != nil {
			if parsed, err := h.Tokens.Parse(tok); err == nil {
				u, ok = parsed, true
			}
		}
	}
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := realtime.NewClient(h.Hub, conn, u.ID, u.Email, u.Type, h.Limits, h.Log)
	h.Metrics.SocketOpened()
	defer h.Metrics.SocketClosed()

	h.Log.Debug("socket connected", zap.String("user_id", u.ID))
	// Open sockets are closed by Hub.Shutdown, not by the request context.
	c.Run(context.WithoutCancel(r.Context()), h.dispatch)
	h.Log.Debug("socket disconnected", zap.String("user_id", u.ID))
}

// dispatch handles one inbound frame.
func (h *Handler) dispatch(ctx context.Context, c *realtime.Client, env realtime.Envelope) {
	switch env.Event {
	case realtime.EventJoin:
		h.onJoin(c, env)
	case realtime.EventSendMessage:
		h.onSend(ctx, c, env)
	default:
		c.Error("unknown event "+env.Event, "")
	}
}

func (h *Handler) onJoin(c *realtime.Client, env realtime.Envelope) {
	var d joinData
	if err := json.Unmarshal(env.Data, &d); err != nil || d.UserID == "" {
		c.Error("join requires a userId", "")
		return
	}
	if d.UserID != c.UserID {
		c.Error("cannot join another user's room", "")
		return
	}
	h.Hub.Join(c.UserID, c)
	c.Send(realtime.EventJoined, joinData{UserID: c.UserID})
}

func (h *Handler) onSend(ctx context.Context, c *realtime.Client, env realtime.Envelope) {
	var d sendData
	if err := json.Unmarshal(env.Data, &d); err != nil {
		c.Error("invalid message payload", "")
		return
	}
	if !c.Allow() {
		c.Error("sending too fast, slow down", d.Ref)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	sender := &auth.SessionUser{ID: c.UserID, Email: c.Email, Type: c.Type}
	msg, err := h.Service.Send(ctx, sender, d.SendInput, ChannelSocket)
	if err != nil {
		if IsClientError(err) {
			c.Error(err.Error(), d.Ref)
			return
		}
		h.Log.Error("socket send failed", zap.String("user_id", c.UserID), zap.Error(err))
		c.Error("message could not be sent", d.Ref)
		return
	}
	c.Send(realtime.EventMessageSent, sentData{Ref: d.Ref, Message: msg})
}
