// internal/app/features/chat/conversations.go
package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"

	conversationstore "github.com/dalemusser/volunteerhub/internal/app/store/conversations"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/inputval"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /chat/conversations                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeConversations lists the caller's conversations, most recent first,
// each with its unread count.
func (h *Handler) ServeConversations(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.conversations.ListForUser(ctx, u.ID)
	if err != nil {
		respond.ServerError(w, h.Log, "list conversations failed", err, zap.String("user_id", u.ID))
		return
	}
	unread, err := h.messages.UnreadByConversation(ctx, u.ID)
	if err != nil {
		respond.ServerError(w, h.Log, "count unread by conversation failed", err, zap.String("user_id", u.ID))
		return
	}

	type item struct {
		models.Conversation
		UnreadCount int64 `json:"unreadCount"`
	}
	out := make([]item, 0, len(list))
	for _, c := range list {
		out = append(out, item{Conversation: c, UnreadCount: unread[c.ConversationID]})
	}
	respond.OK(w, out)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /chat/conversations                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

type createConversationInput struct {
	ConversationID string `json:"conversationId" validate:"required,max=200" label:"Conversation id"`
	ParticipantID  string `json:"participantId" validate:"required,objectid" label:"Participant"`
	EventID        *int64 `json:"eventId,omitempty"`
}

// HandleCreateConversation creates the conversation between the caller and
// another user if it does not exist yet. An existing conversation is
// returned unchanged.
func (h *Handler) HandleCreateConversation(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	var in createConversationInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	in.ConversationID = strings.TrimSpace(in.ConversationID)
	if res := inputval.Validate(in); res.HasErrors() {
		respond.Error(w, http.StatusBadRequest, res.First())
		return
	}
	if in.ParticipantID == u.ID {
		respond.Error(w, http.StatusBadRequest, ErrSelfMessage.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if existing, err := h.conversations.Get(ctx, in.ConversationID); err == nil {
		if !existing.HasParticipant(u.ID) {
			respond.Error(w, http.StatusForbidden, ErrNotParticipant.Error())
			return
		}
		respond.OK(w, existing)
		return
	} else if !errors.Is(err, conversationstore.ErrNotFound) {
		respond.ServerError(w, h.Log, "load conversation failed", err)
		return
	}

	me, err := h.Service.Participant(ctx, u.ID)
	if err != nil {
		h.writeSendError(w, err)
		return
	}
	other, err := h.Service.Participant(ctx, in.ParticipantID)
	if err != nil {
		h.writeSendError(w, err)
		return
	}
	thread, err := h.Service.Thread(ctx, in.ConversationID, me, other, in.EventID)
	if err != nil {
		h.writeSendError(w, err)
		return
	}
	c, err := h.conversations.Create(ctx, thread)
	if err != nil {
		respond.ServerError(w, h.Log, "create conversation failed", err)
		return
	}
	respond.Created(w, c)
}

// participantConversation loads {conversationID} and checks the caller
// takes part in it.
func (h *Handler) participantConversation(ctx context.Context, w http.ResponseWriter, r *http.Request, userID string) (*models.Conversation, bool) {
	id := chi.URLParam(r, "conversationID")
	c, err := h.conversations.Get(ctx, id)
	if errors.Is(err, conversationstore.ErrNotFound) {
		respond.Error(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	if err != nil {
		respond.ServerError(w, h.Log, "load conversation failed", err, zap.String("conversation_id", id))
		return nil, false
	}
	if !c.HasParticipant(userID) {
		respond.Error(w, http.StatusForbidden, ErrNotParticipant.Error())
		return nil, false
	}
	return c, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /chat/conversations/{conversationID}/messages                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeMessages(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, ok := h.participantConversation(ctx, w, r, u.ID)
	if !ok {
		return
	}
	list, err := h.messages.ListByConversation(ctx, c.ConversationID)
	if err != nil {
		respond.ServerError(w, h.Log, "list messages failed", err, zap.String("conversation_id", c.ConversationID))
		return
	}
	respond.OK(w, list)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /chat/conversations/{conversationID}/read                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	c, ok := h.participantConversation(ctx, w, r, u.ID)
	if !ok {
		return
	}
	n, err := h.messages.MarkAsRead(ctx, c.ConversationID, u.ID)
	if err != nil {
		respond.ServerError(w, h.Log, "mark messages read failed", err, zap.String("conversation_id", c.ConversationID))
		return
	}
	respond.OK(w, map[string]int64{"updated": n})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /chat/unread                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeUnread(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.messages.UnreadCount(ctx, u.ID)
	if err != nil {
		respond.ServerError(w, h.Log, "count unread failed", err, zap.String("user_id", u.ID))
		return
	}
	respond.OK(w, map[string]int64{"unreadCount": n})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /chat/messages                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleSend stores a message and relays it to the receiver if online, for
// clients without an open socket.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	var in SendInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	msg, err := h.Service.Send(ctx, u, in, ChannelREST)
	if err != nil {
		h.writeSendError(w, err)
		return
	}
	respond.Created(w, msg)
}
