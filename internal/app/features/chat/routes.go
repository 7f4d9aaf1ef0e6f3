// internal/app/features/chat/routes.go
package chat

import (
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted at /api/chat.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/conversations", h.ServeConversations)
	r.Post("/conversations", h.HandleCreateConversation)
	r.Get("/conversations/{conversationID}/messages", h.ServeMessages)
	r.Post("/conversations/{conversationID}/read", h.HandleMarkRead)
	r.Get("/unread", h.ServeUnread)
	r.Post("/messages", h.HandleSend)

	return r
}
