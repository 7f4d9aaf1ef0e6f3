// internal/app/features/chat/handler.go
package chat

import (
	"errors"
	"net/http"

	conversationstore "github.com/dalemusser/volunteerhub/internal/app/store/conversations"
	messagestore "github.com/dalemusser/volunteerhub/internal/app/store/messages"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/metrics"
	"github.com/dalemusser/volunteerhub/internal/app/system/realtime"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the chat REST endpoints and the websocket relay.
type Handler struct {
	DB      *mongo.Database
	Log     *zap.Logger
	Service *Service
	Hub     *realtime.Hub
	Metrics *metrics.Metrics
	Tokens  *auth.TokenIssuer
	Limits  realtime.Limits

	upgrader      websocket.Upgrader
	conversations *conversationstore.Store
	messages      *messagestore.Store
}

// NewHandler builds the chat handler. allowedOrigins restricts websocket
// upgrades; when empty only same-host origins are accepted.
func NewHandler(db *mongo.Database, hub *realtime.Hub, m *metrics.Metrics, tokens *auth.TokenIssuer, allowedOrigins []string, logger *zap.Logger) *Handler {
	h := &Handler{
		DB:            db,
		Log:           logger,
		Service:       NewService(db, hub, m, logger),
		Hub:           hub,
		Metrics:       m,
		Tokens:        tokens,
		Limits:        realtime.DefaultLimits,
		conversations: conversationstore.New(db),
		messages:      messagestore.New(db),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		allowed := make(map[string]bool, len(allowedOrigins))
		for _, o := range allowedOrigins {
			allowed[o] = true
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed["*"] || allowed[origin]
		}
	}
	return h
}

// writeSendError maps a Send failure to a response.
func (h *Handler) writeSendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotParticipant):
		respond.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrUnknownReceiver), errors.Is(err, ErrUnknownEvent):
		respond.Error(w, http.StatusNotFound, err.Error())
	case IsClientError(err):
		respond.Error(w, http.StatusBadRequest, err.Error())
	default:
		respond.ServerError(w, h.Log, "send message failed", err)
	}
}
