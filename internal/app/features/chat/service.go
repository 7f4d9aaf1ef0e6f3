// internal/app/features/chat/service.go
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	conversationstore "github.com/dalemusser/volunteerhub/internal/app/store/conversations"
	eventstore "github.com/dalemusser/volunteerhub/internal/app/store/events"
	messagestore "github.com/dalemusser/volunteerhub/internal/app/store/messages"
	profilestore "github.com/dalemusser/volunteerhub/internal/app/store/profiles"
	userstore "github.com/dalemusser/volunteerhub/internal/app/store/users"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/metrics"
	"github.com/dalemusser/volunteerhub/internal/app/system/realtime"
	"github.com/dalemusser/volunteerhub/internal/app/system/sanitize"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxContentLength is the longest message accepted, in characters.
const MaxContentLength = 5000

// Delivery channels, used as metric labels.
const (
	ChannelSocket = "socket"
	ChannelREST   = "rest"
)

var (
	ErrEmptyContent    = errors.New("message content is required")
	ErrContentTooLong  = errors.New("message content must be at most 5000 characters")
	ErrUnknownReceiver = errors.New("receiver not found")
	ErrSelfMessage     = errors.New("cannot send a message to yourself")
	ErrNotParticipant  = errors.New("not a participant in this conversation")
	ErrUnknownEvent    = errors.New("event not found")
	ErrConversationID  = errors.New("conversation id is required")
)

// SendInput is a message as submitted over REST or the socket.
type SendInput struct {
	ConversationID string `json:"conversationId"`
	ReceiverID     string `json:"receiverId"`
	Content        string `json:"content"`
	EventID        *int64 `json:"eventId,omitempty"`
}

// Service persists chat messages and relays them to online receivers.
type Service struct {
	Hub     *realtime.Hub
	Metrics *metrics.Metrics
	Log     *zap.Logger

	users         *userstore.Store
	profiles      *profilestore.Store
	events        *eventstore.Store
	conversations *conversationstore.Store
	messages      *messagestore.Store
}

func NewService(db *mongo.Database, hub *realtime.Hub, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		Hub:           hub,
		Metrics:       m,
		Log:           logger,
		users:         userstore.New(db),
		profiles:      profilestore.New(db),
		events:        eventstore.New(db),
		conversations: conversationstore.New(db),
		messages:      messagestore.New(db),
	}
}

// CleanContent strips markup and enforces the length bounds.
func CleanContent(raw string) (string, error) {
	content := sanitize.PlainText(raw)
	switch n := sanitize.Length(content); {
	case n == 0:
		return "", ErrEmptyContent
	case n > MaxContentLength:
		return "", ErrContentTooLong
	}
	return content, nil
}

// Participant resolves a user id to the snapshot stored on messages and
// conversations.
func (s *Service) Participant(ctx context.Context, userID string) (models.Participant, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return models.Participant{}, ErrUnknownReceiver
	}
	u, err := s.users.GetByID(ctx, oid)
	if errors.Is(err, userstore.ErrNotFound) {
		return models.Participant{}, ErrUnknownReceiver
	}
	if err != nil {
		return models.Participant{}, err
	}
	return models.Participant{UserID: userID, Name: s.displayName(ctx, u), Type: u.Type}, nil
}

// displayName prefers the profile name and falls back to the email's
// local part for admins and half-deleted accounts.
func (s *Service) displayName(ctx context.Context, u *models.User) string {
	switch u.Type {
	case models.TypeVolunteer:
		if p, err := s.profiles.GetVolunteer(ctx, u.Email); err == nil {
			return p.Name
		}
	case models.TypeOrganizer:
		if p, err := s.profiles.GetOrganizer(ctx, u.Email); err == nil {
			return p.Name
		}
	}
	name, _, _ := strings.Cut(u.Email, "@")
	return name
}

// Thread builds the conversation description for a pair of participants
// and an optional event.
func (s *Service) Thread(ctx context.Context, conversationID string, a, b models.Participant, eventID *int64) (conversationstore.Thread, error) {
	t := conversationstore.Thread{
		ConversationID: conversationID,
		Participants:   []models.Participant{a, b},
	}
	if eventID == nil {
		return t, nil
	}
	e, err := s.events.Get(ctx, *eventID)
	if errors.Is(err, eventstore.ErrNotFound) {
		return t, ErrUnknownEvent
	}
	if err != nil {
		return t, err
	}
	t.EventID = eventID
	t.EventName = e.Title
	return t, nil
}

// Send stores a message from sender and pushes it to the receiver's room.
// The message insert and the conversation summary are separate writes; the
// summary is a read model and only moves forward.
func (s *Service) Send(ctx context.Context, sender *auth.SessionUser, in SendInput, channel string) (models.Message, error) {
	in.ConversationID = strings.TrimSpace(in.ConversationID)
	if in.ConversationID == "" {
		return models.Message{}, ErrConversationID
	}
	content, err := CleanContent(in.Content)
	if err != nil {
		return models.Message{}, err
	}
	if in.ReceiverID == sender.ID {
		return models.Message{}, ErrSelfMessage
	}

	existing, err := s.conversations.Get(ctx, in.ConversationID)
	switch {
	case errors.Is(err, conversationstore.ErrNotFound):
		existing = nil
	case err != nil:
		return models.Message{}, err
	case !existing.HasParticipant(sender.ID) || !existing.HasParticipant(in.ReceiverID):
		return models.Message{}, ErrNotParticipant
	}

	from, err := s.Participant(ctx, sender.ID)
	if err != nil {
		return models.Message{}, err
	}
	to, err := s.Participant(ctx, in.ReceiverID)
	if err != nil {
		return models.Message{}, err
	}
	eventID := in.EventID
	if eventID == nil && existing != nil {
		eventID = existing.EventID
	}
	thread, err := s.Thread(ctx, in.ConversationID, from, to, eventID)
	if err != nil {
		return models.Message{}, err
	}

	msg, err := s.messages.Insert(ctx, models.Message{
		ConversationID: in.ConversationID,
		SenderID:       from.UserID,
		SenderName:     from.Name,
		SenderType:     from.Type,
		ReceiverID:     to.UserID,
		ReceiverName:   to.Name,
		ReceiverType:   to.Type,
		Content:        content,
		EventID:        thread.EventID,
		EventName:      thread.EventName,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return models.Message{}, err
	}
	s.Metrics.MessageStored(channel)

	if err := s.conversations.RecordMessage(ctx, thread, content, msg.CreatedAt); err != nil {
		// The message is stored; the summary catches up on the next send.
		s.Log.Warn("conversation summary update failed",
			zap.String("conversation_id", in.ConversationID), zap.Error(err))
	}

	delivered := s.Hub != nil && s.Hub.Emit(to.UserID, realtime.EventReceiveMessage, msg) > 0
	s.Metrics.Delivery(delivered)
	return msg, nil
}

// IsClientError reports whether err came from bad input rather than a
// failing dependency.
func IsClientError(err error) bool {
	for _, e := range []error{
		ErrEmptyContent, ErrContentTooLong, ErrUnknownReceiver, ErrSelfMessage,
		ErrNotParticipant, ErrUnknownEvent, ErrConversationID,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
