package chat_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dalemusser/volunteerhub/internal/app/features/chat"
	conversationstore "github.com/dalemusser/volunteerhub/internal/app/store/conversations"
	messagestore "github.com/dalemusser/volunteerhub/internal/app/store/messages"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/indexes"
	"github.com/dalemusser/volunteerhub/internal/app/system/realtime"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"github.com/dalemusser/volunteerhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func sessionUser(u models.User) *auth.SessionUser {
	return &auth.SessionUser{ID: u.ID.Hex(), Email: u.Email, Type: u.Type}
}

type pair struct {
	vol, org models.User
}

func newPair(t *testing.T, ctx context.Context, f *testutil.Fixtures) pair {
	t.Helper()
	vol, _ := f.CreateVolunteer(ctx, "val@example.com", "Val", true)
	org, _ := f.CreateOrganizer(ctx, "olive@example.com", "Olive", true)
	return pair{vol: vol, org: org}
}

func newService(t *testing.T) (*chat.Service, *testutil.Fixtures, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	return chat.NewService(db, realtime.NewHub(zap.NewNop()), nil, zap.NewNop()), testutil.NewFixtures(t, db), db
}

func TestCleanContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		err  error
	}{
		{"plain", "hello", "hello", nil},
		{"markup stripped", "<b>hi</b> <script>x()</script>there", "hi there", nil},
		{"entities survive", "fish & chips <3", "fish & chips <3", nil},
		{"only markup", "<p></p>", "", chat.ErrEmptyContent},
		{"blank", "   ", "", chat.ErrEmptyContent},
		{"too long", strings.Repeat("a", chat.MaxContentLength+1), "", chat.ErrContentTooLong},
		{"at limit", strings.Repeat("é", chat.MaxContentLength), strings.Repeat("é", chat.MaxContentLength), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := chat.CleanContent(tt.in)
			if !errors.Is(err, tt.err) {
				t.Fatalf("err: got %v, want %v", err, tt.err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSend_StoresMessageAndSummary(t *testing.T) {
	svc, fixtures, db := newService(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p := newPair(t, ctx, fixtures)
	e := fixtures.CreateEvent(ctx, p.org, "River cleanup")

	msg, err := svc.Send(ctx, sessionUser(p.vol), chat.SendInput{
		ConversationID: "conv-1",
		ReceiverID:     p.org.ID.Hex(),
		Content:        "Is parking available?",
		EventID:        &e.EventID,
	}, chat.ChannelREST)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.Read || msg.SenderName != "Val" || msg.ReceiverName != "Olive" || msg.EventName != "River cleanup" {
		t.Errorf("unexpected message: %+v", msg)
	}

	var c models.Conversation
	if err := db.Collection("conversations").FindOne(ctx, bson.M{"conversation_id": "conv-1"}).Decode(&c); err != nil {
		t.Fatalf("load conversation: %v", err)
	}
	if c.LastMessage != "Is parking available?" || len(c.ParticipantIDs) != 2 {
		t.Errorf("unexpected summary: %+v", c)
	}
	if c.EventID == nil || *c.EventID != e.EventID {
		t.Errorf("expected event id on summary, got %v", c.EventID)
	}
}

func TestSend_Rejections(t *testing.T) {
	svc, fixtures, _ := newService(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p := newPair(t, ctx, fixtures)
	outsider, _ := fixtures.CreateVolunteer(ctx, "out@example.com", "Out", true)

	if _, err := svc.Send(ctx, sessionUser(p.vol), chat.SendInput{
		ConversationID: "conv-1", ReceiverID: p.org.ID.Hex(), Content: "hi",
	}, chat.ChannelREST); err != nil {
		t.Fatalf("seed Send: %v", err)
	}
	missingEvent := int64(9999)

	tests := []struct {
		name   string
		sender models.User
		in     chat.SendInput
		want   error
	}{
		{"outsider joins existing thread", outsider, chat.SendInput{ConversationID: "conv-1", ReceiverID: p.org.ID.Hex(), Content: "hey"}, chat.ErrNotParticipant},
		{"self message", p.vol, chat.SendInput{ConversationID: "conv-2", ReceiverID: p.vol.ID.Hex(), Content: "me"}, chat.ErrSelfMessage},
		{"unknown receiver", p.vol, chat.SendInput{ConversationID: "conv-3", ReceiverID: "65f000000000000000000001", Content: "x"}, chat.ErrUnknownReceiver},
		{"empty content", p.vol, chat.SendInput{ConversationID: "conv-1", ReceiverID: p.org.ID.Hex(), Content: " "}, chat.ErrEmptyContent},
		{"missing id", p.vol, chat.SendInput{ReceiverID: p.org.ID.Hex(), Content: "x"}, chat.ErrConversationID},
		{"unknown event", p.vol, chat.SendInput{ConversationID: "conv-4", ReceiverID: p.org.ID.Hex(), Content: "x", EventID: &missingEvent}, chat.ErrUnknownEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Send(ctx, sessionUser(tt.sender), tt.in, chat.ChannelREST)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
			if !chat.IsClientError(err) {
				t.Errorf("expected %v to be a client error", err)
			}
		})
	}
}

func TestSend_ConcurrentFirstMessages(t *testing.T) {
	svc, fixtures, db := newService(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p := newPair(t, ctx, fixtures)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, s := range []struct {
		from, to models.User
		text     string
	}{{p.vol, p.org, "first"}, {p.org, p.vol, "second"}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Send(ctx, sessionUser(s.from), chat.SendInput{
				ConversationID: "brand-new", ReceiverID: s.to.ID.Hex(), Content: s.text,
			}, chat.ChannelSocket)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	n, err := db.Collection("conversations").CountDocuments(ctx, bson.M{"conversation_id": "brand-new"})
	if err != nil {
		t.Fatalf("count conversations: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 conversation, got %d", n)
	}
	m, err := db.Collection("messages").CountDocuments(ctx, bson.M{"conversation_id": "brand-new"})
	if err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if m != 2 {
		t.Errorf("expected 2 messages, got %d", m)
	}

	history, err := messagestore.New(db).ListByConversation(ctx, "brand-new")
	if err != nil {
		t.Fatalf("ListByConversation: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history: got %d messages, want 2", len(history))
	}
	a, b := history[0], history[1]
	if b.CreatedAt.Before(a.CreatedAt) {
		t.Errorf("history out of order: %v then %v", a.CreatedAt, b.CreatedAt)
	}
	if b.CreatedAt.Equal(a.CreatedAt) && b.ID.Hex() < a.ID.Hex() {
		t.Errorf("tie on created_at must fall back to _id: %s then %s", a.ID.Hex(), b.ID.Hex())
	}
	if texts := a.Content + "," + b.Content; texts != "first,second" && texts != "second,first" {
		t.Errorf("unexpected history contents: %s", texts)
	}

	c, err := conversationstore.New(db).Get(ctx, "brand-new")
	if err != nil {
		t.Fatalf("Get conversation: %v", err)
	}
	if b.CreatedAt.After(a.CreatedAt) && c.LastMessage != b.Content {
		t.Errorf("summary should show the newest message %q, got %q", b.Content, c.LastMessage)
	}
}
