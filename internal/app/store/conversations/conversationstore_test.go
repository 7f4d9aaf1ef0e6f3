package conversationstore_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	conversationstore "github.com/dalemusser/volunteerhub/internal/app/store/conversations"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"github.com/dalemusser/volunteerhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func thread(id string) conversationstore.Thread {
	eventID := int64(7)
	return conversationstore.Thread{
		ConversationID: id,
		Participants: []models.Participant{
			{UserID: "u1", Name: "Val", Type: models.TypeVolunteer},
			{UserID: "u2", Name: "Olive", Type: models.TypeOrganizer},
		},
		EventID:   &eventID,
		EventName: "Beach cleanup",
	}
}

func uniqueConversationID(t *testing.T, db *mongo.Database) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	_, err := db.Collection("conversations").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		t.Fatalf("create index: %v", err)
	}
}

func TestStore_Create_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	uniqueConversationID(t, db)
	store := conversationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, err := store.Create(ctx, thread("c-1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.LastMessage != "" || first.LastMessageTime != nil {
		t.Errorf("new conversation summary: %q at %v", first.LastMessage, first.LastMessageTime)
	}
	if !first.HasParticipant("u1") || !first.HasParticipant("u2") {
		t.Errorf("participant ids: %v", first.ParticipantIDs)
	}

	other := thread("c-1")
	other.EventName = "Changed"
	second, err := store.Create(ctx, other)
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if second.ID != first.ID || second.EventName != "Beach cleanup" {
		t.Errorf("existing conversation must be returned unchanged: %+v", second)
	}

	n, _ := db.Collection("conversations").CountDocuments(ctx, bson.M{})
	if n != 1 {
		t.Errorf("documents: got %d, want 1", n)
	}
}

func TestStore_Create_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	uniqueConversationID(t, db)
	store := conversationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Create(ctx, thread("race")); err != nil {
				t.Errorf("Create: %v", err)
			}
		}()
	}
	wg.Wait()

	n, _ := db.Collection("conversations").CountDocuments(ctx, bson.M{})
	if n != 1 {
		t.Errorf("documents: got %d, want 1", n)
	}
}

func TestStore_RecordMessage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := conversationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	t0 := time.Now().UTC().Truncate(time.Millisecond)
	if err := store.RecordMessage(ctx, thread("c-2"), "hello", t0); err != nil {
		t.Fatalf("RecordMessage: %v", err)
	}
	c, err := store.Get(ctx, "c-2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c.LastMessage != "hello" || c.CreatedAt.IsZero() {
		t.Errorf("summary after first message: %+v", c)
	}
	if c.EventID == nil || *c.EventID != 7 {
		t.Errorf("event meta: %v", c.EventID)
	}

	if err := store.RecordMessage(ctx, thread("c-2"), "later", t0.Add(time.Second)); err != nil {
		t.Fatalf("RecordMessage: %v", err)
	}
	if err := store.RecordMessage(ctx, thread("c-2"), "stale", t0.Add(-time.Second)); err != nil {
		t.Fatalf("RecordMessage: %v", err)
	}
	c, _ = store.Get(ctx, "c-2")
	if c.LastMessage != "later" {
		t.Errorf("last message should stay the newest, got %q", c.LastMessage)
	}
}

func TestStore_RecordMessage_AfterCreateWithEarlierTimestamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	uniqueConversationID(t, db)
	store := conversationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// The message was stamped before a concurrent REST create made the
	// empty conversation.
	sentAt := time.Now().UTC().Add(-time.Second).Truncate(time.Millisecond)
	if _, err := store.Create(ctx, thread("c-4")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.RecordMessage(ctx, thread("c-4"), "first", sentAt); err != nil {
		t.Fatalf("RecordMessage: %v", err)
	}

	c, err := store.Get(ctx, "c-4")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if c.LastMessage != "first" {
		t.Errorf("last message: got %q, want %q", c.LastMessage, "first")
	}
	if c.LastMessageTime == nil || !c.LastMessageTime.Equal(sentAt) {
		t.Errorf("last message time: got %v, want %v", c.LastMessageTime, sentAt)
	}
}

func TestStore_RecordMessage_DollarContentIsLiteral(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := conversationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.RecordMessage(ctx, thread("c-3"), "$last_message", time.Now().UTC()); err != nil {
		t.Fatalf("RecordMessage: %v", err)
	}
	c, _ := store.Get(ctx, "c-3")
	if c.LastMessage != "$last_message" {
		t.Errorf("content must be stored verbatim, got %q", c.LastMessage)
	}
}

func TestStore_ListForUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := conversationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	_ = store.RecordMessage(ctx, thread("old"), "a", now.Add(-time.Hour))
	_ = store.RecordMessage(ctx, thread("new"), "b", now)
	unrelated := thread("unrelated")
	unrelated.Participants = []models.Participant{{UserID: "x"}, {UserID: "y"}}
	_ = store.RecordMessage(ctx, unrelated, "c", now)
	if _, err := store.Create(ctx, thread("empty")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := store.ListForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d conversations, want 3", len(list))
	}
	if list[0].ConversationID != "new" || list[1].ConversationID != "old" || list[2].ConversationID != "empty" {
		t.Errorf("order: %s, %s, %s", list[0].ConversationID, list[1].ConversationID, list[2].ConversationID)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, conversationstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
