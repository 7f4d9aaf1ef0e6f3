package chat_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/features/chat"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/indexes"
	"github.com/dalemusser/volunteerhub/internal/app/system/realtime"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"github.com/dalemusser/volunteerhub/internal/testutil"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const tokenSecret = "test-socket-secret-for-testing-only"

func newTestHandler(t *testing.T) (*chat.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	tokens := auth.NewTokenIssuer(tokenSecret, time.Minute)
	h := chat.NewHandler(db, realtime.NewHub(zap.NewNop()), nil, tokens, nil, zap.NewNop())
	return h, testutil.NewFixtures(t, db)
}

func sendReq(t *testing.T, u models.User, body map[string]any) *http.Request {
	return testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/chat/messages", body), testutil.AsTestUser(u))
}

func TestChatRESTFlow(t *testing.T) {
	h, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p := newPair(t, ctx, fixtures)
	outsider, _ := fixtures.CreateVolunteer(ctx, "out@example.com", "Out", true)

	for _, text := range []string{"one", "two"} {
		rec := testutil.NewRecorder()
		h.HandleSend(rec, sendReq(t, p.vol, map[string]any{
			"conversationId": "vol-org",
			"receiverId":     p.org.ID.Hex(),
			"content":        text,
		}))
		rec.AssertStatus(t, http.StatusCreated)
	}

	rec := testutil.NewRecorder()
	h.ServeUnread(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/chat/unread", testutil.AsTestUser(p.org)))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"unreadCount":2`)

	rec = testutil.NewRecorder()
	h.ServeConversations(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/chat/conversations", testutil.AsTestUser(p.org)))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"lastMessage":"two"`)
	rec.AssertContains(t, `"unreadCount":2`)

	msgsReq := func(u models.User) *http.Request {
		return testutil.WithChiURLParam(
			testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.AsTestUser(u)),
			"conversationID", "vol-org")
	}

	rec = testutil.NewRecorder()
	h.ServeMessages(rec, msgsReq(p.org))
	rec.AssertStatus(t, http.StatusOK)
	var msgs []models.Message
	rec.DecodeJSON(t, &msgs)
	if len(msgs) != 2 || msgs[0].Content != "one" || msgs[1].Content != "two" {
		t.Errorf("expected history [one two], got %+v", msgs)
	}

	rec = testutil.NewRecorder()
	h.ServeMessages(rec, msgsReq(outsider))
	rec.AssertStatus(t, http.StatusForbidden)

	readReq := testutil.WithChiURLParam(
		testutil.NewAuthenticatedRequest(http.MethodPost, "/", testutil.AsTestUser(p.org)),
		"conversationID", "vol-org")
	rec = testutil.NewRecorder()
	h.HandleMarkRead(rec, readReq)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"updated":2`)

	rec = testutil.NewRecorder()
	h.ServeUnread(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/chat/unread", testutil.AsTestUser(p.org)))
	rec.AssertContains(t, `"unreadCount":0`)

	rec = testutil.NewRecorder()
	h.ServeMessages(rec, testutil.WithChiURLParam(
		testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.AsTestUser(p.org)),
		"conversationID", "nope"))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleSend_Errors(t *testing.T) {
	h, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p := newPair(t, ctx, fixtures)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"empty content", map[string]any{"conversationId": "c", "receiverId": p.org.ID.Hex(), "content": ""}, http.StatusBadRequest},
		{"unknown receiver", map[string]any{"conversationId": "c", "receiverId": "65f000000000000000000001", "content": "x"}, http.StatusNotFound},
		{"self", map[string]any{"conversationId": "c", "receiverId": p.vol.ID.Hex(), "content": "x"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleSend(rec, sendReq(t, p.vol, tt.body))
			rec.AssertStatus(t, tt.want)
		})
	}
}

func TestHandleCreateConversation(t *testing.T) {
	h, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p := newPair(t, ctx, fixtures)
	outsider, _ := fixtures.CreateVolunteer(ctx, "out@example.com", "Out", true)

	body := map[string]any{"conversationId": "pair-1", "participantId": p.org.ID.Hex()}
	rec := testutil.NewRecorder()
	h.HandleCreateConversation(rec, testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/", body), testutil.AsTestUser(p.vol)))
	rec.AssertStatus(t, http.StatusCreated)
	rec.AssertContains(t, `"lastMessage":""`)

	// Idempotent for participants.
	rec = testutil.NewRecorder()
	h.HandleCreateConversation(rec, testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/", body), testutil.AsTestUser(p.vol)))
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	h.HandleCreateConversation(rec, testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/", body), testutil.AsTestUser(outsider)))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	h.HandleCreateConversation(rec, testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]any{
		"conversationId": "pair-2", "participantId": "not-an-id",
	}), testutil.AsTestUser(p.vol)))
	rec.AssertStatus(t, http.StatusBadRequest)
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dial(t *testing.T, srv *httptest.Server, h *chat.Handler, u models.User) *websocket.Conn {
	t.Helper()
	tok, _, err := h.Tokens.Issue(auth.SessionUser{ID: u.ID.Hex(), Email: u.Email, Type: u.Type})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + tok
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return f
}

func join(t *testing.T, conn *websocket.Conn, userID string) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"event": "join", "data": map[string]string{"userId": userID}}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if f := readFrame(t, conn); f.Event != realtime.EventJoined {
		t.Fatalf("expected joined, got %s %s", f.Event, f.Data)
	}
}

func TestServeSocket_RelaysToReceiver(t *testing.T) {
	h, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p := newPair(t, ctx, fixtures)

	srv := httptest.NewServer(http.HandlerFunc(h.ServeSocket))
	defer srv.Close()

	orgConn := dial(t, srv, h, p.org)
	join(t, orgConn, p.org.ID.Hex())
	volConn := dial(t, srv, h, p.vol)
	join(t, volConn, p.vol.ID.Hex())

	err := volConn.WriteJSON(map[string]any{
		"event": "send_message",
		"data": map[string]any{
			"ref":            "r1",
			"conversationId": "live",
			"receiverId":     p.org.ID.Hex(),
			"content":        "hello over the wire",
		},
	})
	if err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	ack := readFrame(t, volConn)
	if ack.Event != realtime.EventMessageSent || !strings.Contains(string(ack.Data), `"ref":"r1"`) {
		t.Errorf("expected message_sent ack, got %s %s", ack.Event, ack.Data)
	}

	got := readFrame(t, orgConn)
	if got.Event != realtime.EventReceiveMessage {
		t.Fatalf("expected receive_message, got %s", got.Event)
	}
	var msg models.Message
	if err := json.Unmarshal(got.Data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Content != "hello over the wire" || msg.SenderID != p.vol.ID.Hex() {
		t.Errorf("unexpected relayed message: %+v", msg)
	}
}

func TestServeSocket_JoinOtherRoomRefused(t *testing.T) {
	h, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p := newPair(t, ctx, fixtures)

	srv := httptest.NewServer(http.HandlerFunc(h.ServeSocket))
	defer srv.Close()

	conn := dial(t, srv, h, p.vol)
	if err := conn.WriteJSON(map[string]any{"event": "join", "data": map[string]string{"userId": p.org.ID.Hex()}}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if f := readFrame(t, conn); f.Event != realtime.EventError {
		t.Errorf("expected error frame, got %s", f.Event)
	}
}

func TestServeSocket_Unauthenticated(t *testing.T) {
	h, _ := newTestHandler(t)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeSocket))
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?token=bogus", nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %+v", resp)
	}
}
