package account_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/features/account"
	profilestore "github.com/dalemusser/volunteerhub/internal/app/store/profiles"
	userstore "github.com/dalemusser/volunteerhub/internal/app/store/users"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/mailer"
	"github.com/dalemusser/volunteerhub/internal/app/system/otp"
	"github.com/dalemusser/volunteerhub/internal/app/system/ratelimit"
	"github.com/dalemusser/volunteerhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type captureSender struct {
	mu   sync.Mutex
	sent []mailer.Email
}

func (c *captureSender) Send(_ context.Context, e mailer.Email) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, e)
	return nil
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func init() {
	userstore.BcryptCost = bcrypt.MinCost
}

func newTestHandler(t *testing.T) (*account.Handler, *testutil.Fixtures, *mongo.Database, *captureSender) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	limiter := ratelimit.NewAuthLimiter()
	t.Cleanup(limiter.Stop)

	mail := &captureSender{}
	h := account.NewHandler(db, sessionMgr, auth.NewTokenIssuer("socket-secret-for-tests", time.Minute),
		limiter, otp.New(time.Minute), mail, "VolunteerHub", logger)
	return h, testutil.NewFixtures(t, db), db, mail
}

func TestHandleSignup_Volunteer(t *testing.T) {
	h, _, db, _ := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/signup", map[string]any{
		"email":    "  Vera@Example.com ",
		"password": "long-enough-pw",
		"type":     "volunteer",
		"name":     "Vera  Volunteer",
		"skills":   []string{"Cooking", "teaching", "cooking"},
	})
	rec := testutil.NewRecorder()
	h.HandleSignup(rec, req)
	rec.AssertStatus(t, http.StatusCreated)

	p, err := profilestore.New(db).GetVolunteer(ctx, "vera@example.com")
	if err != nil {
		t.Fatalf("GetVolunteer: %v", err)
	}
	if !p.IsPending || p.IsApproved {
		t.Errorf("new profile should be pending: %+v", p.ApprovalGate)
	}
	if p.Name != "Vera Volunteer" {
		t.Errorf("name = %q", p.Name)
	}
	if len(p.Skills) != 2 {
		t.Errorf("skills = %v, want 2 de-duplicated tags", p.Skills)
	}
	if _, err := userstore.New(db).GetByEmail(ctx, "vera@example.com"); err != nil {
		t.Errorf("user not created: %v", err)
	}
}

func TestHandleSignup_Validation(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	cases := map[string]map[string]any{
		"bad email":         {"email": "nope", "password": "long-enough-pw", "type": "volunteer", "name": "A"},
		"short password":    {"email": "a@example.com", "password": "short", "type": "volunteer", "name": "A"},
		"admin type":        {"email": "a@example.com", "password": "long-enough-pw", "type": "admin", "name": "A"},
		"organizer no org":  {"email": "a@example.com", "password": "long-enough-pw", "type": "organizer", "name": "A"},
		"unknown skill tag": {"email": "a@example.com", "password": "long-enough-pw", "type": "volunteer", "name": "A", "skills": []string{"juggling"}},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleSignup(rec, testutil.NewJSONRequest(t, http.MethodPost, "/auth/signup", body))
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestHandleSignup_DuplicateEmail(t *testing.T) {
	h, fixtures, _, _ := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fixtures.CreateVolunteer(ctx, "dup@example.com", "Dup", true)

	rec := testutil.NewRecorder()
	h.HandleSignup(rec, testutil.NewJSONRequest(t, http.MethodPost, "/auth/signup", map[string]any{
		"email": "dup@example.com", "password": "long-enough-pw", "type": "organizer",
		"name": "Dup", "organization": "Dup Org",
	}))
	rec.AssertStatus(t, http.StatusConflict)
}

func TestHandleLogin(t *testing.T) {
	h, fixtures, _, _ := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateVolunteer(ctx, "ok@example.com", "Ok", true)
	fixtures.CreateVolunteer(ctx, "pending@example.com", "Pending", false)
	fixtures.CreateUser(ctx, "admin@example.com", "admin")

	tests := []struct {
		email, password string
		want            int
	}{
		{"ok@example.com", testutil.TestPassword, http.StatusOK},
		{"OK@example.com", testutil.TestPassword, http.StatusOK},
		{"admin@example.com", testutil.TestPassword, http.StatusOK},
		{"pending@example.com", testutil.TestPassword, http.StatusForbidden},
		{"ok@example.com", "wrong-password", http.StatusUnauthorized},
		{"ghost@example.com", testutil.TestPassword, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		rec := testutil.NewRecorder()
		h.HandleLogin(rec, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
			map[string]string{"email": tt.email, "password": tt.password}))
		rec.AssertStatus(t, tt.want)

		if tt.want == http.StatusOK {
			found := false
			for _, c := range rec.Result().Cookies() {
				if c.Name == "test-session" {
					found = true
				}
			}
			if !found {
				t.Errorf("%s: expected session cookie", tt.email)
			}
		}
	}
}

func TestHandleLogin_RateLimited(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	h.Limiter = ratelimit.NewAuthLimiterWithConfig(100, time.Minute, 2, time.Minute, 3, time.Minute)
	t.Cleanup(h.Limiter.Stop)

	var last int
	for i := 0; i < 3; i++ {
		rec := testutil.NewRecorder()
		h.HandleLogin(rec, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
			map[string]string{"email": "x@example.com", "password": "nope-nope"}))
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third attempt status = %d, want 429", last)
	}
}

func TestPasswordReset(t *testing.T) {
	h, fixtures, db, mail := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fixtures.CreateVolunteer(ctx, "reset@example.com", "Reset", true)

	rec := testutil.NewRecorder()
	h.HandleForgotPassword(rec, testutil.NewJSONRequest(t, http.MethodPost, "/auth/forgot-password",
		map[string]string{"email": "reset@example.com"}))
	rec.AssertStatus(t, http.StatusOK)

	deadline := time.Now().Add(2 * time.Second)
	for mail.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if mail.count() != 1 {
		t.Fatalf("expected one reset email, got %d", mail.count())
	}

	// Replace the mailed code with one we know.
	code, err := h.Codes.Issue("reset@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rec = testutil.NewRecorder()
	h.HandleVerifyOTP(rec, testutil.NewJSONRequest(t, http.MethodPost, "/auth/verify-otp",
		map[string]string{"email": "reset@example.com", "code": code}))
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	h.HandleResetPassword(rec, testutil.NewJSONRequest(t, http.MethodPost, "/auth/reset-password",
		map[string]string{"email": "reset@example.com", "code": code, "password": "brand-new-password"}))
	rec.AssertStatus(t, http.StatusOK)

	if _, err := userstore.New(db).Authenticate(ctx, "reset@example.com", "brand-new-password"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}

	// The code is single use.
	rec = testutil.NewRecorder()
	h.HandleResetPassword(rec, testutil.NewJSONRequest(t, http.MethodPost, "/auth/reset-password",
		map[string]string{"email": "reset@example.com", "code": code, "password": "another-password"}))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleForgotPassword_UnknownEmailLooksTheSame(t *testing.T) {
	h, _, _, mail := newTestHandler(t)

	rec := testutil.NewRecorder()
	h.HandleForgotPassword(rec, testutil.NewJSONRequest(t, http.MethodPost, "/auth/forgot-password",
		map[string]string{"email": "nobody@example.com"}))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "If an account exists")

	time.Sleep(20 * time.Millisecond)
	if mail.count() != 0 {
		t.Error("no email should be sent for an unknown address")
	}
	if h.Codes.Len() != 0 {
		t.Error("no code should be issued for an unknown address")
	}
}

func TestHandleVerifyOTP_WrongCode(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	if _, err := h.Codes.Issue("v@example.com"); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	rec := testutil.NewRecorder()
	// A real code is never 000000 (codes start at 100000).
	h.HandleVerifyOTP(rec, testutil.NewJSONRequest(t, http.MethodPost, "/auth/verify-otp",
		map[string]string{"email": "v@example.com", "code": "000000"}))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestServeMeAndSocketToken(t *testing.T) {
	h, fixtures, _, _ := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, _ := fixtures.CreateOrganizer(ctx, "org@example.com", "Olga", true)
	user := testutil.AsTestUser(u)

	rec := testutil.NewRecorder()
	h.ServeMe(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/auth/me", user))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"organization":"Olga Org"`)

	rec = testutil.NewRecorder()
	h.HandleSocketToken(rec, testutil.NewAuthenticatedRequest(http.MethodPost, "/auth/socket-token", user))
	rec.AssertStatus(t, http.StatusOK)
	var out struct {
		Token string `json:"token"`
	}
	rec.DecodeJSON(t, &out)
	su, err := h.Tokens.Parse(out.Token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if su.ID != user.ID || su.Type != "organizer" {
		t.Errorf("token user = %+v", su)
	}
}
