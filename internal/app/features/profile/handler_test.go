package profile_test

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/volunteerhub/internal/app/features/profile"
	profilestore "github.com/dalemusser/volunteerhub/internal/app/store/profiles"
	userstore "github.com/dalemusser/volunteerhub/internal/app/store/users"
	"github.com/dalemusser/volunteerhub/internal/app/system/uploads"
	"github.com/dalemusser/volunteerhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*profile.Handler, *testutil.Fixtures, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store, err := uploads.NewLocal(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return profile.NewHandler(db, nil, store, zap.NewNop()), testutil.NewFixtures(t, db), db
}

func TestServeProfile(t *testing.T) {
	h, fixtures, _ := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, _ := fixtures.CreateVolunteer(ctx, "v@example.com", "Vic", true)

	rec := testutil.NewRecorder()
	h.ServeProfile(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/profile", testutil.AsTestUser(u)))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"name":"Vic"`)

	rec = testutil.NewRecorder()
	h.ServeProfile(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/profile", testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleUpdate_Volunteer(t *testing.T) {
	h, fixtures, _ := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, _ := fixtures.CreateVolunteer(ctx, "v@example.com", "Vic", true)

	req := testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPut, "/profile", map[string]any{
		"name":   "Victor",
		"city":   " Austin ",
		"skills": []string{"medical", "driving"},
	}), testutil.AsTestUser(u))
	rec := testutil.NewRecorder()
	h.HandleUpdate(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"city":"Austin"`)
	rec.AssertContains(t, `"skills":["driving","medical"]`)

	req = testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPut, "/profile", map[string]any{
		"name":   "Victor",
		"skills": []string{"flying"},
	}), testutil.AsTestUser(u))
	rec = testutil.NewRecorder()
	h.HandleUpdate(rec, req)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleUpdate_Organizer(t *testing.T) {
	h, fixtures, _ := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, _ := fixtures.CreateOrganizer(ctx, "o@example.com", "Olga", true)

	req := testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPut, "/profile", map[string]any{
		"name":         "Olga",
		"organization": "Food Bank",
		"website":      "ftp://nope",
	}), testutil.AsTestUser(u))
	rec := testutil.NewRecorder()
	h.HandleUpdate(rec, req)
	rec.AssertStatus(t, http.StatusBadRequest)

	req = testutil.WithUser(testutil.NewJSONRequest(t, http.MethodPut, "/profile", map[string]any{
		"name":         "Olga",
		"organization": "Food Bank",
		"website":      "https://food.example.org",
	}), testutil.AsTestUser(u))
	rec = testutil.NewRecorder()
	h.HandleUpdate(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"organization":"Food Bank"`)
}

func TestHandleDelete_Cascades(t *testing.T) {
	h, fixtures, db := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, _ := fixtures.CreateOrganizer(ctx, "o@example.com", "Olga", true)
	fixtures.CreateEvent(ctx, u, "Cleanup")

	rec := testutil.NewRecorder()
	h.HandleDelete(rec, testutil.NewAuthenticatedRequest(http.MethodDelete, "/profile", testutil.AsTestUser(u)))
	rec.AssertStatus(t, http.StatusOK)

	if _, err := profilestore.New(db).GetOrganizer(ctx, u.Email); !errors.Is(err, profilestore.ErrNotFound) {
		t.Errorf("profile should be deleted: %v", err)
	}
	if _, err := userstore.New(db).GetByEmail(ctx, u.Email); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("user should be deleted: %v", err)
	}
	n, err := db.Collection("events").CountDocuments(ctx, map[string]any{"organizer_id": u.ID})
	if err != nil || n != 0 {
		t.Errorf("events left: %d (%v)", n, err)
	}
}

func multipartPicture(t *testing.T, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("picture", "me.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write(data)
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/profile/picture", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandlePicture(t *testing.T) {
	h, fixtures, db := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, _ := fixtures.CreateVolunteer(ctx, "v@example.com", "Vic", true)
	user := testutil.AsTestUser(u)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	rec := testutil.NewRecorder()
	h.HandlePicture(rec, testutil.WithUser(multipartPicture(t, png), user))
	rec.AssertStatus(t, http.StatusOK)

	p, err := profilestore.New(db).GetVolunteer(ctx, u.Email)
	if err != nil {
		t.Fatalf("GetVolunteer: %v", err)
	}
	if !strings.HasPrefix(p.ProfilePictureURL, "/files/profiles/"+user.ID+"/") {
		t.Errorf("picture url = %q", p.ProfilePictureURL)
	}

	rec = testutil.NewRecorder()
	h.HandlePicture(rec, testutil.WithUser(multipartPicture(t, []byte("plain text, not an image")), user))
	rec.AssertStatus(t, http.StatusUnsupportedMediaType)
}
