// internal/app/features/calendar/handler.go
package calendar

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"

	eventstore "github.com/dalemusser/volunteerhub/internal/app/store/events"
	calendartokens "github.com/dalemusser/volunteerhub/internal/app/store/calendartokens"
	"github.com/dalemusser/volunteerhub/internal/app/store/oauthstate"
	gcalendar "github.com/dalemusser/volunteerhub/internal/app/system/calendar"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler connects a user's Google Calendar and adds event reminders to it.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	Calendar *gcalendar.Service

	// AppURL is where the callback sends the browser when no safe return
	// path was given.
	AppURL string

	states *oauthstate.Store
	tokens *calendartokens.Store
	events *eventstore.Store
}

func NewHandler(db *mongo.Database, svc *gcalendar.Service, appURL string, logger *zap.Logger) *Handler {
	if appURL == "" {
		appURL = "/"
	}
	return &Handler{
		DB:       db,
		Log:      logger,
		Calendar: svc,
		AppURL:   appURL,
		states:   oauthstate.New(db),
		tokens:   calendartokens.New(db),
		events:   eventstore.New(db),
	}
}

// requireEnabled writes 503 when no OAuth client is configured.
func (h *Handler) requireEnabled(w http.ResponseWriter) bool {
	if !h.Calendar.Enabled() {
		respond.Error(w, http.StatusServiceUnavailable, gcalendar.ErrDisabled.Error())
		return false
	}
	return true
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// safeReturn accepts only same-site absolute paths.
func safeReturn(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return ""
	}
	return p
}

// withStatus appends calendar=<status> to target.
func withStatus(target, status string) string {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + "calendar=" + status
}
