// internal/app/features/events/handler.go
package events

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	eventstore "github.com/dalemusser/volunteerhub/internal/app/store/events"
	profilestore "github.com/dalemusser/volunteerhub/internal/app/store/profiles"
	"github.com/dalemusser/volunteerhub/internal/app/system/metrics"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the organizer and volunteer event endpoints.
type Handler struct {
	DB      *mongo.Database
	Log     *zap.Logger
	Metrics *metrics.Metrics

	events   *eventstore.Store
	profiles *profilestore.Store
}

func NewHandler(db *mongo.Database, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		Metrics:  m,
		events:   eventstore.New(db),
		profiles: profilestore.New(db),
	}
}

// eventIDParam parses the {eventID} URL parameter, writing 400 on failure.
func eventIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, "invalid event id")
		return 0, false
	}
	return id, true
}

// requireApproved writes 403 unless the caller's profile is approved.
func (h *Handler) requireApproved(ctx context.Context, w http.ResponseWriter, typ, email string) bool {
	gate, err := h.profiles.Gate(ctx, typ, email)
	if errors.Is(err, profilestore.ErrNotFound) || (err == nil && !gate.IsApproved) {
		respond.Error(w, http.StatusForbidden, "account is not approved")
		return false
	}
	if err != nil {
		respond.ServerError(w, h.Log, "load approval gate failed", err, zap.String("email", email))
		return false
	}
	return true
}

// WriteError maps event store errors to responses.
func WriteError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, eventstore.ErrNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, eventstore.ErrNotOwner):
		respond.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, eventstore.ErrAlreadyRegistered):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, eventstore.ErrConflict):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, eventstore.ErrEventNotApproved),
		errors.Is(err, eventstore.ErrRegistrationsClosed),
		errors.Is(err, eventstore.ErrEventCompleted),
		errors.Is(err, eventstore.ErrEventFull),
		errors.Is(err, eventstore.ErrNotRegistered),
		errors.Is(err, eventstore.ErrCapacityTooLow):
		respond.Error(w, http.StatusBadRequest, err.Error())
	default:
		respond.ServerError(w, log, op+" failed", err)
	}
}
