// internal/app/features/admin/handler.go
package admin

import (
	"net/http"

	"github.com/dalemusser/volunteerhub/internal/app/store/queries/accountcascade"
	eventstore "github.com/dalemusser/volunteerhub/internal/app/store/events"
	profilestore "github.com/dalemusser/volunteerhub/internal/app/store/profiles"
	"github.com/dalemusser/volunteerhub/internal/app/system/mailer"
	"github.com/dalemusser/volunteerhub/internal/app/system/normalize"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the admin review queues.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	Mail     mailer.Sender
	SiteName string

	events   *eventstore.Store
	profiles *profilestore.Store
	cascade  *accountcascade.Deleter
}

func NewHandler(db *mongo.Database, mail mailer.Sender, siteName string, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		Mail:     mail,
		SiteName: siteName,
		events:   eventstore.New(db),
		profiles: profilestore.New(db),
		cascade:  accountcascade.New(db, logger),
	}
}

// profileParams reads {type} and {id}, writing 400 on failure.
func profileParams(w http.ResponseWriter, r *http.Request) (string, primitive.ObjectID, bool) {
	typ := normalize.Type(chi.URLParam(r, "type"))
	if !models.IsProfileType(typ) {
		respond.Error(w, http.StatusBadRequest, profilestore.ErrUnknownType.Error())
		return "", primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid profile id")
		return "", primitive.NilObjectID, false
	}
	return typ, id, true
}
