// internal/app/features/profile/handler.go
package profile

import (
	"github.com/dalemusser/volunteerhub/internal/app/store/queries/accountcascade"
	profilestore "github.com/dalemusser/volunteerhub/internal/app/store/profiles"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/uploads"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the self-service profile endpoints.
type Handler struct {
	DB         *mongo.Database
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Uploads    uploads.Store

	profiles *profilestore.Store
	cascade  *accountcascade.Deleter
}

// NewHandler constructs a Handler bound to the given Mongo database and logger.
func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, store uploads.Store, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Log:        logger,
		SessionMgr: sessionMgr,
		Uploads:    store,
		profiles:   profilestore.New(db),
		cascade:    accountcascade.New(db, logger),
	}
}
