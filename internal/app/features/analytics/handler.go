// internal/app/features/analytics/handler.go
package analytics

import (
	"net/http"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/store/queries/analyticsqueries"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the admin analytics dashboard.
type Handler struct {
	DB  *mongo.Database
	Log *zap.Logger

	// Now is overridable in tests.
	Now func() time.Time
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger, Now: time.Now}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /analytics                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeDashboard returns twelve monthly buckets per series with the
// current-versus-previous-month trend.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "analytics dashboard")
	defer cancel()

	d, err := analyticsqueries.Dashboard(ctx, h.DB, h.Now())
	if err != nil {
		respond.ServerError(w, h.Log, "analytics dashboard failed", err)
		return
	}
	respond.OK(w, d)
}

// Routes returns the router mounted at /api/analytics.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireType(models.TypeAdmin))
	r.Get("/", h.ServeDashboard)
	return r
}
