// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	accountfeature "github.com/dalemusser/volunteerhub/internal/app/features/account"
	adminfeature "github.com/dalemusser/volunteerhub/internal/app/features/admin"
	analyticsfeature "github.com/dalemusser/volunteerhub/internal/app/features/analytics"
	calendarfeature "github.com/dalemusser/volunteerhub/internal/app/features/calendar"
	chatfeature "github.com/dalemusser/volunteerhub/internal/app/features/chat"
	eventsfeature "github.com/dalemusser/volunteerhub/internal/app/features/events"
	healthfeature "github.com/dalemusser/volunteerhub/internal/app/features/health"
	profilefeature "github.com/dalemusser/volunteerhub/internal/app/features/profile"
	supportfeature "github.com/dalemusser/volunteerhub/internal/app/features/support"
	userstore "github.com/dalemusser/volunteerhub/internal/app/store/users"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. The JSON API lives under /api; the
// websocket, health check and Prometheus endpoint sit at the root.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if svc == nil {
		return nil, errors.New("bootstrap: Startup must run before BuildHandler")
	}
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionTTL, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fresh user data on each request, so a deleted account loses its
	// session immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(svc.Metrics.Middleware)

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Ops
	healthHandler := healthfeature.NewHandler(deps.MongoClient, svc.Hub, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", svc.Metrics.Handler())

	// Realtime chat socket
	chatHandler := chatfeature.NewHandler(db, svc.Hub, svc.Metrics, svc.Tokens, appCfg.SocketAllowedOrigins, logger)
	r.Get("/ws", chatHandler.ServeSocket)

	// Uploaded profile images when stored on local disk
	if appCfg.StorageType != "s3" && appCfg.StorageLocalURL != "" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	r.Route("/api", func(api chi.Router) {
		accountHandler := accountfeature.NewHandler(db, sessionMgr, svc.Tokens, svc.Limiter, svc.Codes, svc.Mail, appCfg.SiteName, logger)
		api.Mount("/auth", accountfeature.Routes(accountHandler))

		profileHandler := profilefeature.NewHandler(db, sessionMgr, svc.Uploads, logger)
		api.Mount("/profile", profilefeature.Routes(profileHandler))

		eventsHandler := eventsfeature.NewHandler(db, svc.Metrics, logger)
		api.Mount("/events", eventsfeature.Routes(eventsHandler))

		adminHandler := adminfeature.NewHandler(db, svc.Mail, appCfg.SiteName, logger)
		api.Mount("/admin", adminfeature.Routes(adminHandler))

		api.Mount("/chat", chatfeature.Routes(chatHandler))

		analyticsHandler := analyticsfeature.NewHandler(db, logger)
		api.Mount("/analytics", analyticsfeature.Routes(analyticsHandler))

		calendarHandler := calendarfeature.NewHandler(db, svc.Calendar, appCfg.AppURL, logger)
		api.Mount("/calendar", calendarfeature.Routes(calendarHandler))

		supportHandler := supportfeature.NewHandler(svc.Assistant, logger)
		api.Mount("/support", supportfeature.Routes(supportHandler))

		api.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			respond.Error(w, http.StatusNotFound, "not found")
		})
		api.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
			respond.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		})
	})

	return r, nil
}
