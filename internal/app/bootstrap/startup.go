// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/volunteerhub/internal/app/store/oauthstate"
	"github.com/dalemusser/volunteerhub/internal/app/store/queries/accountcascade"
	userstore "github.com/dalemusser/volunteerhub/internal/app/store/users"
	"github.com/dalemusser/volunteerhub/internal/app/system/assistant"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	gcalendar "github.com/dalemusser/volunteerhub/internal/app/system/calendar"
	"github.com/dalemusser/volunteerhub/internal/app/system/mailer"
	"github.com/dalemusser/volunteerhub/internal/app/system/metrics"
	"github.com/dalemusser/volunteerhub/internal/app/system/otp"
	"github.com/dalemusser/volunteerhub/internal/app/system/ratelimit"
	"github.com/dalemusser/volunteerhub/internal/app/system/realtime"
	"github.com/dalemusser/volunteerhub/internal/app/system/tasks"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/app/system/uploads"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// services are the process-wide collaborators built once in Startup and
// shared by BuildHandler and Shutdown.
type services struct {
	Hub       *realtime.Hub
	Metrics   *metrics.Metrics
	Codes     *otp.Store
	Limiter   *ratelimit.AuthLimiter
	Tokens    *auth.TokenIssuer
	Mail      mailer.Sender
	Uploads   uploads.Store
	Calendar  *gcalendar.Service
	Assistant *assistant.Client
	Tasks     *tasks.Runner
}

var svc *services

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It
// ensures the admin account, builds the shared services and starts the
// background jobs.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(appCfg.Timeouts)

	if err := ensureAdmin(ctx, deps, appCfg, logger); err != nil {
		return err
	}

	store, err := buildUploads(ctx, appCfg)
	if err != nil {
		logger.Error("upload storage init failed", zap.Error(err))
		return err
	}

	s := &services{
		Hub:     realtime.NewHub(logger),
		Metrics: metrics.New(),
		Codes:   otp.New(appCfg.OTPExpiry),
		Limiter: ratelimit.NewAuthLimiter(),
		Tokens:  auth.NewTokenIssuer(appCfg.SocketTokenSecret, appCfg.SocketTokenTTL),
		Mail:    buildMailer(appCfg, logger),
		Uploads: store,
		Calendar: gcalendar.New(gcalendar.Config{
			ClientID:     appCfg.GoogleClientID,
			ClientSecret: appCfg.GoogleClientSecret,
			RedirectURL:  appCfg.GoogleRedirectURL,
			TimeZone:     appCfg.EventTimeZone,
		}),
		Assistant: assistant.New(assistant.Config{
			BaseURL: appCfg.AssistantBaseURL,
			APIKey:  appCfg.AssistantAPIKey,
			Model:   appCfg.AssistantModel,
		}),
	}

	s.Tasks = tasks.NewRunner(logger,
		tasks.OTPSweepJob(s.Codes, logger, appCfg.OTPSweepInterval),
		tasks.OrphanUserSweepJob(accountcascade.New(deps.MongoDatabase, logger), logger, appCfg.OrphanUserGrace, appCfg.OrphanUserInterval),
		tasks.OAuthStateCleanupJob(oauthstate.New(deps.MongoDatabase), logger),
	)
	s.Tasks.Start()

	logger.Info("services ready",
		zap.Bool("calendar", s.Calendar.Enabled()),
		zap.Bool("assistant", s.Assistant.Enabled()),
		zap.String("storage", appCfg.StorageType))

	svc = s
	return nil
}

// ensureAdmin creates the configured admin account when it is missing.
// An existing account is never modified.
func ensureAdmin(ctx context.Context, deps DBDeps, appCfg AppConfig, logger *zap.Logger) error {
	if appCfg.AdminEmail == "" {
		logger.Warn("admin_email not set; no admin account ensured")
		return nil
	}
	created, err := userstore.New(deps.MongoDatabase).EnsureAdmin(ctx, appCfg.AdminEmail, appCfg.AdminPassword)
	if err != nil {
		logger.Error("ensure admin failed", zap.String("email", appCfg.AdminEmail), zap.Error(err))
		return fmt.Errorf("ensure admin: %w", err)
	}
	if created {
		logger.Info("created admin account", zap.String("email", appCfg.AdminEmail))
	}
	return nil
}

func buildUploads(ctx context.Context, appCfg AppConfig) (uploads.Store, error) {
	if appCfg.StorageType == "s3" {
		return uploads.NewS3(ctx, uploads.S3Config{
			Region:   appCfg.StorageS3Region,
			Bucket:   appCfg.StorageS3Bucket,
			Prefix:   appCfg.StorageS3Prefix,
			BaseURL:  appCfg.StorageS3BaseURL,
			Endpoint: appCfg.StorageS3Endpoint,
		})
	}
	return uploads.NewLocal(appCfg.StorageLocalPath, appCfg.StorageLocalURL)
}

func buildMailer(appCfg AppConfig, logger *zap.Logger) mailer.Sender {
	if appCfg.MailSMTPHost == "" {
		return mailer.LogSender{Log: logger}
	}
	return mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)
}
