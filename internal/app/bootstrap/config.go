// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const (
	devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"
	devSocketKey  = "dev-only-socket-secret-0123456789ABCDEF"
)

// appConfigKeys defines the configuration keys for VolunteerHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: VOLUNTEERHUB_MONGO_URI, VOLUNTEERHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI (a replica set is required for transactions)"},
	{Name: "mongo_database", Default: "volunteer_hub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "timeout_ping", Default: "2s", Desc: "Deadline for health check pings"},
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for list queries and chat sends"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for cascades and aggregations"},

	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "volunteerhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_ttl", Default: "24h", Desc: "Session cookie lifetime"},

	// Realtime sockets
	{Name: "socket_token_secret", Default: devSocketKey, Desc: "Secret used to sign socket tokens (must be strong in production)"},
	{Name: "socket_token_ttl", Default: "12h", Desc: "Socket token lifetime"},
	{Name: "socket_allowed_origins", Default: "", Desc: "Comma-separated origins allowed to open /ws (blank means same host)"},

	// File storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads/profiles", Desc: "Local storage path for profile images"},
	{Name: "storage_local_url", Default: "/files/profiles", Desc: "URL prefix for serving local files"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "profiles/", Desc: "S3 key prefix"},
	{Name: "storage_s3_base_url", Default: "", Desc: "Public URL prefix for stored objects (e.g. CloudFront)"},
	{Name: "storage_s3_endpoint", Default: "", Desc: "Custom S3 endpoint for compatible services"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@volunteerhub.org", Desc: "From email address"},
	{Name: "mail_from_name", Default: "VolunteerHub", Desc: "From display name"},
	{Name: "site_name", Default: "VolunteerHub", Desc: "Product name used in emails"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public URL of this API"},
	{Name: "app_url", Default: "http://localhost:5173", Desc: "Public URL of the browser client"},

	// Google Calendar
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID (blank disables calendar reminders)"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},
	{Name: "google_redirect_url", Default: "", Desc: "OAuth callback URL (default: base_url + /api/calendar/callback)"},
	{Name: "event_timezone", Default: "UTC", Desc: "IANA time zone event dates are interpreted in"},

	// Support assistant
	{Name: "assistant_base_url", Default: "https://api.openai.com/v1", Desc: "Chat completions API base URL"},
	{Name: "assistant_api_key", Default: "", Desc: "Chat completions API key (blank disables the assistant)"},
	{Name: "assistant_model", Default: "gpt-4o-mini", Desc: "Chat completions model"},

	// Account lifecycle
	{Name: "otp_expiry", Default: "10m", Desc: "Password reset code lifetime (e.g., 10m, 1h)"},
	{Name: "otp_sweep_interval", Default: "5m", Desc: "How often expired reset codes are purged"},
	{Name: "orphan_user_grace", Default: "1h", Desc: "Age after which a user with no profile is removed"},
	{Name: "orphan_user_interval", Default: "30m", Desc: "How often orphaned users are swept"},

	// Admin bootstrap
	{Name: "admin_email", Default: "", Desc: "Email of the admin account (created on startup if missing)"},
	{Name: "admin_password", Default: "", Desc: "Initial password for the admin account"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, VOLUNTEERHUB_* for app) and
// command-line flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "VOLUNTEERHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		Timeouts: timeouts.Config{
			Ping:   appValues.Duration("timeout_ping", timeouts.DefaultPing),
			Short:  appValues.Duration("timeout_short", timeouts.DefaultShort),
			Medium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
			Long:   appValues.Duration("timeout_long", timeouts.DefaultLong),
		},

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionTTL:    appValues.Duration("session_ttl", 24*time.Hour),

		SocketTokenSecret:    appValues.String("socket_token_secret"),
		SocketTokenTTL:       appValues.Duration("socket_token_ttl", 12*time.Hour),
		SocketAllowedOrigins: splitList(appValues.String("socket_allowed_origins")),

		// File storage
		StorageType:       appValues.String("storage_type"),
		StorageLocalPath:  appValues.String("storage_local_path"),
		StorageLocalURL:   appValues.String("storage_local_url"),
		StorageS3Region:   appValues.String("storage_s3_region"),
		StorageS3Bucket:   appValues.String("storage_s3_bucket"),
		StorageS3Prefix:   appValues.String("storage_s3_prefix"),
		StorageS3BaseURL:  appValues.String("storage_s3_base_url"),
		StorageS3Endpoint: appValues.String("storage_s3_endpoint"),

		// Email/SMTP
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),
		SiteName:     appValues.String("site_name"),

		BaseURL: strings.TrimRight(appValues.String("base_url"), "/"),
		AppURL:  strings.TrimRight(appValues.String("app_url"), "/"),

		// Google Calendar
		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),
		GoogleRedirectURL:  appValues.String("google_redirect_url"),
		EventTimeZone:      appValues.String("event_timezone"),

		// Support assistant
		AssistantBaseURL: appValues.String("assistant_base_url"),
		AssistantAPIKey:  appValues.String("assistant_api_key"),
		AssistantModel:   appValues.String("assistant_model"),

		// Account lifecycle
		OTPExpiry:          appValues.Duration("otp_expiry", 10*time.Minute),
		OTPSweepInterval:   appValues.Duration("otp_sweep_interval", 5*time.Minute),
		OrphanUserGrace:    appValues.Duration("orphan_user_grace", time.Hour),
		OrphanUserInterval: appValues.Duration("orphan_user_interval", 30*time.Minute),

		// Admin
		AdminEmail:    strings.ToLower(strings.TrimSpace(appValues.String("admin_email"))),
		AdminPassword: appValues.String("admin_password"),
	}

	if appCfg.GoogleRedirectURL == "" {
		appCfg.GoogleRedirectURL = appCfg.BaseURL + "/api/calendar/callback"
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// VolunteerHub validates the MongoDB URI format before attempting to
// connect, refuses the development signing keys in production, and checks
// that the selected storage backend is fully configured.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(coreCfg.Env, appCfg)
}

func validateApp(env string, appCfg AppConfig) error {
	if env == "prod" {
		if appCfg.SessionKey == devSessionKey || len(appCfg.SessionKey) < 32 {
			return errors.New("session_key must be set to a strong value (32+ chars) in production")
		}
		if appCfg.SocketTokenSecret == devSocketKey || len(appCfg.SocketTokenSecret) < 32 {
			return errors.New("socket_token_secret must be set to a strong value (32+ chars) in production")
		}
	}

	switch appCfg.StorageType {
	case "local", "":
	case "s3":
		if appCfg.StorageS3Region == "" || appCfg.StorageS3Bucket == "" {
			return errors.New("storage_type s3 requires storage_s3_region and storage_s3_bucket")
		}
	default:
		return fmt.Errorf("unknown storage_type %q (want 'local' or 's3')", appCfg.StorageType)
	}

	if appCfg.EventTimeZone != "" {
		if _, err := time.LoadLocation(appCfg.EventTimeZone); err != nil {
			return fmt.Errorf("event_timezone: %w", err)
		}
	}
	if appCfg.GoogleClientID != "" && appCfg.GoogleClientSecret == "" {
		return errors.New("google_client_id requires google_client_secret")
	}
	if (appCfg.AdminEmail == "") != (appCfg.AdminPassword == "") {
		return errors.New("admin_email and admin_password must be set together")
	}
	if appCfg.AdminPassword != "" && len(appCfg.AdminPassword) < 8 {
		return errors.New("admin_password must be at least 8 characters")
	}
	return nil
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
