// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, CORS, body limits); this
// struct carries everything specific to VolunteerHub.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Per-operation database deadlines; zero keeps the defaults
	Timeouts timeouts.Config

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: volunteerhub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionTTL    time.Duration // Cookie lifetime

	// Realtime socket configuration
	SocketTokenSecret    string        // HMAC secret for socket bearer tokens
	SocketTokenTTL       time.Duration // Lifetime of an issued socket token
	SocketAllowedOrigins []string      // Browser origins allowed to open /ws (empty: same host only)

	// File storage configuration
	StorageType      string // Storage backend: "local" or "s3"
	StorageLocalPath string // Local storage path (e.g., "./uploads/profiles")
	StorageLocalURL  string // URL prefix for serving local files (e.g., "/files/profiles")

	// S3 configuration (only used if StorageType is "s3")
	StorageS3Region   string
	StorageS3Bucket   string
	StorageS3Prefix   string
	StorageS3BaseURL  string // Public URL prefix, e.g. a CloudFront distribution
	StorageS3Endpoint string // Optional, for S3-compatible services

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string // From email address (e.g., noreply@volunteerhub.org)
	MailFromName string // From display name (e.g., VolunteerHub)
	SiteName     string // Product name used in email subjects

	// Base URL of the deployed API and of the browser client
	BaseURL string // e.g., "https://api.volunteerhub.org" or "http://localhost:3000"
	AppURL  string // e.g., "https://volunteerhub.org"; calendar redirects land here

	// Google Calendar OAuth configuration
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string // defaults to BaseURL + /api/calendar/callback
	EventTimeZone      string // IANA zone event dates and times are interpreted in

	// Support assistant configuration
	AssistantBaseURL string
	AssistantAPIKey  string // blank disables the assistant
	AssistantModel   string

	// Account lifecycle
	OTPExpiry          time.Duration // Lifetime of a password reset code
	OTPSweepInterval   time.Duration // How often expired codes are purged
	OrphanUserGrace    time.Duration // Age at which a user without a profile is removed
	OrphanUserInterval time.Duration // How often orphaned users are swept

	// Admin bootstrap
	AdminEmail    string // Email of the admin account ensured on startup
	AdminPassword string
}
