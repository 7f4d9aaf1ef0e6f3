// internal/app/features/account/handler.go
package account

import (
	"fmt"
	"time"

	profilestore "github.com/dalemusser/volunteerhub/internal/app/store/profiles"
	userstore "github.com/dalemusser/volunteerhub/internal/app/store/users"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/mailer"
	"github.com/dalemusser/volunteerhub/internal/app/system/otp"
	"github.com/dalemusser/volunteerhub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves signup, login, and password reset.
type Handler struct {
	DB         *mongo.Database
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Tokens     *auth.TokenIssuer
	Limiter    *ratelimit.AuthLimiter
	Codes      *otp.Store
	Mail       mailer.Sender
	SiteName   string

	users    *userstore.Store
	profiles *profilestore.Store
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	tokens *auth.TokenIssuer,
	limiter *ratelimit.AuthLimiter,
	codes *otp.Store,
	mail mailer.Sender,
	siteName string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		DB:         db,
		Log:        logger,
		SessionMgr: sessionMgr,
		Tokens:     tokens,
		Limiter:    limiter,
		Codes:      codes,
		Mail:       mail,
		SiteName:   siteName,
		users:      userstore.New(db),
		profiles:   profilestore.New(db),
	}
}

// userView is the public shape of the signed-in user.
type userView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Type  string `json:"type"`
}

// formatExpiryDuration formats a time.Duration as a human-readable string
// e.g., "10 minutes", "1 hour", "30 minutes"
func formatExpiryDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes < 60 {
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
