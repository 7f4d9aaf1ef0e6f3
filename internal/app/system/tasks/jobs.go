// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/store/oauthstate"
	"github.com/dalemusser/volunteerhub/internal/app/store/queries/accountcascade"
	"github.com/dalemusser/volunteerhub/internal/app/system/otp"
	"go.uber.org/zap"
)

// OTPSweepJob drops expired password-reset codes from the in-memory store.
func OTPSweepJob(codes *otp.Store, logger *zap.Logger, interval time.Duration) Job {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return Job{
		Name:     "otp-sweep",
		Interval: interval,
		Run: func(ctx context.Context) error {
			if n := codes.Sweep(); n > 0 {
				logger.Debug("swept expired OTPs", zap.Int("count", n), zap.Int("remaining", codes.Len()))
			}
			return nil
		},
	}
}

// OrphanUserSweepJob finishes account cascades that stopped after the
// profile was deleted: the login's events or registrations are cleared and
// the login removed. Only users older than grace are touched so a signup
// that is still writing its profile is left alone.
func OrphanUserSweepJob(cascade *accountcascade.Deleter, logger *zap.Logger, grace, interval time.Duration) Job {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return Job{
		Name:     "orphan-user-sweep",
		Interval: interval,
		Run: func(ctx context.Context) error {
			res, err := cascade.Reconcile(ctx, time.Now().Add(-grace))
			if res.UsersDeleted > 0 || res.EventsDeleted > 0 || res.RegistrationsOut > 0 {
				logger.Info("reconciled orphaned users",
					zap.Int64("users", res.UsersDeleted),
					zap.Int64("events", res.EventsDeleted),
					zap.Int64("registrations", res.RegistrationsOut))
			}
			return err
		},
	}
}

// OAuthStateCleanupJob creates a job that removes expired OAuth state tokens.
// This is a backup for when MongoDB's TTL index cleanup is delayed.
func OAuthStateCleanupJob(stateStore *oauthstate.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "oauth-state-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := stateStore.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up expired OAuth states", zap.Int64("count", count))
			}
			return nil
		},
	}
}
