// Package accountcascade removes an account together with everything that
// hangs off it: the profile, the login, the organizer's events, and the
// volunteer's open registrations.
//
// The steps run in one transaction when the deployment supports it. On a
// standalone server they run in order and each step is idempotent. The
// profile goes first, so a cascade interrupted after that step leaves a
// login with no profile; Reconcile, run by the orphan-user sweep, finds
// those logins and finishes their cascade. Chat history is kept.
package accountcascade

import (
	"context"
	"errors"
	"time"

	eventstore "github.com/dalemusser/volunteerhub/internal/app/store/events"
	profilestore "github.com/dalemusser/volunteerhub/internal/app/store/profiles"
	userstore "github.com/dalemusser/volunteerhub/internal/app/store/users"
	"github.com/dalemusser/volunteerhub/internal/app/system/normalize"
	"github.com/dalemusser/volunteerhub/internal/app/system/txn"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Result counts what a cascade removed.
type Result struct {
	Profile          profilestore.Ref
	ProfilesDeleted  int64
	UsersDeleted     int64
	EventsDeleted    int64
	RegistrationsOut int64
}

// Deleter runs account cascades.
type Deleter struct {
	client   *mongo.Client
	log      *zap.Logger
	users    *userstore.Store
	profiles *profilestore.Store
	events   *eventstore.Store
}

func New(db *mongo.Database, logger *zap.Logger) *Deleter {
	return &Deleter{
		client:   db.Client(),
		log:      logger,
		users:    userstore.New(db),
		profiles: profilestore.New(db),
		events:   eventstore.New(db),
	}
}

// ByEmail removes the account of type typ with email.
func (d *Deleter) ByEmail(ctx context.Context, typ, email string) (Result, error) {
	typ = normalize.Type(typ)
	if !models.IsProfileType(typ) {
		return Result{}, profilestore.ErrUnknownType
	}
	email = normalize.Email(email)

	var res Result
	err := txn.Run(ctx, d.client, d.log, "delete account", func(ctx context.Context) error {
		res = Result{Profile: profilestore.Ref{Email: email}}
		n, err := d.profiles.DeleteByEmail(ctx, typ, email)
		if err != nil {
			return err
		}
		res.ProfilesDeleted = n
		return d.rest(ctx, typ, email, &res)
	})
	return res, err
}

// ByProfileID removes the profile with id and then the rest of its
// account. It returns profilestore.ErrNotFound when the profile is gone;
// whatever a failed earlier attempt left behind is finished by Reconcile.
func (d *Deleter) ByProfileID(ctx context.Context, typ string, id primitive.ObjectID) (Result, error) {
	typ = normalize.Type(typ)
	var res Result
	err := txn.Run(ctx, d.client, d.log, "reject account", func(ctx context.Context) error {
		res = Result{}
		ref, err := d.profiles.Delete(ctx, typ, id)
		if err != nil {
			return err
		}
		res.Profile = ref
		res.ProfilesDeleted = 1
		return d.rest(ctx, typ, ref.Email, &res)
	})
	return res, err
}

// Reconcile finishes the cascade for every volunteer or organizer login
// created before cutoff whose profile no longer exists: it removes the
// organizer's events or the volunteer's open registrations, then the login.
// One failing account does not stop the others; the first error is returned
// after all were tried.
func (d *Deleter) Reconcile(ctx context.Context, cutoff time.Time) (Result, error) {
	orphans, err := d.users.ListOrphans(ctx, cutoff)
	if err != nil {
		return Result{}, err
	}

	var total Result
	var firstErr error
	for _, u := range orphans {
		var res Result
		err := txn.Run(ctx, d.client, d.log, "reconcile account", func(ctx context.Context) error {
			res = Result{Profile: profilestore.Ref{Email: u.Email}}
			return d.rest(ctx, u.Type, u.Email, &res)
		})
		if err != nil {
			d.log.Warn("reconcile account failed", zap.String("email", u.Email), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		total.UsersDeleted += res.UsersDeleted
		total.EventsDeleted += res.EventsDeleted
		total.RegistrationsOut += res.RegistrationsOut
	}
	return total, firstErr
}

func (d *Deleter) rest(ctx context.Context, typ, email string, res *Result) error {
	u, err := d.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, userstore.ErrNotFound) {
		return err
	}

	switch typ {
	case models.TypeOrganizer:
		if u != nil {
			n, err := d.events.DeleteByOrganizer(ctx, u.ID)
			if err != nil {
				return err
			}
			res.EventsDeleted = n
		}
	case models.TypeVolunteer:
		n, err := d.events.WithdrawVolunteer(ctx, email)
		if err != nil {
			return err
		}
		res.RegistrationsOut = n
	}

	n, err := d.users.DeleteByEmail(ctx, email)
	if err != nil {
		return err
	}
	res.UsersDeleted = n
	return nil
}
