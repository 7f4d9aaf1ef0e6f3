// Package calendar connects user Google calendars and inserts event
// reminders into them.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// ErrDisabled is returned when no OAuth client is configured.
var ErrDisabled = errors.New("calendar integration is not configured")

// Config holds the Google OAuth client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TimeZone     string // IANA zone events are scheduled in; defaults to UTC

	// Endpoint overrides the Calendar API base URL (tests).
	Endpoint string
}

// Service wraps the OAuth config and the Calendar API client.
type Service struct {
	oauth    *oauth2.Config
	loc      *time.Location
	endpoint string
}

// New builds the service. It never fails; an empty client id yields a
// disabled service.
func New(cfg Config) *Service {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil || cfg.TimeZone == "" {
		loc = time.UTC
	}
	s := &Service{loc: loc, endpoint: cfg.Endpoint}
	if cfg.ClientID != "" {
		s.oauth = &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{gcal.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		}
	}
	return s
}

// Enabled reports whether an OAuth client is configured.
func (s *Service) Enabled() bool { return s != nil && s.oauth != nil }

// AuthURL returns the consent URL for state. Offline access with forced
// consent makes Google return a refresh token.
func (s *Service) AuthURL(state string) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Exchange trades an authorization code for a token.
func (s *Service) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	return s.oauth.Exchange(ctx, code)
}

// Reminder is a calendar entry for one event.
type Reminder struct {
	Title       string
	Description string
	Location    string
	AllDay      bool
	Start       time.Time
	End         time.Time
}

// ReminderFor converts an event into a calendar entry. Events without a
// start time become all-day entries; a missing or inverted end time
// defaults to two hours after the start.
func (s *Service) ReminderFor(e models.Event) Reminder {
	r := Reminder{
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
	}
	day := time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(), 0, 0, 0, 0, s.loc)

	start, okStart := atClock(day, e.StartTime)
	if !okStart {
		r.AllDay = true
		r.Start = day
		r.End = day.AddDate(0, 0, 1)
		return r
	}
	end, okEnd := atClock(day, e.EndTime)
	if !okEnd || !end.After(start) {
		end = start.Add(2 * time.Hour)
	}
	r.Start, r.End = start, end
	return r
}

func atClock(day time.Time, hhmm string) (time.Time, bool) {
	if hhmm == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, false
	}
	return day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute), true
}

// Insert adds r to the user's primary calendar. It returns the link to the
// created entry and the token, which may have been refreshed and should be
// saved again.
func (s *Service) Insert(ctx context.Context, tok *oauth2.Token, r Reminder) (string, *oauth2.Token, error) {
	if !s.Enabled() {
		return "", nil, ErrDisabled
	}
	ts := s.oauth.TokenSource(ctx, tok)

	opts := []option.ClientOption{option.WithTokenSource(ts)}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return "", nil, fmt.Errorf("calendar client: %w", err)
	}

	ev := &gcal.Event{
		Summary:     r.Title,
		Description: r.Description,
		Location:    r.Location,
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "popup", Minutes: 60},
				{Method: "email", Minutes: 24 * 60},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
	if r.AllDay {
		ev.Start = &gcal.EventDateTime{Date: r.Start.Format("2006-01-02")}
		ev.End = &gcal.EventDateTime{Date: r.End.Format("2006-01-02")}
	} else {
		ev.Start = &gcal.EventDateTime{DateTime: r.Start.Format(time.RFC3339), TimeZone: s.loc.String()}
		ev.End = &gcal.EventDateTime{DateTime: r.End.Format(time.RFC3339), TimeZone: s.loc.String()}
	}

	created, err := svc.Events.Insert("primary", ev).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("insert calendar event: %w", err)
	}

	fresh, err := ts.Token()
	if err != nil {
		fresh = tok
	}
	return created.HtmlLink, fresh, nil
}
