package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"golang.org/x/oauth2"
)

func TestReminderFor(t *testing.T) {
	s := New(Config{TimeZone: "UTC"})
	date := time.Date(2026, time.May, 2, 0, 0, 0, 0, time.UTC)

	r := s.ReminderFor(models.Event{Title: "Park", Date: date, StartTime: "09:30", EndTime: "12:00"})
	if r.AllDay {
		t.Fatal("timed event reported as all-day")
	}
	if r.Start != time.Date(2026, time.May, 2, 9, 30, 0, 0, time.UTC) {
		t.Errorf("start: %v", r.Start)
	}
	if r.End != time.Date(2026, time.May, 2, 12, 0, 0, 0, time.UTC) {
		t.Errorf("end: %v", r.End)
	}

	r = s.ReminderFor(models.Event{Date: date, StartTime: "10:00", EndTime: "09:00"})
	if r.End.Sub(r.Start) != 2*time.Hour {
		t.Errorf("inverted end should default to two hours, got %v", r.End.Sub(r.Start))
	}

	r = s.ReminderFor(models.Event{Date: date})
	if !r.AllDay || r.End.Sub(r.Start) != 24*time.Hour {
		t.Errorf("all-day: %+v", r)
	}
}

func TestDisabled(t *testing.T) {
	s := New(Config{})
	if s.Enabled() {
		t.Fatal("expected disabled service")
	}
	if _, err := s.AuthURL("x"); err != ErrDisabled {
		t.Errorf("AuthURL: %v", err)
	}
	if _, _, err := s.Insert(context.Background(), &oauth2.Token{}, Reminder{}); err != ErrDisabled {
		t.Errorf("Insert: %v", err)
	}
}

func TestAuthURL(t *testing.T) {
	s := New(Config{ClientID: "cid", ClientSecret: "secret", RedirectURL: "https://app.example.com/api/calendar/callback"})
	u, err := s.AuthURL("state-123")
	if err != nil {
		t.Fatalf("AuthURL: %v", err)
	}
	for _, want := range []string{"state=state-123", "access_type=offline", "client_id=cid"} {
		if !strings.Contains(u, want) {
			t.Errorf("auth url %q missing %q", u, want)
		}
	}
}

func TestInsert(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/calendars/primary/events") {
			http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer access-1" {
			http.Error(w, "bad auth", http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"evt1","htmlLink":"https://calendar.example.com/evt1"}`))
	}))
	defer srv.Close()

	s := New(Config{ClientID: "cid", ClientSecret: "secret", Endpoint: srv.URL + "/"})
	tok := &oauth2.Token{AccessToken: "access-1", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}

	link, fresh, err := s.Insert(context.Background(), tok, Reminder{
		Title: "Beach cleanup",
		Start: time.Date(2026, time.May, 2, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.May, 2, 11, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if link != "https://calendar.example.com/evt1" {
		t.Errorf("link: %q", link)
	}
	if fresh == nil || fresh.AccessToken != "access-1" {
		t.Errorf("token: %+v", fresh)
	}
	if got["summary"] != "Beach cleanup" {
		t.Errorf("request body: %v", got)
	}
}
