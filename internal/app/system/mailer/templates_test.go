package mailer

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestBuildPasswordResetEmail(t *testing.T) {
	e := BuildPasswordResetEmail("v@example.com", PasswordResetData{
		SiteName:  "VolunteerHub",
		Code:      "123456",
		ExpiresIn: "10 minutes",
	})

	if e.To != "v@example.com" {
		t.Errorf("To: got %q", e.To)
	}
	if !strings.Contains(e.Subject, "VolunteerHub") {
		t.Errorf("Subject should name the site: %q", e.Subject)
	}
	for _, body := range []string{e.TextBody, e.HTMLBody} {
		if !strings.Contains(body, "123456") {
			t.Error("body should contain the code")
		}
		if !strings.Contains(body, "10 minutes") {
			t.Error("body should contain the expiry")
		}
	}
}

func TestBuildAccountDecisionEmail(t *testing.T) {
	approved := BuildAccountDecisionEmail("o@example.com", AccountDecisionData{
		SiteName: "VolunteerHub", Name: "Olive", AccountType: "organizer", Approved: true,
	})
	if !strings.Contains(approved.TextBody, "approved") {
		t.Errorf("approved body: %q", approved.TextBody)
	}

	rejected := BuildAccountDecisionEmail("o@example.com", AccountDecisionData{
		SiteName: "VolunteerHub", Name: "Olive", AccountType: "organizer",
	})
	if !strings.Contains(rejected.TextBody, "not approved") {
		t.Errorf("rejected body: %q", rejected.TextBody)
	}
}

func TestBuildEventDecisionEmail_EscapesHTML(t *testing.T) {
	e := BuildEventDecisionEmail("o@example.com", EventDecisionData{
		SiteName: "VolunteerHub", Organizer: "Olive", EventTitle: "<script>x</script>", Approved: true,
	})
	if strings.Contains(e.HTMLBody, "<script>") {
		t.Error("HTML body must escape event title")
	}
	if !strings.Contains(e.Subject, "approved") {
		t.Errorf("Subject: %q", e.Subject)
	}
}

type recordingSender struct{ got chan Email }

func (r recordingSender) Send(_ context.Context, e Email) error {
	r.got <- e
	return nil
}

func TestSendAsync(t *testing.T) {
	rs := recordingSender{got: make(chan Email, 1)}
	SendAsync(rs, zap.NewNop(), Email{To: "a@example.com", Subject: "hi"})
	e := <-rs.got
	if e.To != "a@example.com" {
		t.Errorf("To: got %q", e.To)
	}

	// Empty recipient is skipped.
	SendAsync(rs, zap.NewNop(), Email{})
	select {
	case <-rs.got:
		t.Error("email without recipient should not be sent")
	default:
	}
}

func TestLogSender(t *testing.T) {
	if err := (LogSender{Log: zap.NewNop()}).Send(context.Background(), Email{To: "x@example.com"}); err != nil {
		t.Errorf("LogSender.Send: %v", err)
	}
}
