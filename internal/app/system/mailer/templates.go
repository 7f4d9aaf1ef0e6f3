// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// noticeData feeds the shared HTML layout.
type noticeData struct {
	SiteName string
	Heading  string
	Lines    []string
	Code     string
	Footer   string
}

var noticeTmpl = template.Must(template.New("notice").Parse(noticeHTMLTemplate))

func renderHTML(d noticeData) string {
	var buf bytes.Buffer
	_ = noticeTmpl.Execute(&buf, d)
	return buf.String()
}

func renderText(d noticeData) string {
	var b strings.Builder
	b.WriteString(d.Heading + "\n\n")
	for _, l := range d.Lines {
		b.WriteString(l + "\n")
	}
	if d.Code != "" {
		fmt.Fprintf(&b, "\n    %s\n", d.Code)
	}
	if d.Footer != "" {
		b.WriteString("\n" + d.Footer + "\n")
	}
	b.WriteString("\n- " + d.SiteName + "\n")
	return b.String()
}

func build(to, subject string, d noticeData) Email {
	return Email{
		To:       to,
		Subject:  subject,
		TextBody: renderText(d),
		HTMLBody: renderHTML(d),
	}
}

// AccountDecisionData describes an admin decision on a volunteer or
// organizer account.
type AccountDecisionData struct {
	SiteName    string
	Name        string
	AccountType string
	Approved    bool
}

// BuildAccountDecisionEmail tells the applicant whether their account was
// approved or rejected.
func BuildAccountDecisionEmail(to string, data AccountDecisionData) Email {
	d := noticeData{SiteName: data.SiteName}
	greeting := "Hello"
	if data.Name != "" {
		greeting = "Hello " + data.Name
	}
	if data.Approved {
		d.Heading = "Your account has been approved"
		d.Lines = []string{
			greeting + ",",
			fmt.Sprintf("Your %s account on %s has been approved. You can now sign in and get started.", data.AccountType, data.SiteName),
		}
		return build(to, fmt.Sprintf("Your %s account is approved", data.SiteName), d)
	}
	d.Heading = "Your account request was not approved"
	d.Lines = []string{
		greeting + ",",
		fmt.Sprintf("Unfortunately your %s account request on %s was not approved and has been removed.", data.AccountType, data.SiteName),
		"You are welcome to sign up again.",
	}
	return build(to, fmt.Sprintf("Your %s account request", data.SiteName), d)
}

// EventDecisionData describes an admin decision on an event.
type EventDecisionData struct {
	SiteName   string
	Organizer  string
	EventTitle string
	Approved   bool
}

// BuildEventDecisionEmail tells the organizer the outcome of an event review.
func BuildEventDecisionEmail(to string, data EventDecisionData) Email {
	d := noticeData{SiteName: data.SiteName}
	status := "rejected"
	if data.Approved {
		status = "approved"
	}
	d.Heading = fmt.Sprintf("Your event was %s", status)
	d.Lines = []string{
		fmt.Sprintf("Hello %s,", data.Organizer),
		fmt.Sprintf("Your event %q has been %s by an administrator.", data.EventTitle, status),
	}
	if data.Approved {
		d.Lines = append(d.Lines, "Volunteers can now find it and register.")
	}
	return build(to, fmt.Sprintf("Event %s: %s", status, data.EventTitle), d)
}

// PasswordResetData holds the code sent for a password reset.
type PasswordResetData struct {
	SiteName  string
	Code      string
	ExpiresIn string // e.g., "10 minutes"
}

// BuildPasswordResetEmail creates the OTP email for a password reset.
func BuildPasswordResetEmail(to string, data PasswordResetData) Email {
	d := noticeData{
		SiteName: data.SiteName,
		Heading:  "Reset your password",
		Lines:    []string{"Use this code to reset your password:"},
		Code:     data.Code,
		Footer:   fmt.Sprintf("This code expires in %s. If you did not request a reset, you can ignore this email.", data.ExpiresIn),
	}
	return build(to, fmt.Sprintf("Your %s password reset code", data.SiteName), d)
}

const noticeHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Heading}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 16px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 22px; font-weight: 600; color: #059669;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <h2 style="margin: 0 0 16px; font-size: 18px; color: #111827;">{{.Heading}}</h2>
              {{range .Lines}}<p style="margin: 0 0 12px; font-size: 15px; color: #374151; line-height: 1.5;">{{.}}</p>
              {{end}}{{if .Code}}
              <div style="background-color: #f3f4f6; border-radius: 8px; padding: 24px; text-align: center; margin: 16px 0;">
                <span style="font-size: 32px; font-weight: 700; letter-spacing: 8px; color: #1f2937; font-family: 'Courier New', monospace;">{{.Code}}</span>
              </div>{{end}}
              {{if .Footer}}<p style="margin: 16px 0 0; font-size: 13px; color: #6b7280;">{{.Footer}}</p>{{end}}
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
