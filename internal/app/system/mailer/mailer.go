// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Email is a single outgoing message. HTMLBody is optional.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers an Email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
}

// Mailer sends email over SMTP.
type Mailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
	log      *zap.Logger
}

// New creates an SMTP mailer. Empty credentials mean an unauthenticated
// relay (e.g. Mailpit in development).
func New(cfg Config, logger *zap.Logger) *Mailer {
	return &Mailer{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass),
		from:     cfg.From,
		fromName: cfg.FromName,
		log:      logger,
	}
}

// Send builds a multipart message and delivers it. gomail has no context
// support, so ctx is only checked before dialing.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", e.To)
	msg.SetHeader("Subject", e.Subject)
	msg.SetBody("text/plain", e.TextBody)
	if e.HTMLBody != "" {
		msg.AddAlternative("text/html", e.HTMLBody)
	}

	start := time.Now()
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", e.To, err)
	}
	m.log.Info("email sent",
		zap.String("to", e.To),
		zap.String("subject", e.Subject),
		zap.Duration("took", time.Since(start)))
	return nil
}

// LogSender logs emails instead of sending them. Used when SMTP is not
// configured.
type LogSender struct {
	Log *zap.Logger
}

// Send logs the message metadata.
func (l LogSender) Send(_ context.Context, e Email) error {
	l.Log.Info("email (not sent, smtp disabled)",
		zap.String("to", e.To),
		zap.String("subject", e.Subject))
	return nil
}

// SendAsync delivers e in the background with its own timeout. Failures are
// logged; notification email never fails the request that triggered it.
func SendAsync(s Sender, log *zap.Logger, e Email) {
	if s == nil || e.To == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Send(ctx, e); err != nil {
			log.Warn("notification email failed",
				zap.String("to", e.To),
				zap.String("subject", e.Subject),
				zap.Error(err))
		}
	}()
}
