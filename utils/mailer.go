package utils

import (
	"bytes"
	"fmt"
	"log"
	"time"

	"gopkg.in/gomail.v2"

	"phishmail/config"
	"phishmail/mailclient"
	"phishmail/models"
)

// Mailer submits composed messages over SMTP and archives a copy into
// the sent folder over IMAP.
type Mailer struct {
	cfg    *config.Config
	dial   mailclient.Dialer
	logger *log.Logger
}

func NewMailer(cfg *config.Config, dial mailclient.Dialer, logger *log.Logger) *Mailer {
	return &Mailer{
		cfg:    cfg,
		dial:   dial,
		logger: logger,
	}
}

// Send submits the message and appends a copy to the sent folder. It
// returns the local summary of the sent message for the optimistic
// cache insert.
func (m *Mailer) Send(to, subject, body string) (models.MessageSummary, error) {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.FromEmail)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	d := gomail.NewDialer(m.cfg.SMTPHost, m.cfg.SMTPPort, m.cfg.SMTPUsername, m.cfg.SMTPPassword)
	if !m.cfg.SMTPTLS {
		d.SSL = true
	}
	if err := d.DialAndSend(msg); err != nil {
		return models.MessageSummary{}, fmt.Errorf("failed to send email: %w", err)
	}

	if err := m.appendToSent(msg); err != nil {
		// The message went out; a missing sent-folder copy is only
		// logged since the send itself succeeded.
		m.logger.Printf("Failed to archive sent copy: %v", err)
	}

	now := time.Now()
	return models.MessageSummary{
		SenderName:     m.cfg.FromEmail,
		SenderEmail:    m.cfg.FromEmail,
		RecipientEmail: to,
		Subject:        subject,
		Body:           body,
		Date:           now.Format(time.RFC1123Z),
		Timestamp:      now.Unix(),
		Read:           true,
	}, nil
}

func (m *Mailer) appendToSent(msg *gomail.Message) error {
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to render message: %w", err)
	}

	s, err := m.dial()
	if err != nil {
		return err
	}
	defer s.Logout() //nolint:errcheck

	sent := mailclient.ResolveFolder(s, models.RoleSent)
	mailclient.EnsureFolder(s, sent)
	if err := s.Append(sent, time.Now(), buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append to %q: %w", sent, err)
	}
	return nil
}
