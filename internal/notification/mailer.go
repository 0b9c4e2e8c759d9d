package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/pulsetrack/pulsetrack/internal/config"
)

// Mailer sends transactional mail: sign-in links, invites and report
// digests. With no SMTP host configured it logs instead of sending, which
// keeps development setups working.
type Mailer struct {
	cfg config.SMTPConfig
	log *zap.Logger
}

// NewMailer creates a Mailer from the configured SMTP settings.
func NewMailer(cfg config.SMTPConfig, log *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log}
}

// Send submits one plain-text message.
func (m *Mailer) Send(to, subject, body string) error {
	if m.cfg.Host == "" {
		m.log.Info("mail delivery disabled, dropping message",
			zap.String("to", to),
			zap.String("subject", subject))
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
