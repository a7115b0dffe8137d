package mail

import (
	"errors"
	"fmt"

	"servicehub/pkg/utils"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

// ErrNotConfigured signals that SMTP settings are absent. Callers fall back
// to surfacing the code to the operator instead of blocking the workflow.
var ErrNotConfigured = errors.New("mail delivery not configured")

// Mailer sends completion codes to customers out-of-band.
type Mailer interface {
	SendCompletionCode(to, serviceTitle, code string, expiryMinutes int) error
}

type smtpMailer struct {
	config utils.EmailConfig
	log    *zap.Logger
}

func NewMailer(config utils.EmailConfig, log *zap.Logger) Mailer {
	return &smtpMailer{
		config: config,
		log:    log.With(zap.String("component", "mailer")),
	}
}

func (m *smtpMailer) SendCompletionCode(to, serviceTitle, code string, expiryMinutes int) error {
	if m.config.Host == "" || m.config.From == "" {
		return ErrNotConfigured
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your service completion code")
	msg.SetBody("text/html", fmt.Sprintf(
		"<p>Your worker has finished <b>%s</b>.</p>"+
			"<p>Share this code with the worker to confirm completion: <b>%s</b></p>"+
			"<p>The code expires in %d minutes. Do not share it before the work is done.</p>",
		serviceTitle, code, expiryMinutes,
	))

	dialer := gomail.NewDialer(m.config.Host, m.config.Port, m.config.User, m.config.Password)
	if err := dialer.DialAndSend(msg); err != nil {
		m.log.Error("Failed to send completion code email",
			zap.Error(err),
			zap.String("to", to),
		)
		return fmt.Errorf("send completion code to %s: %w", to, err)
	}

	m.log.Info("Completion code email sent", zap.String("to", to))
	return nil
}
