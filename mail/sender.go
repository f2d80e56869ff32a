package mail

import (
	"context"
	"go-books-api/config"

	"gopkg.in/gomail.v2"
)

// Sender delivers one HTML message to a set of recipients.
type Sender interface {
	Send(ctx context.Context, addresses []string, subject, htmlBody string) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	dialer   dialer
	from     string
	fromName string
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:     cfg.From,
		fromName: cfg.FromName,
	}
}

func (s *SMTPSender) Send(ctx context.Context, addresses []string, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", addresses...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	return s.dialer.DialAndSend(m)
}
