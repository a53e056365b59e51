package mailer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
	"github.com/meinhoongagan/pt-buddy/config"
)

type MailerSendMailer struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSendMailer(cfg config.MailConfig) (*MailerSendMailer, error) {
	if cfg.MailerSendAPIKey == "" || cfg.From == "" {
		return nil, fmt.Errorf("MAILERSEND_API_KEY and MAIL_FROM are required for the mailersend driver")
	}
	return &MailerSendMailer{
		client: mailersend.NewMailersend(cfg.MailerSendAPIKey),
		from:   mailersend.From{Name: cfg.FromName, Email: cfg.From},
	}, nil
}

func (m *MailerSendMailer) Send(ctx context.Context, to, subject, html string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Email: to}})
	msg.SetSubject(subject)
	msg.SetHTML(html)

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
