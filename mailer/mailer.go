package mailer

import (
	"context"
	"fmt"

	"github.com/meinhoongagan/pt-buddy/config"
	"github.com/meinhoongagan/pt-buddy/logger"
)

// Mailer delivers a single HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Client is the mailer used by handlers and jobs. Init replaces it.
var Client Mailer = LogMailer{}

// Init selects the backend named by MAIL_DRIVER.
func Init(ctx context.Context, cfg *config.Config) error {
	var (
		m   Mailer
		err error
	)

	switch cfg.Mail.Driver {
	case "smtp":
		m, err = NewSMTPMailer(cfg.Mail)
	case "ses":
		m, err = NewSESMailer(ctx, cfg.Mail)
	case "mailersend":
		m, err = NewMailerSendMailer(cfg.Mail)
	case "log", "":
		m = LogMailer{}
	default:
		return fmt.Errorf("unknown MAIL_DRIVER %q", cfg.Mail.Driver)
	}
	if err != nil {
		return err
	}

	Client = m
	logger.Info("mailer initialised", "driver", cfg.Mail.Driver)
	return nil
}

// LogMailer only logs; it is the development default.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, to, subject, html string) error {
	logger.InfoContext(ctx, "email not sent (log driver)", "to", to, "subject", subject)
	logger.Debug("email body", "to", to, "body", html)
	return nil
}
