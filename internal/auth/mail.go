package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/dohr-michael/askbetter/internal/config"
	"github.com/dohr-michael/askbetter/internal/secrets"
)

const resetBody = `Someone asked to reset the password of your askbetter account.

Open this link to choose a new one:

%s

If you did not ask for it, ignore this email.
`

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, link string) error
}

// NewMailer returns an SMTP mailer when cfg names a relay host, and
// LogMailer otherwise.
func NewMailer(cfg config.MailConfig) (Mailer, error) {
	if cfg.Host == "" {
		slog.Warn("auth.mail.host not set, password reset links will not be delivered")
		return LogMailer{}, nil
	}
	if cfg.From == "" {
		return nil, errors.New("auth.mail.from is required when auth.mail.host is set")
	}

	opts := []mail.Option{mail.WithPort(cfg.Port)}
	switch strings.ToLower(cfg.TLS) {
	case "", "mandatory":
		if cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		} else {
			opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		}
	case "opportunistic":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	case "none":
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	default:
		return nil, fmt.Errorf("auth.mail.tls: unknown policy %q", cfg.TLS)
	}
	if cfg.Username != "" {
		password, err := secrets.Reveal(cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("auth.mail.password: %w", err)
		}
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From}, nil
}

// SMTPMailer sends reset links through an SMTP relay.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, email, link string) error {
	msg, err := m.message(email, link)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	slog.Info("password reset email sent", "email", email)
	return nil
}

func (m *SMTPMailer) message(email, link string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(email); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject("Reset your askbetter password")

	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(resetBody, link))
	return msg, nil
}

// LogMailer is the development fallback: it logs that a reset was
// requested without the token.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(_ context.Context, email, link string) error {
	slog.Info("password reset requested", "email", email, "link", redactToken(link))
	return nil
}

func redactToken(link string) string {
	i := strings.LastIndex(link, "token=")
	if i < 0 {
		return "[redacted]"
	}
	return link[:i+len("token=")] + "[redacted]"
}
