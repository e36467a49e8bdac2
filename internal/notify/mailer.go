package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hugh/taskhub/pkg/config"
	"github.com/wneessen/go-mail"
)

// Mailer sends a rendered message
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer delivers through an SMTP relay. A connection is opened per
// message; notification volume does not justify pooling.
type SMTPMailer struct {
	from string
	opts []mail.Option
	host string
}

func NewSMTPMailer(cfg *config.MailConfig) *SMTPMailer {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(tlsPolicy(cfg.TLS)),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	return &SMTPMailer{from: cfg.From, opts: opts, host: cfg.Host}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	email := mail.NewMsg()
	if err := email.From(m.from); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := email.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	email.Subject(msg.Subject)
	email.SetBodyString(mail.TypeTextPlain, msg.Body)

	client, err := mail.NewClient(m.host, m.opts...)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, email); err != nil {
		return fmt.Errorf("sending mail to %s: %w", msg.To, err)
	}
	return nil
}

func tlsPolicy(name string) mail.TLSPolicy {
	switch name {
	case "none":
		return mail.NoTLS
	case "mandatory":
		return mail.TLSMandatory
	default:
		return mail.TLSOpportunistic
	}
}

// MailDeliverer renders and sends a notification directly, without a queue
type MailDeliverer struct {
	Mailer Mailer
}

func (d MailDeliverer) Deliver(ctx context.Context, n Notification) error {
	msg, err := Compose(n)
	if err != nil {
		return err
	}
	return d.Mailer.Send(ctx, msg)
}

// LogMailer writes messages to the log instead of sending them. It stands in
// when no SMTP host is configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) Send(_ context.Context, msg Message) error {
	m.Logger.Info("mail not sent, no smtp host configured",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}
