package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	sc "github.com/dmitrijs2005/gophauth/internal/server/config"
)

// dialAndSend is a seam for tests.
var dialAndSend = func(ctx context.Context, c *mail.Client, msgs ...*mail.Msg) error {
	return c.DialAndSendWithContext(ctx, msgs...)
}

// SMTPDispatcher sends mail through an SMTP relay. Each Send opens its own
// connection; the timeout is applied to the whole exchange.
type SMTPDispatcher struct {
	client *mail.Client
	from   string
}

// NewSMTPDispatcher builds a client from the SMTP settings in cfg. Auth is
// enabled only when a user is set; TLS is used when the server offers it.
func NewSMTPDispatcher(cfg *sc.Config) (*SMTPDispatcher, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(cfg.MailTimeout),
	}
	if cfg.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUser),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return &SMTPDispatcher{client: client, from: cfg.MailFrom}, nil
}

func (d *SMTPDispatcher) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(d.from); err != nil {
		return fmt.Errorf("from %q: %w", d.from, err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("to %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	if err := dialAndSend(ctx, d.client, m); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}
