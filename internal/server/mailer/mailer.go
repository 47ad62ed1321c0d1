// Package mailer builds outbound notification messages and hands them to a
// transport. The services only see the Dispatcher interface.
package mailer

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Dispatcher delivers messages. A returned error means nothing was sent.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// VerificationSubject is the subject line of the email ownership message.
const VerificationSubject = "Action Required: Verify Your Email"

// VerificationPath is the route prefix the link in the message points at.
const VerificationPath = "/api/users/verify/"

// VerificationLink is <baseURL>/api/users/verify/<token>, token as a raw path
// segment.
func VerificationLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + VerificationPath + url.PathEscape(token)
}

// VerificationMessage builds the email carrying the verification link.
func VerificationMessage(baseURL, to, token string) Message {
	return Message{
		To:      to,
		Subject: VerificationSubject,
		HTML: fmt.Sprintf(`<a target="_blank" href="%s">Click to verify email</a>`,
			html.EscapeString(VerificationLink(baseURL, token))),
	}
}

// LogDispatcher writes messages to the log instead of sending them. Used when
// no SMTP host is configured.
type LogDispatcher struct {
	log logging.Logger
}

func NewLogDispatcher(log logging.Logger) *LogDispatcher {
	return &LogDispatcher{log: log.With("module", "mailer")}
}

func (d *LogDispatcher) Send(ctx context.Context, msg Message) error {
	d.log.Info(ctx, "mail not sent, no SMTP host configured",
		"to", msg.To, "subject", msg.Subject, "html", msg.HTML)
	return nil
}
