package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	sc "github.com/dmitrijs2005/gophauth/internal/server/config"
)

func newTestConfig() *sc.Config {
	cfg := &sc.Config{}
	cfg.LoadDefaults()
	cfg.SMTPHost = "smtp.example.com"
	cfg.SMTPUser = "user"
	cfg.SMTPPassword = "pass"
	cfg.MailFrom = "no-reply@example.com"
	cfg.MailTimeout = time.Second
	return cfg
}

func TestSMTPDispatcher_Send(t *testing.T) {
	d, err := NewSMTPDispatcher(newTestConfig())
	require.NoError(t, err)

	var sent []*mail.Msg
	orig := dialAndSend
	dialAndSend = func(_ context.Context, c *mail.Client, msgs ...*mail.Msg) error {
		require.Same(t, d.client, c)
		sent = append(sent, msgs...)
		return nil
	}
	defer func() { dialAndSend = orig }()

	msg := VerificationMessage("http://localhost:3000", "a@x.com", "tok")
	require.NoError(t, d.Send(context.Background(), msg))
	require.Len(t, sent, 1)

	assert.Equal(t, []string{"<no-reply@example.com>"}, sent[0].GetFromString())
	assert.Equal(t, []string{"<a@x.com>"}, sent[0].GetToString())

	var body strings.Builder
	_, err = sent[0].WriteTo(&body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "Action Required: Verify Your Email")
}

func TestSMTPDispatcher_SendError(t *testing.T) {
	d, err := NewSMTPDispatcher(newTestConfig())
	require.NoError(t, err)

	orig := dialAndSend
	dialAndSend = func(context.Context, *mail.Client, ...*mail.Msg) error {
		return errors.New("connection refused")
	}
	defer func() { dialAndSend = orig }()

	err = d.Send(context.Background(), Message{To: "a@x.com", Subject: "s", HTML: "h"})
	assert.ErrorContains(t, err, "connection refused")
}

func TestSMTPDispatcher_BadRecipient(t *testing.T) {
	d, err := NewSMTPDispatcher(newTestConfig())
	require.NoError(t, err)

	err = d.Send(context.Background(), Message{To: "not an address", Subject: "s", HTML: "h"})
	assert.Error(t, err)
}

func TestNewSMTPDispatcher_EmptyHost(t *testing.T) {
	cfg := newTestConfig()
	cfg.SMTPHost = ""

	_, err := NewSMTPDispatcher(cfg)
	assert.Error(t, err)
}
