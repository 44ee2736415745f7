package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/fxcorr/internal/models"
)

type fakeTransport struct {
	sent  []Message
	err   error
	panic bool
}

func (f *fakeTransport) Deliver(_ context.Context, msg Message) error {
	if f.panic {
		panic("boom")
	}
	f.sent = append(f.sent, msg)
	return f.err
}

var record = models.AlertRecord{
	Instrument: "USD-INR",
	Date:       time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	Percent:    -1.9608,
	Direction:  models.DirectionDecrease,
}

func mustConfig(t *testing.T, threshold float64, recipient string) models.AlertConfig {
	t.Helper()
	cfg, err := models.NewAlertConfig(threshold, recipient, time.Now())
	require.NoError(t, err)
	return cfg
}

func TestRender(t *testing.T) {
	msg := Render(record, 1.5)

	assert.Equal(t, "Currency Alert: USD-INR decrease by 1.96%", msg.Subject)
	assert.Equal(t, "USD-INR has decreased by 1.96% on 2024-03-02.\nThis movement exceeds your configured threshold of 1.5%.", msg.Text)
	assert.NotEmpty(t, msg.ID)
}

func TestRender_PadsMagnitude(t *testing.T) {
	rec := record
	rec.Percent = 2
	rec.Direction = models.DirectionIncrease

	msg := Render(rec, 1)

	assert.Contains(t, msg.Subject, "increase by 2.00%")
	assert.Contains(t, msg.Text, "increased by 2.00%")
	assert.Contains(t, msg.Text, "threshold of 1%")
}

func TestNotify_Delivered(t *testing.T) {
	tr := &fakeTransport{}
	n := New(tr)

	res := n.Notify(context.Background(), record, mustConfig(t, 1.5, "ops@example.com"))

	assert.True(t, res.Delivered)
	assert.Equal(t, "USD-INR", res.Instrument)
	require.Len(t, tr.sent, 1)
	assert.Equal(t, "ops@example.com", tr.sent[0].To)
}

func TestNotify_NoRecipient(t *testing.T) {
	tr := &fakeTransport{}

	res := New(tr).Notify(context.Background(), record, mustConfig(t, 1.5, ""))

	assert.False(t, res.Delivered)
	assert.Equal(t, "no recipient configured", res.Detail)
	assert.Empty(t, tr.sent)
}

func TestNotify_NoTransport(t *testing.T) {
	res := New(nil).Notify(context.Background(), record, mustConfig(t, 1.5, "ops@example.com"))
	assert.False(t, res.Delivered)
	assert.NotEmpty(t, res.Detail)
}

func TestNotify_TransportError(t *testing.T) {
	tr := &fakeTransport{err: errors.New("connection refused")}

	res := New(tr).Notify(context.Background(), record, mustConfig(t, 1.5, "ops@example.com"))

	assert.False(t, res.Delivered)
	assert.Equal(t, "connection refused", res.Detail)
}

func TestNotify_TransportPanic(t *testing.T) {
	tr := &fakeTransport{panic: true}

	res := New(tr).Notify(context.Background(), record, mustConfig(t, 1.5, "ops@example.com"))

	assert.False(t, res.Delivered)
	assert.Contains(t, res.Detail, "boom")
}

func TestNotify_MissingCredentials(t *testing.T) {
	res := New(NewSMTPTransport(SMTPConfig{Port: 587})).
		Notify(context.Background(), record, mustConfig(t, 1.5, "ops@example.com"))

	assert.False(t, res.Delivered)
	assert.Equal(t, ErrNotConfigured.Error(), res.Detail)
}

func TestSMTPTransport_Deliver(t *testing.T) {
	cfg := SMTPConfig{Server: "smtp.example.com", Port: 587, Username: "bot@example.com", Password: "secret"}
	tr := NewSMTPTransport(cfg)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotBody []byte
	tr.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotBody = addr, from, to, msg
		return nil
	}

	msg := Render(record, 1.5)
	msg.To = "ops@example.com"
	require.NoError(t, tr.Deliver(context.Background(), msg))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "bot@example.com", gotFrom)
	assert.Equal(t, []string{"ops@example.com"}, gotTo)
	body := string(gotBody)
	assert.True(t, strings.HasPrefix(body, "From: bot@example.com\r\n"))
	assert.Contains(t, body, "Subject: Currency Alert: USD-INR decrease by 1.96%\r\n")
	assert.Contains(t, body, "\r\n\r\nUSD-INR has decreased by 1.96% on 2024-03-02.\r\n")
}

func TestSMTPTransport_HeaderValuesStayOnOneLine(t *testing.T) {
	tr := NewSMTPTransport(SMTPConfig{Server: "smtp.example.com", Port: 587, Username: "bot@example.com", Password: "secret"})
	var gotBody string
	tr.send = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotBody = string(msg)
		return nil
	}

	rec := record
	rec.Instrument = "XXX\r\nBcc: victim@example.com"
	rec.Direction = models.DirectionIncrease
	rec.Percent = 3
	res := New(tr).Notify(context.Background(), rec, mustConfig(t, 1.5, "ops@example.com"))
	require.True(t, res.Delivered, res.Detail)

	headers, _, found := strings.Cut(gotBody, "\r\n\r\n")
	require.True(t, found)
	for _, line := range strings.Split(headers, "\r\n") {
		name, _, _ := strings.Cut(line, ":")
		assert.Contains(t, []string{"From", "To", "Subject", "Message-ID", "MIME-Version", "Content-Type"}, name)
	}
	assert.Contains(t, headers, "Subject: Currency Alert: XXX Bcc: victim@example.com increase by 3.00%\r\n")
	assert.NotContains(t, strings.ToLower(headers), "\r\nbcc:")
}

func TestSMTPTransport_SendError(t *testing.T) {
	tr := NewSMTPTransport(SMTPConfig{Server: "h", Port: 25, Username: "u", Password: "p", From: "alerts@example.com"})
	tr.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("535 auth failed")
	}

	err := tr.Deliver(context.Background(), Message{ID: "x", To: "ops@example.com"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "535 auth failed")
}

func TestLoadSMTPConfig(t *testing.T) {
	t.Setenv("SMTP_SERVER", "mail.example.com")
	t.Setenv("SMTP_USERNAME", "u")
	t.Setenv("SMTP_PASSWORD", "p")
	t.Setenv("SMTP_PORT", "2525")

	cfg, err := LoadSMTPConfig()

	require.NoError(t, err)
	assert.Equal(t, "mail.example.com", cfg.Server)
	assert.Equal(t, 2525, cfg.Port)
	assert.NoError(t, cfg.Validate())
}
