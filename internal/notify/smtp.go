package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// SMTPConfig holds mail credentials, read from the environment.
type SMTPConfig struct {
	Server   string `envconfig:"SMTP_SERVER"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	Username string `envconfig:"SMTP_USERNAME"`
	Password string `envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"SMTP_FROM"`
}

// LoadSMTPConfig reads the SMTP_* environment variables.
func LoadSMTPConfig() (SMTPConfig, error) {
	var cfg SMTPConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return SMTPConfig{}, fmt.Errorf("failed to read smtp environment: %w", err)
	}
	return cfg, nil
}

// Validate reports ErrNotConfigured when any credential is missing.
func (c SMTPConfig) Validate() error {
	if c.Server == "" || c.Port <= 0 || c.Username == "" || c.Password == "" {
		return ErrNotConfigured
	}
	return nil
}

func (c SMTPConfig) sender() string {
	if c.From != "" {
		return c.From
	}
	return c.Username
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPTransport delivers messages by email.
type SMTPTransport struct {
	cfg  SMTPConfig
	send sendFunc
}

// NewSMTPTransport creates an email transport. Delivery fails with
// ErrNotConfigured until the credentials are complete.
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	return &SMTPTransport{cfg: cfg, send: smtp.SendMail}
}

// Deliver sends msg to msg.To. smtp.SendMail upgrades to STARTTLS when the
// server offers it.
func (t *SMTPTransport) Deliver(ctx context.Context, msg Message) error {
	if err := t.cfg.Validate(); err != nil {
		return err
	}
	if msg.To == "" {
		return fmt.Errorf("message %s has no recipient", msg.ID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(t.cfg.Server, strconv.Itoa(t.cfg.Port))
	auth := smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Server)
	if err := t.send(addr, auth, t.cfg.sender(), []string{msg.To}, composeMail(t.cfg.sender(), msg)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return nil
}

// headerValue folds CR and LF out of a header value so it cannot start a
// new header line.
var headerValue = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace

func composeMail(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", headerValue(from))
	fmt.Fprintf(&b, "To: %s\r\n", headerValue(msg.To))
	fmt.Fprintf(&b, "Subject: %s\r\n", headerValue(msg.Subject))
	fmt.Fprintf(&b, "Message-ID: <%s@fxcorr>\r\n", headerValue(msg.ID))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Text, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
