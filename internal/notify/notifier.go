// Package notify renders alert records into messages and hands them to a
// delivery transport.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rewired-gh/fxcorr/internal/logger"
	"github.com/rewired-gh/fxcorr/internal/models"
)

// ErrNotConfigured is reported when a transport has no usable credentials.
var ErrNotConfigured = errors.New("delivery credentials not configured")

// Message is one rendered alert.
type Message struct {
	ID      string
	To      string
	Subject string
	Text    string
}

// Transport delivers a rendered message.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

// Result reports the outcome of one notification attempt.
type Result struct {
	Instrument string `json:"instrument"`
	Delivered  bool   `json:"delivered"`
	Detail     string `json:"detail"`
}

// Notifier turns alert records into messages. It never returns an error;
// every failure is folded into the Result.
type Notifier struct {
	transport Transport
}

// New creates a notifier. A nil transport disables delivery.
func New(t Transport) *Notifier {
	return &Notifier{transport: t}
}

// Notify renders rec and delivers it to the recipient configured in cfg.
func (n *Notifier) Notify(ctx context.Context, rec models.AlertRecord, cfg models.AlertConfig) (res Result) {
	res.Instrument = rec.Instrument

	if !cfg.HasRecipient() {
		res.Detail = "no recipient configured"
		return res
	}
	if n == nil || n.transport == nil {
		res.Detail = "no delivery transport configured"
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Notification for %s panicked: %v", rec.Instrument, r)
			res = Result{Instrument: rec.Instrument, Detail: fmt.Sprintf("delivery panicked: %v", r)}
		}
	}()

	msg := Render(rec, cfg.Threshold())
	msg.To = cfg.Recipient()

	if err := n.transport.Deliver(ctx, msg); err != nil {
		logger.Warn("Failed to deliver alert for %s: %v", rec.Instrument, err)
		res.Detail = err.Error()
		return res
	}

	logger.Debug("Delivered alert %s for %s", msg.ID, rec.Instrument)
	res.Delivered = true
	res.Detail = "delivered"
	return res
}

// Render formats an alert record. The magnitude is always shown with two
// decimals.
func Render(rec models.AlertRecord, threshold float64) Message {
	magnitude := decimal.NewFromFloat(rec.Magnitude()).StringFixed(2)
	return Message{
		ID:      uuid.NewString(),
		Subject: fmt.Sprintf("Currency Alert: %s %s by %s%%", rec.Instrument, rec.Direction, magnitude),
		Text: fmt.Sprintf(
			"%s has %sd by %s%% on %s.\nThis movement exceeds your configured threshold of %s%%.",
			rec.Instrument,
			rec.Direction,
			magnitude,
			rec.Date.Format(models.DateLayout),
			strconv.FormatFloat(threshold, 'f', -1, 64),
		),
	}
}
