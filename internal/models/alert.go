package models

import (
	"errors"
	"math"
	"time"
)

// Direction of a price move.
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

// DirectionOf maps a signed change to its direction. Zero counts as a decrease.
func DirectionOf(percent float64) Direction {
	if percent > 0 {
		return DirectionIncrease
	}
	return DirectionDecrease
}

// ErrInvalidThreshold is returned for a threshold that is not a positive finite percentage.
var ErrInvalidThreshold = errors.New("threshold must be a positive percentage")

// ValidThreshold reports whether threshold can drive an alert scan.
func ValidThreshold(threshold float64) bool {
	return !math.IsNaN(threshold) && !math.IsInf(threshold, 0) && threshold > 0
}

// AlertConfig is the alert setup of one analysis session. It cannot be changed
// after creation; reconfiguring means building a new one.
type AlertConfig struct {
	threshold float64
	recipient string
	createdAt time.Time
}

// NewAlertConfig builds an AlertConfig. The threshold must be a positive finite
// percentage; an empty recipient disables delivery.
func NewAlertConfig(threshold float64, recipient string, createdAt time.Time) (AlertConfig, error) {
	if !ValidThreshold(threshold) {
		return AlertConfig{}, ErrInvalidThreshold
	}
	return AlertConfig{threshold: threshold, recipient: recipient, createdAt: createdAt}, nil
}

func (c AlertConfig) Threshold() float64   { return c.threshold }
func (c AlertConfig) Recipient() string    { return c.recipient }
func (c AlertConfig) CreatedAt() time.Time { return c.createdAt }

// HasRecipient reports whether a notification target is configured.
func (c AlertConfig) HasRecipient() bool { return c.recipient != "" }

// AlertRecord is a threshold crossing found by a scan. Records have no identity
// beyond their fields.
type AlertRecord struct {
	Instrument string    `json:"instrument"`
	Date       time.Time `json:"date"`
	Percent    float64   `json:"percent"`
	Direction  Direction `json:"direction"`
}

// Magnitude returns the absolute percent change.
func (a AlertRecord) Magnitude() float64 {
	return math.Abs(a.Percent)
}
