// Package alert detects daily moves whose magnitude exceeds a configured
// percentage threshold.
package alert

import (
	"sort"
	"time"

	"github.com/rewired-gh/fxcorr/internal/models"
)

// ErrInvalidThreshold is returned when the threshold is not a positive percentage.
var ErrInvalidThreshold = models.ErrInvalidThreshold

// NewConfig builds the alert configuration for a session, stamped with the
// current time.
func NewConfig(threshold float64, recipient string) (models.AlertConfig, error) {
	return models.NewAlertConfig(threshold, recipient, time.Now())
}

// Scan emits one record for every defined change whose magnitude is strictly
// greater than threshold. Records are ordered most recent date first; records
// sharing a date keep the column order of the table.
func Scan(table models.PercentChangeTable, threshold float64) ([]models.AlertRecord, error) {
	if !models.ValidThreshold(threshold) {
		return nil, ErrInvalidThreshold
	}

	alerts := []models.AlertRecord{}
	for _, col := range table.Columns {
		for _, p := range col.Points {
			if !p.Defined {
				continue
			}
			if exceeds(p.Percent, threshold) {
				alerts = append(alerts, models.AlertRecord{
					Instrument: col.Instrument,
					Date:       p.Date,
					Percent:    p.Percent,
					Direction:  models.DirectionOf(p.Percent),
				})
			}
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Date.After(alerts[j].Date)
	})

	return alerts, nil
}

func exceeds(percent, threshold float64) bool {
	return percent > threshold || percent < -threshold
}

// Breaches lists the instruments whose peak move exceeds threshold, in input
// order.
func Breaches(peaks []models.PeakMove, threshold float64) []string {
	var ids []string
	for _, p := range peaks {
		if p.Defined && exceeds(p.Percent, threshold) {
			ids = append(ids, p.Instrument)
		}
	}
	return ids
}
