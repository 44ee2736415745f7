// Package models defines the core domain entities: price series, percent-change
// tables, correlation results, and alerts.
package models

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Provenance tells whether a series was genuinely retrieved or synthesized.
type Provenance string

const (
	ProvenanceRetrieved Provenance = "retrieved"
	ProvenanceSynthetic Provenance = "synthetic"
)

// DateLayout is the calendar-day format used on every external surface.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PricePoint is one daily closing price.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is a chronological price series for one instrument.
// Dates are strictly increasing.
type PriceSeries struct {
	Instrument string       `json:"instrument"`
	Provenance Provenance   `json:"provenance"`
	Points     []PricePoint `json:"points"`
}

// ValidationError collects every reason a value failed validation.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Reasons)
}

// Validate checks series field constraints.
func (s *PriceSeries) Validate() error {
	var reasons []string
	if s.Instrument == "" {
		reasons = append(reasons, "instrument must not be empty")
	}
	switch s.Provenance {
	case ProvenanceRetrieved, ProvenanceSynthetic:
	default:
		reasons = append(reasons, "provenance must be retrieved or synthetic")
	}
	for i, p := range s.Points {
		if math.IsNaN(p.Close) || math.IsInf(p.Close, 0) || p.Close < 0 {
			reasons = append(reasons, fmt.Sprintf("point %d: price must be finite and non-negative", i))
		}
		if i > 0 && !p.Date.After(s.Points[i-1].Date) {
			reasons = append(reasons, fmt.Sprintf("point %d: dates must be strictly increasing", i))
		}
	}
	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

// Synthetic reports whether the series was produced by the fallback generator.
func (s *PriceSeries) Synthetic() bool {
	return s.Provenance == ProvenanceSynthetic
}

// PriceTable is a set of price series sharing a calendar axis. Column order is
// the order in which instruments were requested.
type PriceTable struct {
	Series []PriceSeries `json:"series"`
}

// Empty reports whether the table holds no price at all.
func (t PriceTable) Empty() bool {
	for _, s := range t.Series {
		if len(s.Points) > 0 {
			return false
		}
	}
	return true
}

// Instruments returns the column identifiers in table order.
func (t PriceTable) Instruments() []string {
	ids := make([]string, 0, len(t.Series))
	for _, s := range t.Series {
		ids = append(ids, s.Instrument)
	}
	return ids
}

// Lookup returns the series for an instrument.
func (t PriceTable) Lookup(instrument string) (PriceSeries, bool) {
	for _, s := range t.Series {
		if s.Instrument == instrument {
			return s, true
		}
	}
	return PriceSeries{}, false
}

// SyntheticInstruments lists the instruments whose series were generated.
func (t PriceTable) SyntheticInstruments() []string {
	var ids []string
	for _, s := range t.Series {
		if s.Synthetic() {
			ids = append(ids, s.Instrument)
		}
	}
	return ids
}

// Dates returns the sorted union of every series' dates.
func (t PriceTable) Dates() []time.Time {
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, s := range t.Series {
		for _, p := range s.Points {
			d := Day(p.Date)
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// ChangePoint is one day-over-day percent change. Defined is false when the
// change could not be computed (zero or missing prior price, missing current
// price); Percent is zero in that case and must not be read.
type ChangePoint struct {
	Date    time.Time `json:"date"`
	Percent float64   `json:"percent"`
	Defined bool      `json:"defined"`
}

// ChangeSeries is the percent-change column of one instrument.
type ChangeSeries struct {
	Instrument string        `json:"instrument"`
	Points     []ChangePoint `json:"points"`
}

// Defined returns only the points that carry a value.
func (s ChangeSeries) Defined() []ChangePoint {
	out := make([]ChangePoint, 0, len(s.Points))
	for _, p := range s.Points {
		if p.Defined {
			out = append(out, p)
		}
	}
	return out
}

// PercentChangeTable holds one ChangeSeries per price column. Every column has
// exactly one point per entry of Dates.
type PercentChangeTable struct {
	Dates   []time.Time    `json:"dates"`
	Columns []ChangeSeries `json:"columns"`
}

// Lookup returns the change column for an instrument.
func (t PercentChangeTable) Lookup(instrument string) (ChangeSeries, bool) {
	for _, c := range t.Columns {
		if c.Instrument == instrument {
			return c, true
		}
	}
	return ChangeSeries{}, false
}

// Rows returns the number of date rows.
func (t PercentChangeTable) Rows() int {
	return len(t.Dates)
}
