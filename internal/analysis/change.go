// Package analysis derives percent changes from price tables and measures how
// two instruments' daily moves relate.
package analysis

import (
	"math"
	"time"

	"github.com/rewired-gh/fxcorr/internal/models"
)

// PercentChange derives the day-over-day percent change of every column.
//
// Rows follow the union of the table's dates with the first date dropped, so a
// fully populated table of n rows yields n-1 rows. A change is undefined when
// either price is missing or the prior price is zero.
func PercentChange(table models.PriceTable) models.PercentChangeTable {
	if len(table.Series) == 0 {
		return models.PercentChangeTable{}
	}

	dates := table.Dates()
	out := models.PercentChangeTable{
		Columns: make([]models.ChangeSeries, 0, len(table.Series)),
	}
	if len(dates) > 1 {
		out.Dates = dates[1:]
	}

	for _, s := range table.Series {
		closes := make(map[time.Time]float64, len(s.Points))
		for _, p := range s.Points {
			closes[models.Day(p.Date)] = p.Close
		}

		col := models.ChangeSeries{
			Instrument: s.Instrument,
			Points:     make([]models.ChangePoint, 0, len(out.Dates)),
		}
		for i := 1; i < len(dates); i++ {
			prev, okPrev := closes[dates[i-1]]
			cur, okCur := closes[dates[i]]
			col.Points = append(col.Points, changePoint(dates[i], prev, cur, okPrev && okCur))
		}
		out.Columns = append(out.Columns, col)
	}

	return out
}

func changePoint(date time.Time, prev, cur float64, present bool) models.ChangePoint {
	p := models.ChangePoint{Date: date}
	if !present || prev == 0 {
		return p
	}
	pct := (cur - prev) / prev * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return p
	}
	p.Percent = pct
	p.Defined = true
	return p
}

// seriesChanges computes percent changes between consecutive points of a
// single series, skipping steps whose prior price is zero.
func seriesChanges(points []models.PricePoint) []float64 {
	if len(points) < 2 {
		return nil
	}
	out := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		p := changePoint(points[i].Date, points[i-1].Close, points[i].Close, true)
		if p.Defined {
			out = append(out, p.Percent)
		}
	}
	return out
}
